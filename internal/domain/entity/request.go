package entity

import "time"

// ApprovalLogEntry records one administrator's approval at a given level
type ApprovalLogEntry struct {
	ApproverID      string    `json:"approver_id"`
	ApproverContact string    `json:"approver_contact"`
	ApprovedAt      time.Time `json:"approved_at"`
	Level           int       `json:"level"`
}

// ApprovalRequest is a submitted request moving through the approval levels
type ApprovalRequest struct {
	ID               string    `json:"id"`
	SubmitterName    string    `json:"submitter_name"`
	SubmitterEmail   string    `json:"submitter_email"`
	OrganisationName string    `json:"organisation_name"`
	SubmitterIDNo    string    `json:"submitter_id_no"`
	Purpose          string    `json:"purpose"`
	RequestDate      time.Time `json:"request_date"`
	RequestTime      string    `json:"request_time"`
	NumberOfItems    int       `json:"number_of_items"`
	// SelectedItems keeps insertion order; the letter table maps rows to it positionally.
	SelectedItems []string  `json:"selected_items"`
	SubmittedAt   time.Time `json:"submitted_at"`

	Status          Status             `json:"status"`
	Approvals       []ApprovalLogEntry `json:"approvals"`
	Rejected        bool               `json:"rejected"`
	RejectionReason string             `json:"rejection_reason,omitempty"`

	// Version increments on every committed transition.
	Version int64 `json:"-"`
}

// HasApprovalFrom reports whether the approver already has an entry in the log
func (r *ApprovalRequest) HasApprovalFrom(approverID string) bool {
	for _, a := range r.Approvals {
		if a.ApproverID == approverID {
			return true
		}
	}
	return false
}

// ApprovalAt returns the log entry recorded at the given level, if any
func (r *ApprovalRequest) ApprovalAt(level int) (ApprovalLogEntry, bool) {
	for _, a := range r.Approvals {
		if a.Level == level {
			return a, true
		}
	}
	return ApprovalLogEntry{}, false
}

// Clone returns a deep copy so callers can hand out snapshots safely
func (r *ApprovalRequest) Clone() *ApprovalRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.SelectedItems = append([]string(nil), r.SelectedItems...)
	c.Approvals = append([]ApprovalLogEntry(nil), r.Approvals...)
	return &c
}
