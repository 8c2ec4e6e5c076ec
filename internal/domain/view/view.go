// Package view holds presentation-side derivations over approval requests.
// Nothing here mutates its input.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

// Tab is a dashboard list
type Tab string

const (
	TabPending  Tab = "pending"
	TabApproved Tab = "approved"
	TabRejected Tab = "rejected"
	TabAll      Tab = "all"
)

// ParseTab accepts a tab name case-insensitively; empty means all
func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TabAll, nil
	case TabPending, TabApproved, TabRejected, TabAll:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tab %q", s)
	}
}

// Statuses returns the statuses shown under the tab; nil means every status
func (t Tab) Statuses() []entity.Status {
	switch t {
	case TabPending:
		return []entity.Status{entity.StatusPending}
	case TabApproved:
		return []entity.Status{
			entity.StatusLevel1Approved,
			entity.StatusLevel2Approved,
			entity.StatusFullyApproved,
		}
	case TabRejected:
		return []entity.Status{entity.StatusRejected}
	default:
		return nil
	}
}

// Includes reports whether a request with status s belongs on the tab
func (t Tab) Includes(s entity.Status) bool {
	statuses := t.Statuses()
	if statuses == nil {
		return true
	}
	for _, want := range statuses {
		if want == s {
			return true
		}
	}
	return false
}

// FilterByTab returns the requests on tab, newest submission first
func FilterByTab(reqs []*entity.ApprovalRequest, tab Tab) []*entity.ApprovalRequest {
	out := make([]*entity.ApprovalRequest, 0, len(reqs))
	for _, r := range reqs {
		if tab.Includes(r.Status) {
			out = append(out, r)
		}
	}
	SortBySubmittedDesc(out)
	return out
}

// SortBySubmittedDesc orders requests newest first, ties broken by id for stable output
func SortBySubmittedDesc(reqs []*entity.ApprovalRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].SubmittedAt.Equal(reqs[j].SubmittedAt) {
			return reqs[i].SubmittedAt.After(reqs[j].SubmittedAt)
		}
		return reqs[i].ID < reqs[j].ID
	})
}

// SortApprovals returns a copy of entries ordered by level
func SortApprovals(entries []entity.ApprovalLogEntry) []entity.ApprovalLogEntry {
	out := append([]entity.ApprovalLogEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// BadgeVariant is the visual weight a status is shown with
func BadgeVariant(s entity.Status) string {
	switch s {
	case entity.StatusPending:
		return "secondary"
	case entity.StatusLevel1Approved, entity.StatusLevel2Approved, entity.StatusFullyApproved:
		return "default"
	case entity.StatusRejected:
		return "destructive"
	default:
		return "outline"
	}
}

// Progress is the number of completed approval levels out of the maximum
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

// ApprovalProgress reports how far req is through the approval levels
func ApprovalProgress(req *entity.ApprovalRequest) Progress {
	n := len(req.Approvals)
	if n > entity.MaxApprovalLevels {
		n = entity.MaxApprovalLevels
	}
	return Progress{Completed: n, Total: entity.MaxApprovalLevels}
}
