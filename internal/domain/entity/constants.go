package entity

// Status is the lifecycle status of an ApprovalRequest
type Status string

// Status constants for ApprovalRequest
const (
	StatusPending        Status = "Pending"
	StatusLevel1Approved Status = "Level 1 Approved"
	StatusLevel2Approved Status = "Level 2 Approved"
	StatusFullyApproved  Status = "Fully Approved"
	StatusRejected       Status = "Rejected"
)

// MaxApprovalLevels is the number of sequential approvals that finalize a request
const MaxApprovalLevels = 3

var validStatuses = map[Status]bool{
	StatusPending:        true,
	StatusLevel1Approved: true,
	StatusLevel2Approved: true,
	StatusFullyApproved:  true,
	StatusRejected:       true,
}

var terminalStatuses = map[Status]bool{
	StatusFullyApproved: true,
	StatusRejected:      true,
}

// IsTerminal returns true if no further transitions are allowed from the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsValid returns true if the status is one of the defined constants
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Standard item names offered on the submission form
const (
	ItemMobile   = "Mobile"
	ItemLaptop   = "Laptop"
	ItemPendrive = "Pendrive"
)
