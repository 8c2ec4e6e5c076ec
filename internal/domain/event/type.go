package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted     Type = "request.submitted"
	TypeRequestApproved      Type = "request.approved"
	TypeRequestFullyApproved Type = "request.fully_approved"
	TypeRequestRejected      Type = "request.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted,
		TypeRequestApproved,
		TypeRequestFullyApproved,
		TypeRequestRejected:
		return true
	default:
		return false
	}
}
