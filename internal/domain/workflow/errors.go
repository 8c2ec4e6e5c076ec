package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed transition input
	ErrValidation = errors.New("validation error")

	// ErrPreconditionFailed is returned when the request's state forbids the transition
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrUnauthenticated is returned when no actor identity is available
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")
)

// Precondition reasons. Each wraps ErrPreconditionFailed.
var (
	ErrInvalidTransition   = fmt.Errorf("%w: invalid state transition", ErrPreconditionFailed)
	ErrAlreadyFinalized    = fmt.Errorf("%w: request already finalized", ErrPreconditionFailed)
	ErrDuplicateApprover   = fmt.Errorf("%w: approver already recorded on this request", ErrPreconditionFailed)
	ErrMaxApprovalsReached = fmt.Errorf("%w: maximum approval levels reached", ErrPreconditionFailed)
	ErrNotFullyApproved    = fmt.Errorf("%w: request is not fully approved", ErrPreconditionFailed)
)

// PreconditionReason returns a stable machine-readable code for a precondition error,
// or an empty string if err is not one.
func PreconditionReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, ErrDuplicateApprover):
		return "duplicate_approver"
	case errors.Is(err, ErrMaxApprovalsReached):
		return "max_approvals_reached"
	case errors.Is(err, ErrNotFullyApproved):
		return "not_fully_approved"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrPreconditionFailed):
		return "precondition_failed"
	default:
		return ""
	}
}
