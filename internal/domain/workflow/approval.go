package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

// Outcome describes the state a legal transition produces. Entry is set only for approvals.
type Outcome struct {
	Status entity.Status
	Entry  *entity.ApprovalLogEntry
	Reason string
}

var approvalMachine = newApprovalMachine()

func newApprovalMachine() StateMachineBuilder {
	b := NewBuilder()
	for _, s := range []entity.Status{
		entity.StatusPending,
		entity.StatusLevel1Approved,
		entity.StatusLevel2Approved,
	} {
		b.Configure(s).
			PermitDynamic(TriggerApprove, nextApprovalStatus, guardApprove).
			PermitIf(TriggerReject, entity.StatusRejected, guardReject)
	}
	return b
}

// StatusForLevel maps an approval count to the status it implies
func StatusForLevel(n int) entity.Status {
	switch {
	case n <= 0:
		return entity.StatusPending
	case n == 1:
		return entity.StatusLevel1Approved
	case n == 2:
		return entity.StatusLevel2Approved
	default:
		return entity.StatusFullyApproved
	}
}

// the level is derived from the log, never from the stored status
func nextApprovalStatus(t *Transition) State {
	return StatusForLevel(len(t.Request.Approvals) + 1)
}

func guardApprove(_ context.Context, t *Transition) error {
	if t.Request.HasApprovalFrom(t.Actor.ID) {
		return ErrDuplicateApprover
	}
	if len(t.Request.Approvals) >= entity.MaxApprovalLevels {
		return ErrMaxApprovalsReached
	}
	return nil
}

func guardReject(_ context.Context, t *Transition) error {
	if strings.TrimSpace(t.Reason) == "" {
		return fmt.Errorf("%w: rejection reason cannot be empty", ErrValidation)
	}
	return nil
}

// Approve decides whether actor may add the next approval level to req.
// req is not modified.
func Approve(ctx context.Context, req *entity.ApprovalRequest, actor *entity.Actor, at time.Time) (*Outcome, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrValidation)
	}
	if actor == nil || actor.ID == "" {
		return nil, ErrUnauthenticated
	}

	t := &Transition{Request: req, Actor: actor, At: at}
	m := approvalMachine.Build(req.Status)
	if err := m.Fire(ctx, TriggerApprove, t); err != nil {
		return nil, err
	}

	return &Outcome{
		Status: m.State(),
		Entry: &entity.ApprovalLogEntry{
			ApproverID:      actor.ID,
			ApproverContact: actor.Contact,
			ApprovedAt:      at,
			Level:           len(req.Approvals) + 1,
		},
	}, nil
}

// Reject decides whether req may be rejected with reason. The approvals log is left intact.
func Reject(ctx context.Context, req *entity.ApprovalRequest, actor *entity.Actor, reason string) (*Outcome, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", ErrValidation)
	}
	if actor == nil || actor.ID == "" {
		return nil, ErrUnauthenticated
	}

	t := &Transition{Request: req, Actor: actor, Reason: reason}
	m := approvalMachine.Build(req.Status)
	if err := m.Fire(ctx, TriggerReject, t); err != nil {
		return nil, err
	}

	return &Outcome{Status: m.State(), Reason: reason}, nil
}

// CanApprove reports whether actor could approve req right now
func CanApprove(req *entity.ApprovalRequest, actor *entity.Actor) bool {
	if req == nil || actor == nil || actor.ID == "" {
		return false
	}
	return !req.Status.IsTerminal() &&
		!req.HasApprovalFrom(actor.ID) &&
		len(req.Approvals) < entity.MaxApprovalLevels
}

// CanReject reports whether req is still open for rejection
func CanReject(req *entity.ApprovalRequest) bool {
	return req != nil && !req.Status.IsTerminal()
}

// CanPrint reports whether the authorisation letter may be produced
func CanPrint(req *entity.ApprovalRequest) bool {
	return req != nil && req.Status == entity.StatusFullyApproved
}
