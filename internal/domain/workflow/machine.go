package workflow

import (
	"context"
	"time"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

// Transition carries the inputs guards and target selectors evaluate against
type Transition struct {
	Request *entity.ApprovalRequest
	Actor   *entity.Actor
	Reason  string
	At      time.Time
}

// StateMachine represents a state machine that tracks current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is configured for the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed.
	// A failing guard's error is returned unchanged.
	Fire(ctx context.Context, trigger Trigger, t *Transition) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}
