package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{entity.StatusPending, false},
		{entity.StatusLevel1Approved, false},
		{entity.StatusLevel2Approved, false},
		{entity.StatusFullyApproved, true},
		{entity.StatusRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_PanicsOnTerminalConfiguration(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when configuring a terminal state")
		}
	}()
	NewBuilder().Configure(entity.StatusRejected)
}

func TestStateMachine_Fire(t *testing.T) {
	blocked := errors.New("blocked")

	b := NewBuilder()
	b.Configure(entity.StatusPending).
		PermitIf(TriggerApprove, entity.StatusLevel2Approved, func(context.Context, *Transition) error { return blocked }).
		Permit(TriggerApprove, entity.StatusLevel1Approved)

	m := b.Build(entity.StatusPending)
	if err := m.Fire(context.Background(), TriggerApprove, &Transition{}); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if m.State() != entity.StatusLevel1Approved {
		t.Errorf("State() = %v, want %v", m.State(), entity.StatusLevel1Approved)
	}

	// Level 1 has no configuration in this builder
	err := m.Fire(context.Background(), TriggerApprove, &Transition{})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
}

func TestStateMachine_FireReturnsGuardError(t *testing.T) {
	blocked := errors.New("blocked")

	b := NewBuilder()
	b.Configure(entity.StatusPending).
		PermitIf(TriggerReject, entity.StatusRejected, func(context.Context, *Transition) error { return blocked })

	m := b.Build(entity.StatusPending)
	if err := m.Fire(context.Background(), TriggerReject, &Transition{}); !errors.Is(err, blocked) {
		t.Errorf("Fire() error = %v, want %v", err, blocked)
	}
	if m.State() != entity.StatusPending {
		t.Errorf("state changed after failed guard: %v", m.State())
	}
}

func TestStateMachine_TerminalStateRefusesEverything(t *testing.T) {
	for _, s := range []State{entity.StatusFullyApproved, entity.StatusRejected} {
		m := newApprovalMachine().Build(s)
		for _, trigger := range []Trigger{TriggerApprove, TriggerReject} {
			err := m.Fire(context.Background(), trigger, &Transition{})
			if !errors.Is(err, ErrAlreadyFinalized) {
				t.Errorf("%s/%s: error = %v, want ErrAlreadyFinalized", s, trigger, err)
			}
		}
		if len(m.PermittedTriggers()) != 0 {
			t.Errorf("%s: PermittedTriggers() = %v, want none", s, m.PermittedTriggers())
		}
	}
}

func TestStateMachine_InvalidState(t *testing.T) {
	m := newApprovalMachine().Build(State("Archived"))
	if err := m.Fire(context.Background(), TriggerApprove, &Transition{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Fire() error = %v, want ErrInvalidState", err)
	}
}

func TestStateMachine_BuildIsolation(t *testing.T) {
	b := newApprovalMachine()
	m1 := b.Build(entity.StatusPending)
	m2 := b.Build(entity.StatusPending)

	req := &entity.ApprovalRequest{Status: entity.StatusPending}
	if err := m1.Fire(context.Background(), TriggerApprove, &Transition{Request: req, Actor: &entity.Actor{ID: "a"}}); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if m2.State() != entity.StatusPending {
		t.Errorf("second machine affected: %v", m2.State())
	}
	if !m2.CanFire(TriggerReject) {
		t.Error("CanFire(REJECT) = false, want true")
	}
}
