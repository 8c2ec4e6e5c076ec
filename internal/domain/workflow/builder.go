package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a transition is allowed. A non-nil error blocks
// the transition and is returned to the caller of Fire.
type GuardFunc func(ctx context.Context, t *Transition) error

// TargetFunc selects the destination state at fire time
type TargetFunc func(t *Transition) State

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration

	// PermitDynamic allows a trigger whose target state is computed when it fires
	PermitDynamic(trigger Trigger, target TargetFunc, guard GuardFunc) StateConfiguration
}

type transition struct {
	target TargetFunc
	guard  GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if state.IsTerminal() {
		panic(fmt.Sprintf("terminal state cannot have outgoing transitions: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance. Configurations are copied so that
// machines built from the same builder never share mutable state.
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	return c.PermitDynamic(trigger, func(*Transition) State { return toState }, guard)
}

func (c *stateConfig) PermitDynamic(trigger Trigger, target TargetFunc, guard GuardFunc) StateConfiguration {
	c.transitions[trigger] = append(c.transitions[trigger], transition{
		target: target,
		guard:  guard,
	})
	return c
}

func (m *stateMachine) State() State {
	return m.currentState
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Fire tries each configured transition in order. The first one whose guard passes
// wins; if every guard fails, the first guard error is returned.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger, t *Transition) error {
	if !m.currentState.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, m.currentState)
	}
	if m.currentState.IsTerminal() {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrAlreadyFinalized, trigger, m.currentState)
	}

	config, exists := m.configurations[m.currentState]
	if !exists || len(config.transitions[trigger]) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.currentState)
	}

	var firstErr error
	for _, tr := range config.transitions[trigger] {
		if tr.guard != nil {
			if err := tr.guard(ctx, t); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}

		next := tr.target(t)
		if !next.IsValid() {
			return fmt.Errorf("%w: target %q", ErrInvalidState, next)
		}
		m.currentState = next
		return nil
	}

	return firstErr
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
