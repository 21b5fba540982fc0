// Package exec serializes command execution for the driven chat
// application. The application cannot safely accept a second command
// while the first is still producing side effects, so commands run
// strictly one at a time with a type-dependent settle delay between
// them.
package exec

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the executor's position in the drain cycle.
type State int

const (
	// StateIdle - No command in flight, queue may be empty.
	StateIdle State = iota
	// StateExecuting - A command is being applied to the application.
	StateExecuting
	// StateCooling - The settle delay after an execution is running.
	StateCooling
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateExecuting:
		return "EXECUTING"
	case StateCooling:
		return "COOLING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrNotIdle      = errors.New("executor is not idle")
	ErrNotExecuting = errors.New("no command is executing")
	ErrNotCooling   = errors.New("no settle delay is running")
)

// Lifecycle manages the executor's state machine.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → EXECUTING → COOLING → IDLE
//
// A command, once executing, always runs to completion and serves its
// full settle delay; there is no cancellation path.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// BeginExecution transitions IDLE → EXECUTING.
func (l *Lifecycle) BeginExecution() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return ErrNotIdle
	}
	l.state = StateExecuting
	return nil
}

// BeginCooling transitions EXECUTING → COOLING.
func (l *Lifecycle) BeginCooling() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateExecuting {
		return ErrNotExecuting
	}
	l.state = StateCooling
	return nil
}

// Settle transitions COOLING → IDLE.
func (l *Lifecycle) Settle() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateCooling {
		return ErrNotCooling
	}
	l.state = StateIdle
	return nil
}
