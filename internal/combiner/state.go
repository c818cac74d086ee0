package combiner

import "fmt"

// State represents the lifecycle of one combine call.
type State string

const (
	StateInit           State = "init"
	StateResolvingParts State = "resolving_parts"
	StateStreaming      State = "streaming"
	StateVerifying      State = "verifying"
	StateCommitted      State = "committed"
	StateAborted        State = "aborted"
)

type stateTransition struct {
	from State
	to   State
}

// allowedTransitions lists the forward edges. Aborted is reachable from every
// non-terminal state and is handled separately.
var allowedTransitions = map[stateTransition]struct{}{
	{from: StateInit, to: StateResolvingParts}:      {},
	{from: StateResolvingParts, to: StateStreaming}: {},
	{from: StateStreaming, to: StateVerifying}:      {},
	{from: StateVerifying, to: StateCommitted}:      {},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateAborted
}

// CanTransition reports whether the machine may move from s to next.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateAborted {
		return true
	}
	_, ok := allowedTransitions[stateTransition{from: s, to: next}]
	return ok
}

func (s State) String() string {
	return string(s)
}

// stateMachine tracks the current state and rejects illegal moves.
type stateMachine struct {
	current State
	onEnter func(from, to State)
}

func newStateMachine(onEnter func(from, to State)) *stateMachine {
	return &stateMachine{current: StateInit, onEnter: onEnter}
}

func (m *stateMachine) advance(next State) error {
	if !m.current.CanTransition(next) {
		return fmt.Errorf("combine state: illegal transition %s -> %s", m.current, next)
	}
	prev := m.current
	m.current = next
	if m.onEnter != nil {
		m.onEnter(prev, next)
	}
	return nil
}

// abort moves to Aborted unless the machine already stopped.
func (m *stateMachine) abort() {
	if m.current.Terminal() {
		return
	}
	_ = m.advance(StateAborted)
}
