package combiner

import "testing"

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateInit, StateResolvingParts, true},
		{StateResolvingParts, StateStreaming, true},
		{StateStreaming, StateVerifying, true},
		{StateVerifying, StateCommitted, true},
		{StateInit, StateStreaming, false},
		{StateStreaming, StateCommitted, false},
		{StateInit, StateAborted, true},
		{StateVerifying, StateAborted, true},
		{StateCommitted, StateAborted, false},
		{StateAborted, StateInit, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStateMachineRecordsPath(t *testing.T) {
	var path []State
	m := newStateMachine(func(_, to State) { path = append(path, to) })
	for _, next := range []State{StateResolvingParts, StateStreaming, StateVerifying, StateCommitted} {
		if err := m.advance(next); err != nil {
			t.Fatalf("advance(%s): %v", next, err)
		}
	}
	m.abort()
	if len(path) != 4 || path[3] != StateCommitted {
		t.Fatalf("path = %v", path)
	}
	if err := m.advance(StateStreaming); err == nil {
		t.Fatal("expected error after terminal state")
	}
}
