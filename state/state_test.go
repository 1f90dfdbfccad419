package state

import (
	"testing"
)

// MockState is a test double for the State interface.
// It helps us track which methods have been called.
type MockState struct {
	ID            string
	OnEnterCalled bool
	OnExitCalled  bool
}

func (m *MockState) OnEnter() {
	m.OnEnterCalled = true
}

func (m *MockState) OnExit() {
	m.OnExitCalled = true
}

func (m *MockState) GetID() string {
	return m.ID
}

// reset clears the call tracking flags.
func (m *MockState) reset() {
	m.OnEnterCalled = false
	m.OnExitCalled = false
}

func TestStateMachine_InitialState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	sm := NewMachine(initialState)

	if !initialState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the initial state")
	}

	if sm.Current() != initialState {
		t.Error("Current should return the initial state")
	}
}

func TestStateMachine_ChangeState(t *testing.T) {
	initialState := &MockState{ID: "initial"}
	nextState := &MockState{ID: "next"}

	sm := NewMachine(initialState)
	initialState.reset() // Reset after initialization

	err := sm.ChangeState(nextState)
	if err != nil {
		t.Fatalf("ChangeState should not return an error, but got: %v", err)
	}

	if !initialState.OnExitCalled {
		t.Error("Expected OnExit to be called on the old state")
	}

	if !nextState.OnEnterCalled {
		t.Error("Expected OnEnter to be called on the new state")
	}

	if sm.Current() != nextState {
		t.Error("Current should return the new state")
	}
}

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	stateA := &MockState{ID: "A"}
	stateB := &MockState{ID: "B"}
	stateC := &MockState{ID: "C"}

	sm := NewMachine(stateA)

	// Add a valid transition from A to B
	sm.Guard(stateA, stateB, func() bool { return true })

	// Add a blocked transition from B to C
	sm.Guard(stateB, stateC, func() bool { return false })

	// --- Test valid transition ---
	stateA.reset()
	err := sm.ChangeState(stateB)
	if err != nil {
		t.Errorf("Expected transition from A to B to be allowed, but got error: %v", err)
	}
	if sm.Current().GetID() != "B" {
		t.Errorf("Expected current state to be B, but got %s", sm.Current().GetID())
	}

	// --- Test blocked transition ---
	stateB.reset()
	err = sm.ChangeState(stateC)
	if err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if sm.Current().GetID() != "B" {
		t.Errorf("Expected current state to remain B after a blocked transition, but got %s", sm.Current().GetID())
	}
	if stateB.OnExitCalled {
		t.Error("OnExit should not be called on the current state if transition is blocked")
	}
	if stateC.OnEnterCalled {
		t.Error("OnEnter should not be called on the new state if transition is blocked")
	}
}

// mockRoom records cleanup scheduling.
type mockRoom struct {
	terminal  bool
	scheduled int
	cancelled int
}

func (r *mockRoom) GetID() string    { return "room-1" }
func (r *mockRoom) IsTerminal() bool { return r.terminal }
func (r *mockRoom) ScheduleCleanup() { r.scheduled++ }
func (r *mockRoom) CancelCleanup()   { r.cancelled++ }

func TestLifecycle_FinishRequiresTerminalGame(t *testing.T) {
	room := &mockRoom{}
	l := NewLifecycle(room)

	if l.Phase() != PhasePlaying {
		t.Fatalf("Expected initial phase %q, got %q", PhasePlaying, l.Phase())
	}

	if err := l.Finish(); err != ErrTransitionNotAllowed {
		t.Fatalf("Expected ErrTransitionNotAllowed for a running game, got %v", err)
	}
	if room.scheduled != 0 {
		t.Error("Cleanup must not be scheduled while the game is running")
	}

	room.terminal = true
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if l.Phase() != PhaseFinished || room.scheduled != 1 {
		t.Errorf("Expected finished phase with one scheduled cleanup, got %q/%d", l.Phase(), room.scheduled)
	}
}

func TestLifecycle_CloseCancelsCleanup(t *testing.T) {
	room := &mockRoom{terminal: true}
	l := NewLifecycle(room)

	if err := l.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if room.cancelled != 1 {
		t.Errorf("Expected cleanup to be cancelled once, got %d", room.cancelled)
	}
	if err := l.Close(); err != ErrTransitionNotAllowed {
		t.Errorf("Expected second Close to be rejected, got %v", err)
	}
	if err := l.Finish(); err != ErrTransitionNotAllowed {
		t.Errorf("Expected closed session to stay closed, got %v", err)
	}
}

func TestLifecycle_CloseWhilePlaying(t *testing.T) {
	room := &mockRoom{}
	l := NewLifecycle(room)

	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if l.Phase() != PhaseClosed {
		t.Errorf("Expected closed phase, got %q", l.Phase())
	}
	if room.scheduled != 0 || room.cancelled != 0 {
		t.Error("Closing a running game must not touch the cleanup timer")
	}
}
