package state

const (
	PhasePlaying  = "playing"
	PhaseFinished = "finished"
	PhaseClosed   = "closed"
)

// PlayingState accepts moves.
type PlayingState struct {
	phase
}

// FinishedState keeps the final board visible until the cleanup timer
// fires or the session is closed for another reason.
type FinishedState struct {
	phase
}

func (s *FinishedState) OnEnter() {
	s.Room.ScheduleCleanup()
}

func (s *FinishedState) OnExit() {
	s.Room.CancelCleanup()
}

// ClosedState is terminal.
type ClosedState struct {
	phase
}

// Lifecycle drives a session through playing → finished → closed.
type Lifecycle struct {
	*Machine
	Playing  *PlayingState
	Finished *FinishedState
	Closed   *ClosedState
}

func never() bool { return false }

func NewLifecycle(room RoomContext) *Lifecycle {
	l := &Lifecycle{
		Playing:  &PlayingState{phase{ID: PhasePlaying, Room: room}},
		Finished: &FinishedState{phase{ID: PhaseFinished, Room: room}},
		Closed:   &ClosedState{phase{ID: PhaseClosed, Room: room}},
	}
	l.Machine = NewMachine(l.Playing)

	l.Guard(l.Playing, l.Finished, room.IsTerminal)
	l.Guard(l.Finished, l.Playing, never)
	l.Guard(l.Closed, l.Playing, never)
	l.Guard(l.Closed, l.Finished, never)
	l.Guard(l.Closed, l.Closed, never)
	return l
}

// Phase returns the id of the current state.
func (l *Lifecycle) Phase() string {
	return l.Current().GetID()
}

// Finish moves to the finished phase once the game is terminal.
func (l *Lifecycle) Finish() error {
	return l.ChangeState(l.Finished)
}

// Close moves to the closed phase. Closing twice returns ErrTransitionNotAllowed.
func (l *Lifecycle) Close() error {
	return l.ChangeState(l.Closed)
}
