// state/interfaces.go
package state

// RoomContext is the part of a game session the lifecycle states act on.
// It breaks the import cycle between room and state.
type RoomContext interface {
	GetID() string
	// IsTerminal reports whether the rule engine considers the game over.
	IsTerminal() bool
	// ScheduleCleanup arms the deferred teardown of the session.
	ScheduleCleanup()
	// CancelCleanup disarms it. Safe to call when nothing is armed.
	CancelCleanup()
}
