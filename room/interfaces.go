package room

// Broadcaster delivers one event to one connection. It is defined here to
// break the import cycle between room and broadcast.
type Broadcaster interface {
	SendTo(clientID string, event string, payload any) error
}
