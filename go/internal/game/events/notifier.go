package events

// Notifier delivers events to connections. Broadcasts are scoped to a room's
// broadcast group; implementations must preserve call order per group.
type Notifier interface {
	// SendTo delivers ev to a single connection.
	SendTo(handle string, ev Event)
	// Broadcast delivers ev to every member of the room's group.
	Broadcast(roomCode string, ev Event)
	// BroadcastExcept delivers ev to every member except one.
	BroadcastExcept(roomCode, except string, ev Event)
	// Subscribe adds a connection to the room's group.
	Subscribe(roomCode, handle string)
	// Unsubscribe removes a connection from the room's group.
	Unsubscribe(roomCode, handle string)
	// Disband drops the whole group once the room is gone.
	Disband(roomCode string)
}
