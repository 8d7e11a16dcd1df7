package realtime

// State represents the connection state of a Client.
type State int

const (
	// Disconnected means no transport is held and no reconnect is pending.
	Disconnected State = iota
	// Connecting means a dial is in flight.
	Connecting
	// Open means the transport is established and the heartbeat is running.
	Open
	// Reconnecting means a reconnect timer is armed.
	Reconnecting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
