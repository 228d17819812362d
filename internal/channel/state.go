package channel

// State describes the health of the event channel connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Status is a point-in-time snapshot of the channel's connection health,
// readable by the scheduler and the UI.
type Status struct {
	State             State
	ReconnectAttempts int
}
