package session

// State is the lifecycle position of the controller's single session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether a Start must be rejected in this state.
func (s State) Busy() bool {
	return s == StateStarting || s == StateActive || s == StateStopping
}

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	State     State
	Reason    string
	DeviceID  string
	SessionID string
}
