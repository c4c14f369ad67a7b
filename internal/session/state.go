package session

// State is the room session lifecycle. A controller walks
// Idle → Loading → Connecting → Live → Closing → Idle; Degraded is
// reached from Connecting when the socket cannot be established.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateConnecting
	StateLive
	StateDegraded
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateDegraded:
		return "degraded"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}
