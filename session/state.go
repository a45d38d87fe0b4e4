package session

// State is the lifecycle state of a Session.
type State uint8

const (
	Idle State = iota
	AwaitingUpstream
	Streaming
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingUpstream:
		return "awaiting_upstream"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s >= Completed
}
