// ABOUTME: Orchestrator turn states and their display names
// ABOUTME: Succeeded and Failed are settled outcomes recorded after a turn

package conversation

// State is the orchestrator's position in the turn lifecycle.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateRequesting
	StateStreaming
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Settled reports whether s ends a turn.
func (s State) Settled() bool {
	return s == StateSucceeded || s == StateFailed
}
