package serverproc

import "fmt"

// State is the lifecycle state of a Server.
//
// Transitions are Starting to Running to Stopped, or Starting to Failed.
// Stopped and Failed are terminal. Start only ever returns a Server in
// StateRunning.
type State int

const (
	// StateStarting is the state while Start waits for readiness.
	StateStarting State = iota
	// StateRunning is the state of a ready server.
	StateRunning
	// StateStopped is the state after Clean.
	StateStopped
	// StateFailed is the state of a server that never became ready.
	StateFailed
)

// IsValid reports whether s is a recognized State value.
func (s State) IsValid() bool {
	switch s {
	case StateStarting, StateRunning, StateStopped, StateFailed:
		return true
	default:
		return false
	}
}

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
