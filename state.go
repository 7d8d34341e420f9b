package queueprocessor

// State represents the lifecycle state of a processor.
//
// State Machine:
//
//	StateCreated → StateScheduled          [construction]
//	StateScheduled → StateAdvancing        [tick, cursor < len]
//	StateAdvancing → StateScheduled        [step complete]
//	StateScheduled → StateFinished         [tick, cursor >= len]
//	StateFinished → (terminal)
type State int32

const (
	// StateCreated indicates the processor has not scheduled its first tick.
	StateCreated State = iota
	// StateScheduled indicates a tick is pending.
	StateScheduled
	// StateAdvancing indicates items are being processed, which may include
	// waiting on promises returned by the callback.
	StateAdvancing
	// StateFinished indicates the run is complete, and the outcome has been
	// broadcast.
	StateFinished
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateScheduled:
		return "Scheduled"
	case StateAdvancing:
		return "Advancing"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}
