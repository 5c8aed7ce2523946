package orchestrator

// State is the lifecycle stage of one section run
type State int

const (
	StateNotStarted State = iota
	StatePlanning
	StateWriting
	StateAssembling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StatePlanning:
		return "planning"
	case StateWriting:
		return "writing"
	case StateAssembling:
		return "assembling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Observer is notified of every state transition of every section. It is
// called from the goroutine running the section and must not block.
type Observer func(sectionID string, from, to State)
