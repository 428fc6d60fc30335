package pipeline

import "fmt"

// State is the lifecycle position of one run.
type State string

const (
	StatePending     State = "pending"
	StateExtracting  State = "extracting"
	StateAnalyzing   State = "analyzing"
	StateAggregating State = "aggregating"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
)

var transitions = map[State][]State{
	StatePending:     {StateExtracting, StateAnalyzing, StateFailed},
	StateExtracting:  {StateAnalyzing, StateFailed},
	StateAnalyzing:   {StateAggregating, StateFailed},
	StateAggregating: {StateComplete, StateFailed},
}

func (s State) Terminal() bool { return s == StateComplete || s == StateFailed }

func (s State) canMoveTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Observer is told about every state change of a run.
type Observer func(runID string, from, to State)

type machine struct {
	runID    string
	state    State
	observer Observer
	onChange func(from, to State)
}

func (m *machine) moveTo(next State) error {
	if !m.state.canMoveTo(next) {
		return fmt.Errorf("run %s: illegal transition %s -> %s", m.runID, m.state, next)
	}
	from := m.state
	m.state = next
	if m.onChange != nil {
		m.onChange(from, next)
	}
	if m.observer != nil {
		m.observer(m.runID, from, next)
	}
	return nil
}
