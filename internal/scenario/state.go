package scenario

import (
	"fmt"
	"sync"
)

// State is the lifecycle position of one scenario run.
type State int

const (
	Unstarted State = iota
	Connecting
	Registering
	Active
	Closing
	Done
	Failed
)

var stateNames = [...]string{
	Unstarted:   "unstarted",
	Connecting:  "connecting",
	Registering: "registering",
	Active:      "active",
	Closing:     "closing",
	Done:        "done",
	Failed:      "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// transitions lists the legal successors of each state.  A scenario
// with several users goes back to Connecting for the next one after
// registering the previous; Closing is reachable early when the run
// is cancelled.
var transitions = map[State][]State{
	Unstarted:   {Connecting, Closing},
	Connecting:  {Registering, Failed, Closing},
	Registering: {Connecting, Active, Failed, Closing},
	Active:      {Closing},
	Failed:      {Closing},
	Closing:     {Done},
}

// Machine tracks a run's state and the path it took.
type Machine struct {
	mu      sync.Mutex
	state   State
	history []State
}

// NewMachine returns a machine in Unstarted.
func NewMachine() *Machine {
	return &Machine{history: []State{Unstarted}}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// History returns every state visited, oldest first.
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}

// To moves to next, returning an error for a transition the lifecycle
// does not allow.  Moving to the current state is a no-op.
func (m *Machine) To(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next == m.state {
		return nil
	}
	for _, s := range transitions[m.state] {
		if s == next {
			m.state = next
			m.history = append(m.history, next)
			return nil
		}
	}
	return fmt.Errorf("illegal scenario transition %s -> %s", m.state, next)
}

// Reached reports whether the run ever entered s.
func (m *Machine) Reached(s State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.history {
		if h == s {
			return true
		}
	}
	return false
}
