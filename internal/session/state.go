package session

import (
	"sync"

	"wardroom/internal/logging"
)

// State is the session lifecycle state.
type State string

const (
	// StateWelcome shows workflow-selection chrome only; no
	// conversation messages are visible.
	StateWelcome State = "welcome"

	// StateActive owns the message list.
	StateActive State = "active"

	// StateLoading is transient, entered only during workflow
	// initialization.
	StateLoading State = "loading"
)

// Observer is invoked after every state change with the new state and
// a setter the observer may keep to force future transitions (guided
// tours use this). Forced transitions feed the same notification
// path, so observers cannot distinguish them from internal ones.
type Observer func(next State, force func(State))

// Machine is the three-state session machine.
type Machine struct {
	mu        sync.Mutex
	state     State
	observers []Observer
}

// NewMachine starts in welcome.
func NewMachine() *Machine {
	return &Machine{state: StateWelcome}
}

// NewMachineAt starts in the given state, for callers that skip the
// welcome screen.
func NewMachineAt(s State) *Machine {
	return &Machine{state: s}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers an observer for subsequent transitions.
func (m *Machine) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Set transitions to next and notifies observers. Setting the current
// state is a no-op (observers fire on change only). Observers run
// outside the machine's lock, so an observer may re-enter Set.
func (m *Machine) Set(next State) {
	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = next
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	logging.Session("state %s -> %s", prev, next)
	for _, o := range observers {
		o(next, m.Set)
	}
}
