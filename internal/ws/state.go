package ws

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bishaldk/samvad/internal/bus"
)

// State is a socket lifecycle state. Each Manager instance walks
// Closed → Connecting → Open → Closed exactly once; reconnection means a new
// instance, never reuse.
type State string

const (
	Closed     State = "CLOSED"
	Connecting State = "CONNECTING"
	Open       State = "OPEN"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Closed:     {Connecting},
	Connecting: {Open, Closed},
	Open:       {Closed},
}

// Machine tracks and enforces socket state transitions for one Manager
// instance.
type Machine struct {
	mu           sync.RWMutex
	current      State
	opened       bool // once Open → Closed has happened the instance is dead
	conversation string
	bus          *bus.Bus
}

// NewMachine creates a state machine starting in Closed.
func NewMachine(conversation string, b *bus.Bus) *Machine {
	return &Machine{current: Closed, conversation: conversation, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is invalid or the instance has already completed its lifecycle.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opened && m.current == Closed {
		return fmt.Errorf("socket instance is terminal, cannot transition to %s", to)
	}
	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if to == Open {
		m.opened = true
	}
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:         bus.KindConnState,
			Conversation: m.conversation,
			Timestamp:    time.Now(),
			Payload:      StateChange{From: from, To: to, Conversation: m.conversation},
		})
	}
	return nil
}

// StateChange is the payload for conn.state events.
type StateChange struct {
	From         State
	To           State
	Conversation string
}
