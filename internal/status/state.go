package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/wafleet/wafleet/internal/bus"
)

// State represents a connection lifecycle state.
type State string

const (
	Connecting   State = "CONNECTING"
	Pairing      State = "PAIRING"
	Connected    State = "CONNECTED"
	Reconnecting State = "RECONNECTING"
	Disconnected State = "DISCONNECTED"
	Blocked      State = "BLOCKED"
	LoggedOut    State = "LOGGED_OUT"
)

// Terminal reports whether s is a terminal state. Terminal connections are
// removed from the registry and never transition again.
func (s State) Terminal() bool {
	return s == Disconnected || s == Blocked || s == LoggedOut
}

// validTransitions defines allowed state transitions. The transport can
// report "close" at any point, so every live state can reach the terminals.
var validTransitions = map[State][]State{
	Connecting:   {Pairing, Connected, Reconnecting, Disconnected, Blocked, LoggedOut},
	Pairing:      {Connecting, Connected, Reconnecting, Disconnected, Blocked, LoggedOut},
	Connected:    {Connecting, Reconnecting, Disconnected, Blocked, LoggedOut},
	Reconnecting: {Connecting, Connected, Disconnected, Blocked, LoggedOut},
	Disconnected: {},
	Blocked:      {},
	LoggedOut:    {},
}

// Machine tracks and enforces lifecycle state transitions for one connection.
type Machine struct {
	mu      sync.RWMutex
	session string
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine for the given session, starting in
// Connecting.
func NewMachine(session string, b *bus.Bus) *Machine {
	return &Machine{
		session: session,
		current: Connecting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is invalid. A transition to the current state is a no-op.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == m.current {
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Emit("session.status_changed", m.session, StatusChange{From: from, To: to})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
