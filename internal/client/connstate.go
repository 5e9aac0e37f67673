package client

import (
	"fmt"
	"sync"
)

// ConnState is the connection lifecycle of one client. Explicit states with
// typed transition events replace scattered reconnect flags: a client cannot
// be "authenticated but not connected", because no event sequence produces
// that state.
type ConnState string

const (
	StateDisconnected   ConnState = "DISCONNECTED"
	StateConnecting     ConnState = "CONNECTING"
	StateAuthenticating ConnState = "AUTHENTICATING"
	StateJoiningRoom    ConnState = "JOINING_ROOM"
	StateReady          ConnState = "READY"
)

// ConnEvent drives connection state transitions.
type ConnEvent string

const (
	EventDial          ConnEvent = "DIAL"
	EventConnected     ConnEvent = "CONNECTED"
	EventAuthenticated ConnEvent = "AUTHENTICATED"
	EventJoined        ConnEvent = "JOINED"
	EventDropped       ConnEvent = "DROPPED"
)

var connTransitions = map[ConnState]map[ConnEvent]ConnState{
	StateDisconnected: {
		EventDial: StateConnecting,
	},
	StateConnecting: {
		EventConnected: StateAuthenticating,
		EventDropped:   StateDisconnected,
	},
	StateAuthenticating: {
		EventAuthenticated: StateJoiningRoom,
		EventDropped:       StateDisconnected,
	},
	StateJoiningRoom: {
		EventJoined:  StateReady,
		EventDropped: StateDisconnected,
	},
	StateReady: {
		EventDropped: StateDisconnected,
	},
}

// ConnMachine is the client connection state machine. Resumption after a drop
// is always "dial again and request a fresh snapshot": the late-join spin
// math makes a fresh snapshot sufficient, so missed messages are never
// replayed.
type ConnMachine struct {
	mu      sync.Mutex
	state   ConnState
	onReady func()
}

// NewConnMachine starts DISCONNECTED. onReady fires on each transition into
// READY and is where the owner requests a fresh snapshot.
func NewConnMachine(onReady func()) *ConnMachine {
	return &ConnMachine{state: StateDisconnected, onReady: onReady}
}

func (m *ConnMachine) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply transitions on an event. Illegal events for the current state are
// rejected and leave the state unchanged.
func (m *ConnMachine) Apply(event ConnEvent) (ConnState, error) {
	m.mu.Lock()
	next, ok := connTransitions[m.state][event]
	if !ok {
		state := m.state
		m.mu.Unlock()
		return state, fmt.Errorf("client: event %s not valid in state %s", event, state)
	}
	m.state = next
	ready := next == StateReady && m.onReady != nil
	m.mu.Unlock()

	if ready {
		m.onReady()
	}
	return next, nil
}
