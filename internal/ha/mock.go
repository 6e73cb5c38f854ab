package ha

import (
	"encoding/json"
	"sync"
)

// MockChannel implements Channel in memory for testing. Deliver and
// SetStatus invoke observers synchronously on the caller's goroutine.
type MockChannel struct {
	mu        sync.Mutex
	status    Status
	sent      []Command
	msgID     int
	msgSubs   []messageEntry
	statSubs  []statusEntry
	nextSubID int
	sendErr   error
}

// NewMockChannel creates an open mock channel
func NewMockChannel() *MockChannel {
	return &MockChannel{status: StatusOpen}
}

// Send records cmd and assigns it the next id
func (m *MockChannel) Send(cmd Command) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return 0, m.sendErr
	}
	if m.status != StatusOpen {
		return 0, ErrNotOpen
	}

	m.msgID++
	cmd.setID(m.msgID)
	m.sent = append(m.sent, cmd)
	return m.msgID, nil
}

// FailSends makes every subsequent Send return err (nil restores)
func (m *MockChannel) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// OnMessage registers a message observer
func (m *MockChannel) OnMessage(handler MessageHandler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	subID := m.nextSubID
	m.nextSubID++
	m.msgSubs = append(m.msgSubs, messageEntry{subID: subID, handler: handler})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, entry := range m.msgSubs {
			if entry.subID == subID {
				m.msgSubs = append(m.msgSubs[:i:i], m.msgSubs[i+1:]...)
				return
			}
		}
	}
}

// OnStatusChange registers a status observer
func (m *MockChannel) OnStatusChange(handler StatusHandler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	subID := m.nextSubID
	m.nextSubID++
	m.statSubs = append(m.statSubs, statusEntry{subID: subID, handler: handler})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, entry := range m.statSubs {
			if entry.subID == subID {
				m.statSubs = append(m.statSubs[:i:i], m.statSubs[i+1:]...)
				return
			}
		}
	}
}

// Status returns the mock status
func (m *MockChannel) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SetStatus changes the status and notifies observers
func (m *MockChannel) SetStatus(status Status) {
	m.mu.Lock()
	m.status = status
	entries := append([]statusEntry(nil), m.statSubs...)
	m.mu.Unlock()

	for _, entry := range entries {
		entry.handler(status)
	}
}

// Deliver hands msg to every message observer
func (m *MockChannel) Deliver(msg *Message) {
	m.mu.Lock()
	entries := append([]messageEntry(nil), m.msgSubs...)
	m.mu.Unlock()

	for _, entry := range entries {
		entry.handler(msg)
	}
}

// DeliverResult delivers a successful result for id carrying states
func (m *MockChannel) DeliverResult(id int, states []*State) {
	success := true
	msg := &Message{ID: id, Type: TypeResult, Success: &success}
	if states != nil {
		msg.Result, _ = json.Marshal(states)
	}
	m.Deliver(msg)
}

// DeliverStateChanged delivers a state_changed event for newState
func (m *MockChannel) DeliverStateChanged(newState *State) {
	data, _ := json.Marshal(StateChangedEvent{EntityID: newState.EntityID, NewState: newState})
	m.Deliver(&Message{
		Type:  TypeEvent,
		Event: &Event{EventType: EventStateChanged, Data: data},
	})
}

// Sent returns all recorded commands
func (m *MockChannel) Sent() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.sent...)
}

// LastCallService returns the most recent call_service command, or nil
func (m *MockChannel) LastCallService() *CallServiceRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.sent) - 1; i >= 0; i-- {
		if req, ok := m.sent[i].(*CallServiceRequest); ok {
			return req
		}
	}
	return nil
}

// ObserverCount returns the number of registered message and status observers
func (m *MockChannel) ObserverCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgSubs) + len(m.statSubs)
}
