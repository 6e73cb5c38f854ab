// Package testutil provides a mock Home Assistant WebSocket server and a
// test environment wiring it to the real login flow.
package testutil

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AuthMode controls how the mock answers the auth message
type AuthMode int

const (
	// AuthNormal answers auth_ok for the right token and auth_invalid otherwise
	AuthNormal AuthMode = iota
	// AuthSilent never answers, so clients hit their handshake timeout
	AuthSilent
)

// connWrapper wraps a WebSocket connection with its write mutex
type connWrapper struct {
	conn       *websocket.Conn
	writeMu    sync.Mutex
	subscribed bool
}

func (w *connWrapper) writeJSON(v interface{}) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.conn.WriteJSON(v)
}

// MockHAServer simulates a Home Assistant WebSocket server
type MockHAServer struct {
	server       *httptest.Server
	token        string
	authMode     AuthMode
	states       map[string]*EntityState
	order        []string
	statesMu     sync.RWMutex
	connections  []*connWrapper
	connsMu      sync.Mutex
	serviceCalls []ServiceCall
	requests     []Request
	callsMu      sync.Mutex
}

// EntityState represents a Home Assistant entity state
type EntityState struct {
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes"`
	LastChanged time.Time              `json:"last_changed"`
	LastUpdated time.Time              `json:"last_updated"`
}

// Message represents a WebSocket message
type Message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Event   *Event          `json:"event,omitempty"`
}

// Event represents a Home Assistant event
type Event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Origin    string          `json:"origin"`
	TimeFired time.Time       `json:"time_fired"`
}

// StateChangedEvent represents a state_changed event
type StateChangedEvent struct {
	EntityID string       `json:"entity_id"`
	NewState *EntityState `json:"new_state"`
	OldState *EntityState `json:"old_state"`
}

// Request is any command the client sent after authenticating
type Request struct {
	ID          int                    `json:"id"`
	Type        string                 `json:"type"`
	EventType   string                 `json:"event_type,omitempty"`
	Domain      string                 `json:"domain,omitempty"`
	Service     string                 `json:"service,omitempty"`
	Target      map[string]interface{} `json:"target,omitempty"`
	ServiceData map[string]interface{} `json:"service_data,omitempty"`
}

// NewMockHAServer creates a new mock HA server accepting token
func NewMockHAServer(token string) *MockHAServer {
	return &MockHAServer{
		token:  token,
		states: make(map[string]*EntityState),
	}
}

// SetAuthMode changes how subsequent handshakes are answered
func (s *MockHAServer) SetAuthMode(mode AuthMode) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.authMode = mode
}

// Start starts the mock server on a random local port
func (s *MockHAServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/websocket", s.handleWebSocket)
	s.server = httptest.NewServer(mux)
}

// URL returns the ws:// URL of the WebSocket endpoint
func (s *MockHAServer) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/websocket"
}

// Stop closes all connections and the listener
func (s *MockHAServer) Stop() {
	s.connsMu.Lock()
	for _, wrapper := range s.connections {
		wrapper.conn.Close()
	}
	s.connections = nil
	s.connsMu.Unlock()

	if s.server != nil {
		s.server.Close()
	}
}

// DropConnections closes every client socket without stopping the listener
func (s *MockHAServer) DropConnections() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for _, wrapper := range s.connections {
		wrapper.conn.Close()
	}
}

// SetState sets a state and broadcasts a state_changed event to subscribers
func (s *MockHAServer) SetState(entityID, state string, attributes map[string]interface{}) {
	if attributes == nil {
		attributes = map[string]interface{}{}
	}

	s.statesMu.Lock()
	oldState, existed := s.states[entityID]
	now := time.Now()
	newState := &EntityState{
		EntityID:    entityID,
		State:       state,
		Attributes:  attributes,
		LastChanged: now,
		LastUpdated: now,
	}
	s.states[entityID] = newState
	if !existed {
		s.order = append(s.order, entityID)
	}
	s.statesMu.Unlock()

	s.broadcastStateChange(entityID, oldState, newState)
}

// GetState retrieves a state
func (s *MockHAServer) GetState(entityID string) *EntityState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()
	return s.states[entityID]
}

// InitializeLights seeds a small mixed set of entities
func (s *MockHAServer) InitializeLights() {
	s.SetState("light.a", "on", map[string]interface{}{
		"friendly_name": "Lamp A",
		"brightness":    float64(255),
		"color_temp":    float64(370),
		"min_mireds":    float64(153),
		"max_mireds":    float64(500),
	})
	s.SetState("switch.b", "off", map[string]interface{}{"friendly_name": "Switch B"})
	s.SetState("light.c", "off", map[string]interface{}{"friendly_name": "Lamp C"})
}

func (s *MockHAServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	wrapper := &connWrapper{conn: conn}

	s.connsMu.Lock()
	s.connections = append(s.connections, wrapper)
	mode := s.authMode
	s.connsMu.Unlock()

	defer func() {
		s.connsMu.Lock()
		for i, w := range s.connections {
			if w.conn == conn {
				s.connections = append(s.connections[:i], s.connections[i+1:]...)
				break
			}
		}
		s.connsMu.Unlock()
		conn.Close()
	}()

	wrapper.writeJSON(Message{Type: "auth_required"})

	var authMsg struct {
		Type        string `json:"type"`
		AccessToken string `json:"access_token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		return
	}

	if mode == AuthSilent {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}

	if authMsg.AccessToken != s.token {
		wrapper.writeJSON(Message{Type: "auth_invalid"})
		return
	}
	wrapper.writeJSON(Message{Type: "auth_ok"})

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		s.callsMu.Lock()
		s.requests = append(s.requests, req)
		s.callsMu.Unlock()

		switch req.Type {
		case "subscribe_events":
			s.connsMu.Lock()
			wrapper.subscribed = true
			s.connsMu.Unlock()
			s.reply(wrapper, req.ID, nil)
		case "get_states":
			s.reply(wrapper, req.ID, s.snapshot())
		case "call_service":
			s.handleCallService(wrapper, req)
		default:
			s.reply(wrapper, req.ID, nil)
		}
	}
}

func (s *MockHAServer) reply(wrapper *connWrapper, id int, result interface{}) {
	success := true
	msg := Message{ID: id, Type: "result", Success: &success}
	if result != nil {
		msg.Result, _ = json.Marshal(result)
	}
	wrapper.writeJSON(msg)
}

func (s *MockHAServer) snapshot() []*EntityState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	states := make([]*EntityState, 0, len(s.order))
	for _, id := range s.order {
		states = append(states, s.states[id])
	}
	return states
}

// handleCallService records the call and applies light services to state
func (s *MockHAServer) handleCallService(wrapper *connWrapper, req Request) {
	entityID, _ := req.Target["entity_id"].(string)

	s.callsMu.Lock()
	s.serviceCalls = append(s.serviceCalls, ServiceCall{
		Timestamp:   time.Now(),
		Domain:      req.Domain,
		Service:     req.Service,
		EntityID:    entityID,
		ServiceData: req.ServiceData,
	})
	s.callsMu.Unlock()

	// Acknowledge first, like Home Assistant: the result precedes the event
	s.reply(wrapper, req.ID, nil)

	if req.Domain != "light" || entityID == "" {
		return
	}

	old := s.GetState(entityID)
	if old == nil {
		return
	}

	attrs := make(map[string]interface{}, len(old.Attributes))
	for k, v := range old.Attributes {
		attrs[k] = v
	}

	switch req.Service {
	case "turn_off":
		s.SetState(entityID, "off", attrs)
	case "turn_on":
		for _, key := range []string{"brightness", "color_temp"} {
			if v, ok := req.ServiceData[key]; ok {
				attrs[key] = v
			}
		}
		s.SetState(entityID, "on", attrs)
	}
}

// broadcastStateChange sends a state_changed event to subscribed connections
func (s *MockHAServer) broadcastStateChange(entityID string, oldState, newState *EntityState) {
	eventData, _ := json.Marshal(StateChangedEvent{
		EntityID: entityID,
		NewState: newState,
		OldState: oldState,
	})

	msg := Message{
		Type: "event",
		Event: &Event{
			EventType: "state_changed",
			Data:      eventData,
			Origin:    "LOCAL",
			TimeFired: time.Now(),
		},
	}

	s.connsMu.Lock()
	var wrappers []*connWrapper
	for _, w := range s.connections {
		if w.subscribed {
			wrappers = append(wrappers, w)
		}
	}
	s.connsMu.Unlock()

	for _, wrapper := range wrappers {
		wrapper.writeJSON(msg)
	}
}

// Subscribers returns how many connections subscribed to events
func (s *MockHAServer) Subscribers() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	n := 0
	for _, w := range s.connections {
		if w.subscribed {
			n++
		}
	}
	return n
}

// GetServiceCalls returns all service calls since last clear
func (s *MockHAServer) GetServiceCalls() []ServiceCall {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	calls := make([]ServiceCall, len(s.serviceCalls))
	copy(calls, s.serviceCalls)
	return calls
}

// GetRequests returns every command received, in arrival order
func (s *MockHAServer) GetRequests() []Request {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	reqs := make([]Request, len(s.requests))
	copy(reqs, s.requests)
	return reqs
}

// ClearServiceCalls resets the service call and request logs
func (s *MockHAServer) ClearServiceCalls() {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	s.serviceCalls = nil
	s.requests = nil
}

// EntityIDs returns the ids of all known entities, sorted
func (s *MockHAServer) EntityIDs() []string {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()
	ids := append([]string(nil), s.order...)
	sort.Strings(ids)
	return ids
}
