package ha

import (
	"encoding/json"
	"time"
)

// Message types exchanged with Home Assistant
const (
	TypeAuthRequired    = "auth_required"
	TypeAuth            = "auth"
	TypeAuthOK          = "auth_ok"
	TypeAuthInvalid     = "auth_invalid"
	TypeResult          = "result"
	TypeEvent           = "event"
	TypeGetStates       = "get_states"
	TypeSubscribeEvents = "subscribe_events"
	TypeCallService     = "call_service"

	EventStateChanged = "state_changed"
)

// Message represents a base WebSocket message from Home Assistant
type Message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	Event   *Event          `json:"event,omitempty"`
	Message string          `json:"message,omitempty"`
}

// IsResult reports whether the message answers a command
func (m *Message) IsResult() bool {
	return m.Type == TypeResult
}

// IsEvent reports whether the message is a server push
func (m *Message) IsEvent() bool {
	return m.Type == TypeEvent && m.Event != nil
}

// Succeeded reports whether a result message carries success=true
func (m *Message) Succeeded() bool {
	return m.IsResult() && m.Success != nil && *m.Success
}

// States decodes the result payload of a get_states response
func (m *Message) States() ([]*State, error) {
	var states []*State
	if len(m.Result) == 0 {
		return states, nil
	}
	if err := json.Unmarshal(m.Result, &states); err != nil {
		return nil, err
	}
	return states, nil
}

// StateChanged decodes a state_changed event. ok is false for any other
// message shape.
func (m *Message) StateChanged() (*StateChangedEvent, bool) {
	if !m.IsEvent() || m.Event.EventType != EventStateChanged {
		return nil, false
	}
	var data StateChangedEvent
	if err := json.Unmarshal(m.Event.Data, &data); err != nil {
		return nil, false
	}
	return &data, true
}

// Error represents an error response from Home Assistant
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthMessage represents authentication request
type AuthMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}

// Event represents an event message from Home Assistant
type Event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Origin    string          `json:"origin,omitempty"`
	TimeFired time.Time       `json:"time_fired,omitempty"`
}

// StateChangedEvent represents a state_changed event
type StateChangedEvent struct {
	EntityID string `json:"entity_id"`
	NewState *State `json:"new_state"`
	OldState *State `json:"old_state"`
}

// State represents an entity state
type State struct {
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes"`
	LastChanged time.Time              `json:"last_changed,omitempty"`
	LastUpdated time.Time              `json:"last_updated,omitempty"`
}

// FriendlyName returns the display name, falling back to the entity id
func (s *State) FriendlyName() string {
	if name, ok := s.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	return s.EntityID
}

// Number returns a numeric attribute. JSON numbers decode as float64.
func (s *State) Number(attr string) (float64, bool) {
	switch v := s.Attributes[attr].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Command is an outbound message that carries a correlation id
type Command interface {
	setID(id int)
}

// GetStatesRequest represents a get_states request
type GetStatesRequest struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

func (r *GetStatesRequest) setID(id int) { r.ID = id }

// NewGetStates builds a snapshot request
func NewGetStates() *GetStatesRequest {
	return &GetStatesRequest{Type: TypeGetStates}
}

// SubscribeEventsRequest represents a subscribe_events request
type SubscribeEventsRequest struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	EventType string `json:"event_type,omitempty"`
}

func (r *SubscribeEventsRequest) setID(id int) { r.ID = id }

// NewSubscribeEvents builds a subscription request for one event type
func NewSubscribeEvents(eventType string) *SubscribeEventsRequest {
	return &SubscribeEventsRequest{Type: TypeSubscribeEvents, EventType: eventType}
}

// CallServiceRequest represents a call_service request
type CallServiceRequest struct {
	ID          int                    `json:"id"`
	Type        string                 `json:"type"`
	Domain      string                 `json:"domain"`
	Service     string                 `json:"service"`
	Target      *ServiceTarget         `json:"target,omitempty"`
	ServiceData map[string]interface{} `json:"service_data,omitempty"`
}

func (r *CallServiceRequest) setID(id int) { r.ID = id }

// NewCallService builds a service call targeted at a single entity
func NewCallService(domain, service, entityID string, data map[string]interface{}) *CallServiceRequest {
	return &CallServiceRequest{
		Type:        TypeCallService,
		Domain:      domain,
		Service:     service,
		Target:      &ServiceTarget{EntityID: entityID},
		ServiceData: data,
	}
}

// ServiceTarget represents service call target
type ServiceTarget struct {
	EntityID string `json:"entity_id,omitempty"`
}
