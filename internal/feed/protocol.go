// Package feed maintains the live-update connection to the upstream ops
// feed: one websocket, automatic reconnection with capped backoff,
// application-level keepalive, and typed dispatch of inbound messages
// onto a publish/subscribe bus.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/washdeck/backend/internal/model"
)

// MessageType tags messages on the feed wire.
type MessageType string

const (
	MsgTaskUpdate       MessageType = "task_update"
	MsgCrewUpdate       MessageType = "crew_update"
	MsgEmergencyUpdate  MessageType = "emergency_update"
	MsgHappyScoreUpdate MessageType = "happy_score_update"
	MsgPing             MessageType = "ping"
	MsgPong             MessageType = "pong"
)

// Message is the wire envelope. Payload and Timestamp are optional;
// unknown Type values are ignored by the receiver, never an error.
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// TaskUpdatePayload announces a task being created, assigned, or
// completed.
type TaskUpdatePayload struct {
	Action string             `json:"action"`
	Task   model.CleaningTask `json:"task"`
}

// CrewUpdatePayload carries a crew member's new state.
type CrewUpdatePayload struct {
	Crew model.CrewMember `json:"crew"`
}

// EmergencyUpdatePayload announces an emergency at a washroom, with the
// response task attached once dispatch has raised one.
type EmergencyUpdatePayload struct {
	WashroomID  string              `json:"washroom_id"`
	Severity    int                 `json:"severity"`
	Description string              `json:"description"`
	Task        *model.CleaningTask `json:"task,omitempty"`
}

// HappyScoreUpdatePayload carries a fresh feedback-kiosk sample.
type HappyScoreUpdatePayload struct {
	Sample model.ScoreSample `json:"sample"`
}

// TaskUpdate decodes the payload of a task_update message.
func (m Message) TaskUpdate() (TaskUpdatePayload, error) {
	var p TaskUpdatePayload
	if err := m.decode(MsgTaskUpdate, &p); err != nil {
		return TaskUpdatePayload{}, err
	}
	return p, nil
}

// CrewUpdate decodes the payload of a crew_update message.
func (m Message) CrewUpdate() (CrewUpdatePayload, error) {
	var p CrewUpdatePayload
	if err := m.decode(MsgCrewUpdate, &p); err != nil {
		return CrewUpdatePayload{}, err
	}
	return p, nil
}

// EmergencyUpdate decodes the payload of an emergency_update message.
func (m Message) EmergencyUpdate() (EmergencyUpdatePayload, error) {
	var p EmergencyUpdatePayload
	if err := m.decode(MsgEmergencyUpdate, &p); err != nil {
		return EmergencyUpdatePayload{}, err
	}
	return p, nil
}

// HappyScoreUpdate decodes the payload of a happy_score_update message.
func (m Message) HappyScoreUpdate() (HappyScoreUpdatePayload, error) {
	var p HappyScoreUpdatePayload
	if err := m.decode(MsgHappyScoreUpdate, &p); err != nil {
		return HappyScoreUpdatePayload{}, err
	}
	return p, nil
}

func (m Message) decode(want MessageType, v any) error {
	if m.Type != want {
		return fmt.Errorf("message type %q, want %q", m.Type, want)
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	return json.Unmarshal(m.Payload, v)
}

// State is the connection manager's externally observable condition.
// Transitions are the only way consumers learn connectivity changed.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"

	// StateError is a transient substate entered on a transport error,
	// immediately followed by disconnected and the reconnection path.
	StateError State = "error"
)
