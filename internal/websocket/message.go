package websocket

import (
	"encoding/json"
	"time"

	"fieldops-server/internal/domain"
)

type MessageType string

const (
	TypeDayUpdate        MessageType = "day_update"
	TypeAssignmentUpdate MessageType = "assignment_update"
	TypeAssignmentDelete MessageType = "assignment_delete"
	TypePing             MessageType = "ping"
	TypePong             MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Origin in the payloads below is the client id of the session that caused
// the change. That session does not receive the message.

type DayUpdatePayload struct {
	Day    *domain.CalendarDay `json:"day"`
	Origin string              `json:"origin,omitempty"`
}

type AssignmentUpdatePayload struct {
	Assignment *domain.Assignment `json:"assignment"`
	Origin     string             `json:"origin,omitempty"`
}

type AssignmentDeletePayload struct {
	ID     string `json:"id"`
	Origin string `json:"origin,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
