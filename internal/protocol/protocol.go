// Package protocol defines the WebSocket messages exchanged with the local API.
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeStart asks the engine to start a setup
	TypeStart MessageType = "start"

	// TypeStop asks the engine to stop
	TypeStop MessageType = "stop"

	// TypeToggle asks the engine to toggle a setup
	TypeToggle MessageType = "toggle"

	// TypeDrag updates the drag vector of a running MouseHold action
	TypeDrag MessageType = "drag"

	// TypeStatus carries an engine status snapshot; clients send it empty to request one
	TypeStatus MessageType = "status"

	// TypeActionStopped is broadcast when an action ends on its own
	TypeActionStopped MessageType = "action-stopped"

	// TypeError reports a failed client request
	TypeError MessageType = "error"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds a message with an encoded payload. A nil payload is omitted.
func NewMessage(t MessageType, payload interface{}) (Message, error) {
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v
func (m Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// SetupPayload is the payload for TypeStart and TypeToggle
type SetupPayload struct {
	Setup string `json:"setup"`
}

// DragPayload is the payload for TypeDrag
type DragPayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// ActionStoppedPayload is the payload for TypeActionStopped
type ActionStoppedPayload struct {
	Setup  string `json:"setup"`
	Mode   string `json:"mode"`
	Reason string `json:"reason"` // "completed" or "failed"
	Ticks  uint64 `json:"ticks"`
	Error  string `json:"error,omitempty"`
}

// StatusPayload is the payload for TypeStatus
type StatusPayload struct {
	Running     bool   `json:"running"`
	Setup       string `json:"setup,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Ticks       uint64 `json:"ticks"`
	FailedTicks uint64 `json:"failed_ticks"`
	LastError   string `json:"last_error,omitempty"`
}

// ErrorPayload is the payload for TypeError
type ErrorPayload struct {
	Request MessageType `json:"request"`
	Message string      `json:"message"`
}
