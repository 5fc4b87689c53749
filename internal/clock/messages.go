package clock

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MessageType names a request sent from the popup to the timer service
type MessageType string

const (
	MsgGetState         MessageType = "GET_STATE"
	MsgSetCustom        MessageType = "SET_CUSTOM"
	MsgSetSound         MessageType = "SET_SOUND"
	MsgSetNotifications MessageType = "SET_NOTIFICATIONS"
	MsgPlaySound        MessageType = "PLAY_SOUND"
	MsgStart            MessageType = "START"
	MsgPause            MessageType = "PAUSE"
	MsgResume           MessageType = "RESUME"
	MsgReset            MessageType = "RESET"
)

// TogglePayload carries the enabled flag of SET_SOUND and SET_NOTIFICATIONS
type TogglePayload struct {
	Enabled bool `json:"enabled"`
}

// Message is one request on the wire. Payload is decoded lazily because its
// shape depends on Type.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Mode    *TimerMode      `json:"mode,omitempty"`
}

// Response wraps the state returned for every message except PLAY_SOUND
type Response struct {
	State TimerState `json:"state"`
}

// NewMessage builds a message, encoding payload when it is not nil
func NewMessage(msgType MessageType, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return msg, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	msg.Payload = raw
	return msg, nil
}

// HasPayload reports whether the message carries a payload. A JSON null
// counts as no payload.
func (m Message) HasPayload() bool {
	trimmed := bytes.TrimSpace(m.Payload)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Durations decodes the {work, break} payload of SET_CUSTOM and START
func (m Message) Durations() (TimerDurations, error) {
	var payload struct {
		Work  float64 `json:"work"`
		Break float64 `json:"break"`
	}
	if !m.HasPayload() {
		return TimerDurations{}, fmt.Errorf("%s requires a durations payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return TimerDurations{}, fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return TimerDurations{
		Work:  ClampMinutes(payload.Work),
		Break: ClampMinutes(payload.Break),
	}, nil
}

// Toggle decodes the {enabled} payload of SET_SOUND and SET_NOTIFICATIONS
func (m Message) Toggle() (TogglePayload, error) {
	var payload TogglePayload
	if !m.HasPayload() {
		return payload, fmt.Errorf("%s requires an enabled payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return payload, nil
}
