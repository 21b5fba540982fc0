// Package transport implements the persistent bidirectional channel:
// one WebSocket session per participant carrying named events in both
// directions, fanned out by a hub that owns all shared relay state.
package transport

import "encoding/json"

// Wire event names. Existing clients depend on these exact strings.
const (
	EventChatUpdate  = "chat-update"
	EventCommand     = "command"
	EventCommandAck  = "command-ack"
	EventHeartbeat   = "heartbeat"
	EventOnlineUsers = "online-users"
	EventTyping      = "typing"
	EventUserTyping  = "user-typing"
)

// Envelope is the JSON frame exchanged over a session.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope builds an envelope from a marshalable payload.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// identityPayload carries the participant name on heartbeat, typing and
// user-typing events.
type identityPayload struct {
	Name string `json:"name"`
}

// ackPayload carries the normalized command type back to the submitter.
type ackPayload struct {
	Type string `json:"type"`
}

func unmarshalPayload(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
