// Package relay holds the coordination state for a shared chat session:
// the authoritative transcript, the participant roster, and the
// degraded-path command backlog. All state is mutex-guarded; callers on
// any goroutine see non-interleaved operations.
package relay

import "encoding/json"

// DefaultCommandType is assigned to commands that arrive without a type.
const DefaultCommandType = "message"

// Command is an opaque control command. The relay never validates its
// shape; only the consumer interprets payload fields.
type Command map[string]any

// ParseCommand decodes a raw JSON object into a Command.
func ParseCommand(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// Type returns the normalized command type, defaulting to "message"
// when the type field is absent or empty.
func (c Command) Type() string {
	if t, ok := c["type"].(string); ok && t != "" {
		return t
	}
	return DefaultCommandType
}

// String returns the string value under key, or "" when absent or not a
// string.
func (c Command) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Int returns the integer value under key. JSON numbers decode as
// float64, so both representations are accepted.
func (c Command) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// CommandType extracts the normalized type from a raw command payload
// without decoding the full object. Undecodable payloads normalize to
// the default type, matching the accept-anything relay contract.
func CommandType(data []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Type == "" {
		return DefaultCommandType
	}
	return probe.Type
}
