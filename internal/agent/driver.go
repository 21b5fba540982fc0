// Package agent keeps one automated chat instance synchronized with the
// relay: it executes relayed commands through a driver and pushes the
// driver's transcript back upstream.
package agent

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chat-relay-service/internal/agent/exec"
	"chat-relay-service/internal/observability/logging"
)

// TranscriptSource exposes the driver's current chat transcript as the
// opaque JSON array the relay expects.
type TranscriptSource interface {
	Transcript() (json.RawMessage, error)
}

// Driver is the full surface the agent needs from a chat backend:
// command execution plus transcript export.
type Driver interface {
	exec.Driver
	TranscriptSource
}

// LogDriver is the default backend. It records an in-memory transcript
// and logs every command instead of driving a real chat application,
// which makes the agent runnable against any relay without a UI.
type LogDriver struct {
	mu   sync.Mutex
	chat []map[string]any
	log  zerolog.Logger
}

func NewLogDriver() *LogDriver {
	return &LogDriver{
		log: logging.WithComponent("log-driver"),
	}
}

func (d *LogDriver) SendMessage(name, message string) error {
	d.mu.Lock()
	d.chat = append(d.chat, map[string]any{"name": name, "mes": message})
	d.mu.Unlock()

	d.log.Info().
		Str("name", name).
		Int("length", len(message)).
		Msg("Message appended")
	return nil
}

func (d *LogDriver) Swipe(direction string) error {
	d.log.Info().Str("direction", direction).Msg("Swipe requested")
	return nil
}

func (d *LogDriver) Regenerate() error {
	d.log.Info().Msg("Regenerate requested")
	return nil
}

func (d *LogDriver) Edit(index int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.chat) {
		d.log.Warn().Int("index", index).Msg("Edit index out of range, ignoring")
		return nil
	}
	d.chat[index]["mes"] = text

	d.log.Info().Int("index", index).Msg("Message edited")
	return nil
}

func (d *LogDriver) Transcript() (json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.chat) == 0 {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(d.chat)
}
