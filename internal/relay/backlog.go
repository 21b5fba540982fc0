package relay

import (
	"encoding/json"
	"sync"
)

// CommandBacklog is the degraded-path command queue. Producers append;
// the single consumer drains destructively on a polling interval. Two
// simultaneous pollers would split delivery unpredictably, so exactly
// one consumer may poll the drain endpoint.
type CommandBacklog struct {
	mu    sync.Mutex
	items []json.RawMessage
}

// NewCommandBacklog creates an empty backlog.
func NewCommandBacklog() *CommandBacklog {
	return &CommandBacklog{}
}

// Append adds a raw command payload to the tail of the backlog.
func (b *CommandBacklog) Append(data json.RawMessage) {
	cp := make(json.RawMessage, len(data))
	copy(cp, data)

	b.mu.Lock()
	b.items = append(b.items, cp)
	b.mu.Unlock()
}

// Drain atomically returns all queued payloads in arrival order and
// empties the backlog.
func (b *CommandBacklog) Drain() []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = nil
	return items
}

// Len returns the number of queued payloads.
func (b *CommandBacklog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
