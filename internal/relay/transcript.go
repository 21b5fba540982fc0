package relay

import (
	"encoding/json"
	"sync"
)

// TranscriptStore holds the single authoritative chat transcript. The
// transcript is an opaque last-writer-wins blob: any accepted write
// fully replaces it, and concurrent writers must tolerate their update
// being silently superseded.
type TranscriptStore struct {
	mu   sync.RWMutex
	data json.RawMessage
}

// NewTranscriptStore creates a store holding an empty transcript.
func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{data: json.RawMessage("[]")}
}

// Replace overwrites the stored transcript. The bytes are copied so the
// caller may reuse its buffer.
func (s *TranscriptStore) Replace(data json.RawMessage) {
	cp := make(json.RawMessage, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.data = cp
	s.mu.Unlock()
}

// Snapshot returns the current transcript. The returned slice must be
// treated as read-only.
func (s *TranscriptStore) Snapshot() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Size returns the byte length of the current transcript.
func (s *TranscriptStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
