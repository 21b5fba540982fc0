// Package models defines the payloads for mirrored relay events.
package models

// TranscriptUpdated records an accepted transcript replacement.
type TranscriptUpdated struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Origin    string `json:"origin"` // "ws" or "http"
	SizeBytes int    `json:"sizeBytes"`
	Timestamp int64  `json:"timestamp"`
}

// CommandRelayed records a command fanned out to all connections.
type CommandRelayed struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	CommandType string `json:"commandType"`
	Origin      string `json:"origin"` // "ws" or "http"
	Timestamp   int64  `json:"timestamp"`
}
