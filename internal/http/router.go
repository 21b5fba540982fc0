// Package http provides the relay's HTTP surface: the WebSocket mount
// and the degraded-path polling endpoints.
package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"chat-relay-service/internal/observability/metrics"
	"chat-relay-service/internal/relay"
	"chat-relay-service/internal/transport"
)

// NewRouter constructs the HTTP router for the relay. Every endpoint is
// intentionally unauthenticated and content-agnostic: bodies are opaque
// up to the size ceiling and no schema validation happens here.
func NewRouter(hub *transport.Hub, store *relay.TranscriptStore, backlog *relay.CommandBacklog, maxBodyBytes int64, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsHeaders)

	// Health endpoint for the relay listener itself
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Primary transport
	r.Get("/ws", hub.HandleWS)

	// Degraded path: request/response equivalents of the push events,
	// at lower freshness.
	r.Post("/set-chat", func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r, maxBodyBytes)
		if !ok {
			return
		}
		hub.ReplaceTranscript(body)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/get-chat", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(store.Snapshot())
	})

	r.Post("/queue-message", func(w http.ResponseWriter, r *http.Request) {
		body, ok := readBody(w, r, maxBodyBytes)
		if !ok {
			return
		}
		// A non-JSON command would break the drain response marshal.
		if !json.Valid(body) {
			m.CommandsDropped.Inc()
			_, _ = w.Write([]byte("ok"))
			return
		}
		backlog.Append(body)
		m.BacklogEnqueued.Inc()
		m.BacklogDepth.Set(float64(backlog.Len()))
		hub.MirrorQueuedCommand(body)
		_, _ = w.Write([]byte("ok"))
	})

	// Destructive read: the backlog empties atomically, so at most one
	// consumer may poll this endpoint.
	r.Get("/queued-messages", func(w http.ResponseWriter, _ *http.Request) {
		items := backlog.Drain()
		if items == nil {
			items = []json.RawMessage{}
		}
		m.BacklogDrained.Add(float64(len(items)))
		m.BacklogDepth.Set(0)

		w.Header().Set("Content-Type", "application/json")
		payload, err := json.Marshal(items)
		if err != nil {
			log.Error().Err(err).Msg("backlog marshal failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(payload)
	})

	return r
}

// readBody reads the request body up to the ceiling. A body over the
// limit is the one malformed input this surface rejects.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("body read failed")
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return body, true
}

// corsHeaders mirrors the permissive cross-origin policy of the wire
// contract: any web client may talk to the relay directly.
func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, PUT")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
