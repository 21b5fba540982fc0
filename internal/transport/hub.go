package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-relay-service/internal/events"
	"chat-relay-service/internal/models"
	"chat-relay-service/internal/observability/logging"
	"chat-relay-service/internal/observability/metrics"
	"chat-relay-service/internal/relay"
)

// Origins recorded on mirrored events.
const (
	originWS   = "ws"
	originHTTP = "http"
)

// Clients connect cross-origin from arbitrary hosts; the relay is
// deliberately unauthenticated, so the upgrader accepts any origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub owns the set of live sessions and funnels every access to the
// shared transcript, roster and command fanout through its methods, so
// handler effects never interleave.
type Hub struct {
	transcript *relay.TranscriptStore
	presence   *relay.PresenceTracker
	publisher  *events.Publisher
	metrics    *metrics.Metrics
	log        zerolog.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// NewHub creates a hub over the given relay state.
func NewHub(transcript *relay.TranscriptStore, presence *relay.PresenceTracker, publisher *events.Publisher, m *metrics.Metrics) *Hub {
	return &Hub{
		transcript: transcript,
		presence:   presence,
		publisher:  publisher,
		metrics:    m,
		log:        logging.WithComponent("hub"),
		sessions:   make(map[*Session]struct{}),
	}
}

// HandleWS upgrades the request and runs the session until it closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}

	s := newSession(conn)
	h.register(s)

	// Blocks until the connection drops; unregister happens inside.
	s.readPump(h)
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()

	h.metrics.RecordConnection()
	s.log.Info().Msg("connected")

	go s.writePump()

	// The newcomer gets the current transcript as a welcome snapshot,
	// then everyone gets a fresh roster.
	s.enqueue(Envelope{Event: EventChatUpdate, Data: h.transcript.Snapshot()})
	h.BroadcastRoster()
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	if ok {
		delete(h.sessions, s)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	s.shutdown()
	h.metrics.RecordDisconnection()
	s.log.Info().Msg("disconnected")

	// Presence removal is keyed by the identity the session last
	// reported, matching disconnect semantics of the wire contract.
	if name := s.claimedName(); name != "" {
		h.presence.Drop(name)
		h.BroadcastRoster()
	}
}

// dispatch handles one inbound frame. Unknown events and malformed
// payloads are ignored; nothing here surfaces an error to any client.
func (h *Hub) dispatch(s *Session, env Envelope) {
	switch env.Event {
	case EventChatUpdate:
		h.handleChatUpdate(s, env)
	case EventCommand:
		h.handleCommand(s, env)
	case EventHeartbeat:
		h.handleHeartbeat(s, env)
	case EventTyping:
		h.handleTyping(s, env)
	default:
		s.log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
	}
}

func (h *Hub) handleChatUpdate(s *Session, env Envelope) {
	if !json.Valid(env.Data) {
		s.log.Debug().Msg("ignoring undecodable transcript")
		return
	}
	h.transcript.Replace(env.Data)
	h.metrics.RecordTranscriptReplace(h.transcript.Size())

	// Rebroadcast to everyone except the producer; echoing the delta
	// back would loop it straight into the sender's own push cycle.
	h.broadcastExcept(s, Envelope{Event: EventChatUpdate, Data: h.transcript.Snapshot()})

	h.mirrorTranscript(s.ID(), originWS, len(env.Data))
}

func (h *Hub) handleCommand(s *Session, env Envelope) {
	cmdType := relay.CommandType(env.Data)
	s.log.Info().Str("commandType", cmdType).Msg("command")

	// Broadcast to all connections, submitter included: the consumer
	// role is not distinguished at this layer, so it self-filters.
	h.broadcast(Envelope{Event: EventCommand, Data: env.Data})
	h.metrics.RecordCommand(cmdType)

	// Ack confirms relay receipt only, never execution.
	if ack, err := NewEnvelope(EventCommandAck, ackPayload{Type: cmdType}); err == nil {
		if !s.enqueue(ack) {
			h.metrics.SendsDropped.Inc()
		}
	}

	h.mirrorCommand(s.ID(), cmdType, originWS)
}

func (h *Hub) handleHeartbeat(s *Session, env Envelope) {
	var payload identityPayload
	if err := unmarshalPayload(env.Data, &payload); err != nil || payload.Name == "" {
		return
	}

	s.claim(payload.Name)
	h.presence.Heartbeat(payload.Name)
	h.BroadcastRoster()
}

func (h *Hub) handleTyping(s *Session, env Envelope) {
	var payload identityPayload
	if err := unmarshalPayload(env.Data, &payload); err != nil || payload.Name == "" {
		return
	}

	if out, err := NewEnvelope(EventUserTyping, payload); err == nil {
		h.broadcastExcept(s, out)
	}
}

// BroadcastRoster sweeps the roster and pushes it to every session. The
// sweep-before-broadcast guarantees a roster push never contains an
// identity that has already gone stale.
func (h *Hub) BroadcastRoster() {
	roster := h.presence.Active()
	h.metrics.ParticipantsActive.Set(float64(len(roster)))

	env, err := NewEnvelope(EventOnlineUsers, roster)
	if err != nil {
		h.log.Error().Err(err).Msg("roster marshal failed")
		return
	}
	h.broadcast(env)
}

// ReplaceTranscript applies a degraded-path transcript replacement and
// pushes the result to every connection, the HTTP producer having no
// session to except. Bodies that are not valid JSON are ignored; a
// poisoned value here would fail to encode on every subsequent push.
func (h *Hub) ReplaceTranscript(data []byte) {
	if !json.Valid(data) {
		h.log.Debug().Msg("ignoring undecodable transcript")
		return
	}
	h.transcript.Replace(data)
	h.metrics.RecordTranscriptReplace(h.transcript.Size())
	h.broadcast(Envelope{Event: EventChatUpdate, Data: h.transcript.Snapshot()})
	h.mirrorTranscript("", originHTTP, len(data))
}

// MirrorQueuedCommand records a degraded-path backlog append.
func (h *Hub) MirrorQueuedCommand(data []byte) {
	h.mirrorCommand("", relay.CommandType(data), originHTTP)
}

// StartSweep runs the periodic staleness sweep until ctx is done. Each
// tick rebroadcasts the roster whether or not anything expired, so
// clients converge even after missed pushes.
func (h *Hub) StartSweep(ctx context.Context) {
	interval := h.presence.Timeout()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if expired := h.presence.Sweep(); expired > 0 {
					h.metrics.PresenceExpired.Add(float64(expired))
					h.log.Info().Int("expired", expired).Msg("presence sweep")
				}
				h.BroadcastRoster()
			}
		}
	}()
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) broadcast(env Envelope) {
	h.metrics.RecordBroadcast(env.Event)
	for _, s := range h.sessionList() {
		if !s.enqueue(env) {
			h.metrics.SendsDropped.Inc()
		}
	}
}

func (h *Hub) broadcastExcept(except *Session, env Envelope) {
	h.metrics.RecordBroadcast(env.Event)
	for _, s := range h.sessionList() {
		if s == except {
			continue
		}
		if !s.enqueue(env) {
			h.metrics.SendsDropped.Inc()
		}
	}
}

func (h *Hub) sessionList() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		list = append(list, s)
	}
	return list
}

func (h *Hub) mirrorTranscript(sessionID, origin string, size int) {
	ev := models.TranscriptUpdated{
		EventType: "chat.transcript.updated",
		SessionID: sessionID,
		Origin:    origin,
		SizeBytes: size,
		Timestamp: time.Now().UnixMilli(),
	}
	go h.publisher.PublishTranscript(context.Background(), sessionID, ev)
}

func (h *Hub) mirrorCommand(sessionID, cmdType, origin string) {
	ev := models.CommandRelayed{
		EventType:   "chat.command.relayed",
		SessionID:   sessionID,
		CommandType: cmdType,
		Origin:      origin,
		Timestamp:   time.Now().UnixMilli(),
	}
	go h.publisher.PublishCommand(context.Background(), sessionID, ev)
}
