package transport

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-relay-service/internal/observability/logging"
)

// sendBufferSize bounds the per-session outbound queue. A session that
// cannot drain this many pending pushes is considered slow and loses
// messages rather than stalling the hub; reconnect-and-resync restores
// convergence.
const sendBufferSize = 64

// Session is one transport-level connection. It may claim at most one
// participant identity via heartbeat; closing the session cascades to
// removal of that identity from the roster.
type Session struct {
	id   string
	conn *websocket.Conn
	send chan Envelope
	log  zerolog.Logger

	mu     sync.Mutex
	name   string
	closed bool
}

func newSession(conn *websocket.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		id:   id,
		conn: conn,
		send: make(chan Envelope, sendBufferSize),
		log:  logging.WithSession(id),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// claim records the identity reported by the most recent heartbeat.
func (s *Session) claim(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// claimedName returns the identity this session last reported, or "".
func (s *Session) claimedName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// enqueue offers an envelope to the session's outbound queue without
// blocking. Returns false when the session is closed or the buffer is
// full and the push was dropped. The mutex serializes enqueue against
// shutdown, so a hub goroutine holding a stale session list can never
// send on the closed channel.
func (s *Session) enqueue(env Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- env:
		return true
	default:
		return false
	}
}

// shutdown closes the outbound queue exactly once and tears down the
// connection. Safe to call concurrently with enqueue.
func (s *Session) shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
	s.conn.Close()
}

// writePump drains the outbound queue onto the wire. It exits when the
// hub closes the send channel during unregister. An envelope that fails
// to encode is skipped; only a transport write failure ends the pump.
func (s *Session) writePump() {
	for env := range s.send {
		payload, err := json.Marshal(env)
		if err != nil {
			s.log.Warn().Err(err).Str("event", env.Event).Msg("skipping unencodable frame")
			continue
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.log.Debug().Err(err).Msg("write failed")
			return
		}
	}
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump reads inbound frames and hands them to the hub until the
// connection errors out, then unregisters the session.
func (s *Session) readPump(h *Hub) {
	defer h.unregister(s)
	for {
		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			s.log.Debug().Err(err).Msg("read loop ended")
			return
		}
		h.dispatch(s, env)
	}
}
