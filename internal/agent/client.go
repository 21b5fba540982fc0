package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-relay-service/internal/agent/exec"
	"chat-relay-service/internal/observability/logging"
	"chat-relay-service/internal/relay"
	"chat-relay-service/internal/transport"
)

const (
	reconnectInitial = 1 * time.Second
	reconnectMax     = 5 * time.Second

	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// Client connects the agent to a relay. It prefers the websocket
// transport and falls back to HTTP polling for the life of the process
// when the relay's socket endpoint is unreachable at startup.
type Client struct {
	relayURL string
	driver   Driver
	executor *exec.Executor

	pushInterval time.Duration
	pollInterval time.Duration

	log zerolog.Logger

	mu         sync.Mutex
	lastPushed []byte
	dirty      bool
}

func NewClient(relayURL string, driver Driver, executor *exec.Executor, pushInterval, pollInterval time.Duration) *Client {
	c := &Client{
		relayURL:     strings.TrimRight(relayURL, "/"),
		driver:       driver,
		executor:     executor,
		pushInterval: pushInterval,
		pollInterval: pollInterval,
		log:          logging.WithComponent("agent-client"),
	}
	// Executed commands change the transcript, so force the next sync
	// even when the serialized bytes happen to match an earlier push.
	executor.SetOnExecuted(func(relay.Command) { c.MarkDirty() })
	return c
}

// MarkDirty forces the next transcript sync regardless of byte equality
// with the last pushed state.
func (c *Client) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Run blocks until ctx is cancelled. The first dial decides the
// transport: a reachable socket endpoint is used (with reconnects)
// for the rest of the process, otherwise the client polls over HTTP.
func (c *Client) Run(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		c.log.Warn().
			Err(err).
			Str("relay_url", c.relayURL).
			Msg("Socket endpoint unreachable, falling back to HTTP polling")
		return c.runPolling(ctx)
	}

	c.log.Info().Str("relay_url", c.relayURL).Msg("Connected to relay")
	return c.runSocket(ctx, conn)
}

func (c *Client) wsEndpoint() (string, error) {
	u, err := url.Parse(c.relayURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	endpoint, err := c.wsEndpoint()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	return conn, err
}

// runSocket serves one connection at a time and redials with capped
// backoff when the connection drops.
func (c *Client) runSocket(ctx context.Context, conn *websocket.Conn) error {
	backoff := reconnectInitial
	for {
		c.serve(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.log.Info().Dur("backoff", backoff).Msg("Connection lost, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < reconnectMax {
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
		}

		next, err := c.dial(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("Redial failed")
			// Reuse the closed conn path: loop again after backoff.
			continue
		}
		backoff = reconnectInitial
		conn = next
		c.log.Info().Msg("Reconnected to relay")
	}
}

// serve runs the read and push loops for a single connection and
// returns when either side fails or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		c.pushLoop(connCtx, conn)
	}()

	c.readLoop(connCtx, conn)
}

// readLoop consumes relayed envelopes. Only command events matter to
// the agent; everything else on the wire is for web clients.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env transport.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("Read failed")
			}
			return
		}
		if env.Event != transport.EventCommand {
			continue
		}

		cmd, err := relay.ParseCommand(env.Data)
		if err != nil {
			c.log.Warn().Err(err).Msg("Malformed command payload, ignoring")
			continue
		}
		c.executor.Enqueue(cmd)
	}
}

// pushLoop is the only writer on the connection.
func (c *Client) pushLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, changed, err := c.transcriptIfChanged()
			if err != nil {
				c.log.Error().Err(err).Msg("Transcript export failed")
				continue
			}
			if !changed {
				continue
			}

			env := transport.Envelope{Event: transport.EventChatUpdate, Data: payload}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(env); err != nil {
				c.log.Warn().Err(err).Msg("Transcript push failed")
				return
			}
			c.markPushed(payload)
		}
	}
}

// transcriptIfChanged serializes the driver transcript and reports
// whether it differs from the last successfully pushed state.
func (c *Client) transcriptIfChanged() (json.RawMessage, bool, error) {
	payload, err := c.driver.Transcript()
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty && bytes.Equal(payload, c.lastPushed) {
		return nil, false, nil
	}
	return payload, true, nil
}

func (c *Client) markPushed(payload json.RawMessage) {
	c.mu.Lock()
	c.lastPushed = append([]byte(nil), payload...)
	c.dirty = false
	c.mu.Unlock()
}
