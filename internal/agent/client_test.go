package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay-service/internal/agent/exec"
	"chat-relay-service/internal/agent/mock"
	"chat-relay-service/internal/transport"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func testSettle() exec.Settle {
	return exec.Settle{
		Message: 20 * time.Millisecond,
		Default: 5 * time.Millisecond,
	}
}

// fakeRelay is a minimal socket endpoint: it records every envelope the
// agent pushes and lets tests inject events toward the agent.
type fakeRelay struct {
	t *testing.T

	mu       sync.Mutex
	conn     *websocket.Conn
	received []transport.Envelope

	connected chan struct{}
}

func newFakeRelay(t *testing.T) (*fakeRelay, *httptest.Server) {
	f := &fakeRelay{t: t, connected: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.handle)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRelay) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade failed: %v", err)
		return
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	close(f.connected)

	for {
		var env transport.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		f.mu.Lock()
		f.received = append(f.received, env)
		f.mu.Unlock()
	}
}

func (f *fakeRelay) send(t *testing.T, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		t.Fatal("no agent connection")
	}
	if err := conn.WriteJSON(transport.Envelope{Event: event, Data: raw}); err != nil {
		t.Fatalf("write envelope: %v", err)
	}
}

func (f *fakeRelay) envelopes() []transport.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Envelope, len(f.received))
	copy(out, f.received)
	return out
}

func (f *fakeRelay) waitForConnection(t *testing.T) {
	t.Helper()
	select {
	case <-f.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("agent never connected")
	}
}

func startClient(t *testing.T, relayURL string, driver Driver) (*Client, *exec.Executor) {
	t.Helper()
	executor := exec.New(driver, testSettle())
	client := NewClient(relayURL, driver, executor, 20*time.Millisecond, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go client.Run(ctx)
	return client, executor
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestClient_ExecutesRelayedCommands(t *testing.T) {
	relay, srv := newFakeRelay(t)
	driver := mock.New()
	startClient(t, srv.URL, driver)
	relay.waitForConnection(t)

	relay.send(t, transport.EventCommand, map[string]any{"type": "swipe", "direction": "left"})
	relay.send(t, transport.EventCommand, map[string]any{"name": "Alice", "message": "hello"})

	waitFor(t, 2*time.Second, func() bool { return len(driver.Calls()) == 2 },
		"commands never reached the driver")

	calls := driver.Calls()
	if calls[0].Method != "Swipe" || calls[0].Direction != "left" {
		t.Errorf("unexpected first call: %+v", calls[0])
	}
	if calls[1].Method != "SendMessage" || calls[1].Name != "Alice" {
		t.Errorf("unexpected second call: %+v", calls[1])
	}
}

func TestClient_IgnoresNonCommandEvents(t *testing.T) {
	relay, srv := newFakeRelay(t)
	driver := mock.New()
	startClient(t, srv.URL, driver)
	relay.waitForConnection(t)

	relay.send(t, transport.EventChatUpdate, []map[string]any{{"name": "Bob", "mes": "hi"}})
	relay.send(t, transport.EventUserTyping, map[string]any{"name": "Bob"})
	relay.send(t, transport.EventOnlineUsers, []string{"Bob"})

	time.Sleep(100 * time.Millisecond)
	if got := len(driver.Calls()); got != 0 {
		t.Errorf("expected no driver calls, got %d", got)
	}
}

func TestClient_PushesTranscriptAfterExecution(t *testing.T) {
	relay, srv := newFakeRelay(t)
	driver := mock.New()
	startClient(t, srv.URL, driver)
	relay.waitForConnection(t)

	relay.send(t, transport.EventCommand, map[string]any{"name": "Alice", "message": "hello"})

	waitFor(t, 2*time.Second, func() bool {
		for _, env := range relay.envelopes() {
			if env.Event == transport.EventChatUpdate {
				return true
			}
		}
		return false
	}, "transcript was never pushed")

	var pushed transport.Envelope
	for _, env := range relay.envelopes() {
		if env.Event == transport.EventChatUpdate {
			pushed = env
		}
	}
	if !strings.Contains(string(pushed.Data), `"hello"`) {
		t.Errorf("pushed transcript missing executed message: %s", pushed.Data)
	}
}

func TestClient_DoesNotRepushUnchangedTranscript(t *testing.T) {
	relay, srv := newFakeRelay(t)
	driver := mock.New()
	startClient(t, srv.URL, driver)
	relay.waitForConnection(t)

	relay.send(t, transport.EventCommand, map[string]any{"name": "Alice", "message": "once"})

	waitFor(t, 2*time.Second, func() bool {
		return countChatUpdates(relay.envelopes()) >= 1
	}, "transcript was never pushed")

	// Several push intervals with no new activity must not add pushes.
	before := countChatUpdates(relay.envelopes())
	time.Sleep(150 * time.Millisecond)
	after := countChatUpdates(relay.envelopes())

	if after != before {
		t.Errorf("expected no re-push of unchanged transcript, got %d -> %d", before, after)
	}
}

func countChatUpdates(envs []transport.Envelope) int {
	n := 0
	for _, env := range envs {
		if env.Event == transport.EventChatUpdate {
			n++
		}
	}
	return n
}

func TestClient_WSEndpointDerivation(t *testing.T) {
	tests := []struct {
		relayURL string
		want     string
	}{
		{"http://localhost:3000", "ws://localhost:3000/ws"},
		{"http://localhost:3000/", "ws://localhost:3000/ws"},
		{"https://relay.example.com", "wss://relay.example.com/ws"},
		{"http://relay.example.com/base", "ws://relay.example.com/base/ws"},
	}

	for _, tt := range tests {
		c := &Client{relayURL: strings.TrimRight(tt.relayURL, "/")}
		got, err := c.wsEndpoint()
		if err != nil {
			t.Errorf("wsEndpoint(%s): %v", tt.relayURL, err)
			continue
		}
		if got != tt.want {
			t.Errorf("wsEndpoint(%s) = %s, want %s", tt.relayURL, got, tt.want)
		}
	}
}
