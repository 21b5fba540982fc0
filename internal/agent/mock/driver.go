// Package mock provides a recording driver for testing the agent
// without a real chat application. It keeps a small in-memory chat that
// commands mutate, so transcript pushes can be exercised end to end.
package mock

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Call records a single driver invocation.
type Call struct {
	Method    string
	Name      string
	Message   string
	Direction string
	Index     int
	Text      string
	At        time.Time
}

// Driver implements the executor's Driver contract plus the agent's
// TranscriptSource. Every call is recorded; overlap between calls is
// detected so tests can assert single-flight execution.
type Driver struct {
	mu         sync.Mutex
	calls      []Call
	chat       []map[string]any
	callDelay  time.Duration
	inFlight   bool
	overlapped bool
	failMethod string
}

// New creates an empty mock driver.
func New() *Driver {
	return &Driver{}
}

// SetCallDelay makes every call take at least d, widening the window in
// which an overlapping execution would be caught.
func (d *Driver) SetCallDelay(delay time.Duration) {
	d.mu.Lock()
	d.callDelay = delay
	d.mu.Unlock()
}

// FailOn makes the named method return an error.
func (d *Driver) FailOn(method string) {
	d.mu.Lock()
	d.failMethod = method
	d.mu.Unlock()
}

// SendMessage appends a message to the in-memory chat.
func (d *Driver) SendMessage(name, message string) error {
	delay, fail := d.begin()
	time.Sleep(delay)
	defer d.end()

	d.mu.Lock()
	d.chat = append(d.chat, map[string]any{"name": name, "mes": message})
	d.record(Call{Method: "SendMessage", Name: name, Message: message})
	d.mu.Unlock()

	if fail == "SendMessage" {
		return fmt.Errorf("mock: SendMessage failed")
	}
	return nil
}

// Swipe records the swipe direction.
func (d *Driver) Swipe(direction string) error {
	delay, fail := d.begin()
	time.Sleep(delay)
	defer d.end()

	d.mu.Lock()
	d.record(Call{Method: "Swipe", Direction: direction})
	d.mu.Unlock()

	if fail == "Swipe" {
		return fmt.Errorf("mock: Swipe failed")
	}
	return nil
}

// Regenerate records the call.
func (d *Driver) Regenerate() error {
	delay, fail := d.begin()
	time.Sleep(delay)
	defer d.end()

	d.mu.Lock()
	d.record(Call{Method: "Regenerate"})
	d.mu.Unlock()

	if fail == "Regenerate" {
		return fmt.Errorf("mock: Regenerate failed")
	}
	return nil
}

// Edit replaces the text of the chat message at index, bounds-checked.
func (d *Driver) Edit(index int, text string) error {
	delay, fail := d.begin()
	time.Sleep(delay)
	defer d.end()

	d.mu.Lock()
	if index >= 0 && index < len(d.chat) {
		d.chat[index]["mes"] = text
	}
	d.record(Call{Method: "Edit", Index: index, Text: text})
	d.mu.Unlock()

	if fail == "Edit" {
		return fmt.Errorf("mock: Edit failed")
	}
	return nil
}

// Transcript returns the in-memory chat as JSON.
func (d *Driver) Transcript() (json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.chat) == 0 {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(d.chat)
}

// Calls returns a copy of the recorded calls in invocation order.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call{}, d.calls...)
}

// Overlapped reports whether two calls ever ran concurrently.
func (d *Driver) Overlapped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlapped
}

func (d *Driver) begin() (time.Duration, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight {
		d.overlapped = true
	}
	d.inFlight = true
	return d.callDelay, d.failMethod
}

func (d *Driver) end() {
	d.mu.Lock()
	d.inFlight = false
	d.mu.Unlock()
}

// record stamps and stores the call. Caller holds the lock.
func (d *Driver) record(c Call) {
	c.At = time.Now()
	d.calls = append(d.calls, c)
}
