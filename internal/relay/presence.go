package relay

import (
	"sort"
	"sync"
	"time"
)

// PresenceTracker maintains the set of currently-active participant
// identities with last-seen timestamps. Entries expire passively: every
// roster read prunes entries older than the timeout first, so a roster
// broadcast never includes an identity that is already stale.
type PresenceTracker struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

// NewPresenceTracker creates a tracker with the given liveness window.
func NewPresenceTracker(timeout time.Duration) *PresenceTracker {
	return &PresenceTracker{
		timeout: timeout,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Heartbeat upserts the identity with the current time. A repeated
// heartbeat refreshes the timestamp rather than inserting a duplicate.
// Empty identities are ignored; the return value reports acceptance.
func (p *PresenceTracker) Heartbeat(name string) bool {
	if name == "" {
		return false
	}
	p.mu.Lock()
	p.entries[name] = p.now()
	p.mu.Unlock()
	return true
}

// Drop removes the identity immediately, regardless of freshness. Used
// when the connection that claimed the identity disconnects.
func (p *PresenceTracker) Drop(name string) bool {
	if name == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[name]; !ok {
		return false
	}
	delete(p.entries, name)
	return true
}

// Active prunes stale entries and returns the remaining identities.
// The roster is a set; the slice is sorted only to keep output stable.
func (p *PresenceTracker) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()

	names := make([]string, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sweep prunes stale entries and returns how many were removed.
func (p *PresenceTracker) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pruneLocked()
}

// Timeout returns the liveness window, which doubles as the sweep period.
func (p *PresenceTracker) Timeout() time.Duration {
	return p.timeout
}

func (p *PresenceTracker) pruneLocked() int {
	now := p.now()
	removed := 0
	for name, lastSeen := range p.entries {
		if now.Sub(lastSeen) > p.timeout {
			delete(p.entries, name)
			removed++
		}
	}
	return removed
}
