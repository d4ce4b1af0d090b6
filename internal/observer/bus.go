// Package observer provides a fan-out notification bus for read-only
// observers of the event log. Observers are best-effort: a slow consumer
// loses the oldest notifications rather than blocking the append path.
package observer

import (
	"sync"

	"github.com/mistakeknot/hivemind/internal/core"
)

// Notification is what observers receive: the persisted event plus the
// routing outcome the dispatcher computed for it.
type Notification struct {
	Event    core.Event `json:"event"`
	AgentIDs []string   `json:"agent_ids,omitempty"`
	Skipped  []Skip     `json:"skipped,omitempty"`
}

// Skip records an agent that matched but was not run, with the gate that
// stopped it.
type Skip struct {
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
}

// Skip reasons.
const (
	SkipCooldown = "cooldown"
	SkipDepth    = "depth"
)

// Bus fans notifications out to subscribers. Publish never blocks: when a
// subscriber's buffer is full, the oldest notification is dropped to make
// room for the new one.
type Bus struct {
	mu      sync.Mutex
	subs    map[chan Notification]struct{}
	bufSize int
	closed  bool
}

// NewBus creates a bus whose subscriber channels buffer bufSize
// notifications each.
func NewBus(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 64
	}
	return &Bus{
		subs:    make(map[chan Notification]struct{}),
		bufSize: bufSize,
	}
}

// Subscribe registers a new observer. The returned cancel func must be
// called when the observer goes away; after cancel the channel is closed.
func (b *Bus) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, b.bufSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers n to every subscriber, dropping each subscriber's
// oldest notification if its buffer is full.
func (b *Bus) Publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		for {
			select {
			case ch <- n:
			default:
				// Buffer full: evict the oldest and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
