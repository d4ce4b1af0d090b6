// Package eventlog implements the durable append-only event log and its
// trigger fan-out. Append is the single write path: an event is persisted
// first, then matched against the subscription registry, and one trigger per
// matching agent is handed to the dispatcher.
package eventlog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/observer"
	"github.com/mistakeknot/hivemind/internal/storage"
)

// Matcher decides which agents an event wakes.
type Matcher interface {
	MatchingAgents(ev core.Event) []string
}

// Log is the append-only event log. Writes are durable before any routing
// happens, so a crash between persist and fan-out loses wakeups but never
// history.
type Log struct {
	store   storage.EventStore
	matcher Matcher
	bus     *observer.Bus

	// appendMu spans persist through fan-out so trigger order always equals
	// id order. Replay stays lock-free.
	appendMu sync.Mutex

	triggers chan core.Trigger
	quit     chan struct{}
	once     sync.Once
}

// New creates a log. bus may be nil when no observers are attached.
// bufSize bounds the trigger channel; a full channel applies backpressure
// to Append rather than dropping triggers.
func New(store storage.EventStore, matcher Matcher, bus *observer.Bus, bufSize int) *Log {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Log{
		store:    store,
		matcher:  matcher,
		bus:      bus,
		triggers: make(chan core.Trigger, bufSize),
		quit:     make(chan struct{}),
	}
}

// Append persists ev, fans out triggers to every matching agent, and
// returns the event with its assigned id. Events appended from outside a
// turn are cascade roots (depth 0).
func (l *Log) Append(ctx context.Context, ev core.Event) (core.Event, error) {
	return l.AppendCascade(ctx, ev, 0)
}

// AppendCascade is Append for events produced inside a turn: depth is the
// cascade level stamped on the fan-out triggers, which the dispatcher gates
// on. The fan-out is best effort per agent: one undeliverable trigger
// doesn't stop the others.
func (l *Log) AppendCascade(ctx context.Context, ev core.Event, depth int) (core.Event, error) {
	if ev.Type == "" {
		return core.Event{}, fmt.Errorf("event type required")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	// Single-writer discipline: two concurrent appends must not push their
	// triggers in the opposite order of their assigned ids.
	l.appendMu.Lock()
	defer l.appendMu.Unlock()

	id, err := l.store.AppendEvent(ctx, ev)
	if err != nil {
		return core.Event{}, fmt.Errorf("append event: %w", err)
	}
	ev.ID = id

	agents := l.matcher.MatchingAgents(ev)
	for _, agentID := range agents {
		trig := core.Trigger{AgentID: agentID, EventID: id, Depth: depth, Event: ev}
		select {
		case l.triggers <- trig:
		case <-l.quit:
			log.Printf("eventlog: dropping trigger for %s, log closed", agentID)
		case <-ctx.Done():
			log.Printf("eventlog: dropping trigger for %s: %v", agentID, ctx.Err())
		}
	}

	if l.bus != nil {
		l.bus.Publish(observer.Notification{Event: ev, AgentIDs: agents})
	}
	return ev, nil
}

// Triggers is the stream the dispatcher consumes. The channel is never
// closed; consumers stop on their own signal.
func (l *Log) Triggers() <-chan core.Trigger {
	return l.triggers
}

// Replay returns persisted events with id >= fromID in append order,
// optionally restricted to one graph. Replaying the same range twice yields
// identical results.
func (l *Log) Replay(ctx context.Context, fromID int64, graphID string) ([]core.Event, error) {
	return l.store.Events(ctx, fromID, graphID)
}

// Close stops the fan-out. Events appended after Close are still persisted
// but no longer produce triggers.
func (l *Log) Close() {
	l.once.Do(func() { close(l.quit) })
}
