package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mistakeknot/hivemind/internal/core"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("not found")

// InMemory is an in-memory Store for tests. Safe for concurrent use.
type InMemory struct {
	mu      sync.Mutex
	nextID  int64
	nextSeq int64
	events  []core.Event
	subs    []core.Subscription
	swarm   map[string]core.SwarmEntry
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{swarm: make(map[string]core.SwarmEntry)}
}

func (m *InMemory) AppendEvent(_ context.Context, ev core.Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev.ID = m.nextID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, ev)
	return ev.ID, nil
}

func (m *InMemory) Events(_ context.Context, fromID int64, graphID string) ([]core.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Event
	for _, ev := range m.events {
		if ev.ID < fromID {
			continue
		}
		if graphID != "" && ev.GraphID != graphID {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (m *InMemory) InsertSubscription(_ context.Context, sub core.Subscription) (core.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = now
	}
	m.nextSeq++
	sub.Seq = m.nextSeq
	m.subs = append(m.subs, sub)
	return sub, nil
}

func (m *InMemory) DeleteAgentSubscriptions(_ context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.subs[:0]
	for _, s := range m.subs {
		if s.AgentID != agentID {
			kept = append(kept, s)
		}
	}
	m.subs = kept
	return nil
}

func (m *InMemory) ListSubscriptions(_ context.Context) ([]core.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Subscription(nil), m.subs...), nil
}

func (m *InMemory) AgentSubscriptions(_ context.Context, agentID string) ([]core.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Subscription
	for _, s := range m.subs {
		if s.AgentID == agentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *InMemory) UpsertSwarmEntry(_ context.Context, entry core.SwarmEntry) (core.SwarmEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.swarm[entry.AgentID]; ok {
		entry.CreatedAt = existing.CreatedAt
	} else if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = core.AgentActive
	}
	m.swarm[entry.AgentID] = entry
	return entry, nil
}

func (m *InMemory) MarkOrphaned(_ context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.swarm[agentID]
	if !ok {
		return ErrNotFound
	}
	entry.Status = core.AgentOrphaned
	entry.UpdatedAt = time.Now().UTC()
	m.swarm[agentID] = entry
	return nil
}

func (m *InMemory) GetSwarmEntry(_ context.Context, agentID string) (core.SwarmEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.swarm[agentID]
	if !ok {
		return core.SwarmEntry{}, ErrNotFound
	}
	return entry, nil
}

func (m *InMemory) ListSwarmEntries(_ context.Context, status core.AgentStatus) ([]core.SwarmEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.SwarmEntry
	for _, entry := range m.swarm {
		if status == "" || entry.Status == status {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (m *InMemory) Close() error { return nil }
