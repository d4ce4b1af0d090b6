// Package storage defines the durable stores behind the event log,
// subscription registry, and swarm directory, plus an in-memory
// implementation for tests.
package storage

import (
	"context"

	"github.com/mistakeknot/hivemind/internal/core"
)

// EventStore is the append-only event log storage. AppendEvent assigns and
// returns a strictly increasing id; rows are never mutated or deleted.
type EventStore interface {
	AppendEvent(ctx context.Context, ev core.Event) (int64, error)
	// Events returns persisted events with id >= fromID in id order,
	// optionally filtered by graph id.
	Events(ctx context.Context, fromID int64, graphID string) ([]core.Event, error)
}

// SubscriptionStore persists subscription patterns. ListSubscriptions and
// AgentSubscriptions return rows in insertion (seq) order so matching is
// deterministic.
type SubscriptionStore interface {
	InsertSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error)
	DeleteAgentSubscriptions(ctx context.Context, agentID string) error
	ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
	AgentSubscriptions(ctx context.Context, agentID string) ([]core.Subscription, error)
}

// SwarmStore is the authoritative agent directory.
type SwarmStore interface {
	UpsertSwarmEntry(ctx context.Context, entry core.SwarmEntry) (core.SwarmEntry, error)
	MarkOrphaned(ctx context.Context, agentID string) error
	GetSwarmEntry(ctx context.Context, agentID string) (core.SwarmEntry, error)
	ListSwarmEntries(ctx context.Context, status core.AgentStatus) ([]core.SwarmEntry, error)
}

type Store interface {
	EventStore
	SubscriptionStore
	SwarmStore
	Close() error
}
