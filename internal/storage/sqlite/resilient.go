package sqlite

import (
	"context"
	"time"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/storage"
)

// Compile-time interface check.
var _ storage.Store = (*ResilientStore)(nil)

// ResilientStore wraps every method of *Store with CircuitBreaker +
// RetryOnDBLock to ride out transient SQLite errors (database-is-locked,
// connection failures).
type ResilientStore struct {
	inner *Store
	cb    *CircuitBreaker
}

// NewResilient creates a ResilientStore with default circuit breaker
// settings (threshold=5, resetTimeout=30s).
func NewResilient(inner *Store) *ResilientStore {
	return &ResilientStore{inner: inner, cb: NewCircuitBreaker(5, 30*time.Second)}
}

// NewResilientWithBreaker creates a ResilientStore with a custom circuit
// breaker.
func NewResilientWithBreaker(inner *Store, cb *CircuitBreaker) *ResilientStore {
	return &ResilientStore{inner: inner, cb: cb}
}

// CircuitBreakerState returns the current breaker state as a string.
func (r *ResilientStore) CircuitBreakerState() string {
	return r.cb.State().String()
}

func (r *ResilientStore) execute(fn func() error) error {
	return r.cb.Execute(func() error {
		return RetryOnDBLock(fn)
	})
}

func (r *ResilientStore) AppendEvent(ctx context.Context, ev core.Event) (int64, error) {
	var result int64
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.AppendEvent(ctx, ev)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) Events(ctx context.Context, fromID int64, graphID string) ([]core.Event, error) {
	var result []core.Event
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.Events(ctx, fromID, graphID)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) InsertSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	var result core.Subscription
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.InsertSubscription(ctx, sub)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) DeleteAgentSubscriptions(ctx context.Context, agentID string) error {
	return r.execute(func() error {
		return r.inner.DeleteAgentSubscriptions(ctx, agentID)
	})
}

func (r *ResilientStore) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	var result []core.Subscription
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.ListSubscriptions(ctx)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) AgentSubscriptions(ctx context.Context, agentID string) ([]core.Subscription, error) {
	var result []core.Subscription
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.AgentSubscriptions(ctx, agentID)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) UpsertSwarmEntry(ctx context.Context, entry core.SwarmEntry) (core.SwarmEntry, error) {
	var result core.SwarmEntry
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.UpsertSwarmEntry(ctx, entry)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) MarkOrphaned(ctx context.Context, agentID string) error {
	return r.execute(func() error {
		return r.inner.MarkOrphaned(ctx, agentID)
	})
}

func (r *ResilientStore) GetSwarmEntry(ctx context.Context, agentID string) (core.SwarmEntry, error) {
	var result core.SwarmEntry
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.GetSwarmEntry(ctx, agentID)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) ListSwarmEntries(ctx context.Context, status core.AgentStatus) ([]core.SwarmEntry, error) {
	var result []core.SwarmEntry
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.ListSwarmEntries(ctx, status)
		return innerErr
	})
	return result, err
}

// Close delegates directly to the inner store without CB or retry.
func (r *ResilientStore) Close() error {
	return r.inner.Close()
}
