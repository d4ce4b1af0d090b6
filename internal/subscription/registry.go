// Package subscription implements the registry that decides which agents an
// event wakes. Patterns are persisted through the storage layer and cached
// in memory; matching is pure and ordered by insertion sequence.
package subscription

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/glob"
	"github.com/mistakeknot/hivemind/internal/storage"
)

// Registry holds all subscriptions in memory, backed by a SubscriptionStore.
// Load must be called once before matching; after that the cache and store
// are kept in sync by Register/Unregister.
type Registry struct {
	store storage.SubscriptionStore

	mu   sync.RWMutex
	subs []core.Subscription // seq order
}

func NewRegistry(store storage.SubscriptionStore) *Registry {
	return &Registry{store: store}
}

// Load populates the in-memory cache from storage.
func (r *Registry) Load(ctx context.Context) error {
	subs, err := r.store.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	r.mu.Lock()
	r.subs = subs
	r.mu.Unlock()
	log.Printf("subscription: loaded %d subscriptions", len(subs))
	return nil
}

// Register validates and persists a subscription. Empty patterns are
// rejected: a pattern with no fields would wake the agent on every event.
func (r *Registry) Register(ctx context.Context, agentID string, pattern core.Pattern) (core.Subscription, error) {
	if agentID == "" {
		return core.Subscription{}, fmt.Errorf("agent id required")
	}
	if pattern.IsEmpty() {
		return core.Subscription{}, fmt.Errorf("pattern must set at least one field")
	}
	if pattern.PathGlob != "" {
		if err := glob.ValidateComplexity(pattern.PathGlob); err != nil {
			return core.Subscription{}, fmt.Errorf("path glob: %w", err)
		}
	}

	r.warnOnOverlap(agentID, pattern)

	sub, err := r.store.InsertSubscription(ctx, core.Subscription{
		ID:      uuid.NewString(),
		AgentID: agentID,
		Pattern: pattern,
	})
	if err != nil {
		return core.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()
	return sub, nil
}

// warnOnOverlap logs when the new path glob overlaps an existing glob owned
// by the same agent. One event can then wake the agent through both rows,
// which is usually a registration mistake.
func (r *Registry) warnOnOverlap(agentID string, pattern core.Pattern) {
	if pattern.PathGlob == "" {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, existing := range r.subs {
		if existing.AgentID != agentID || existing.Pattern.PathGlob == "" {
			continue
		}
		overlap, err := glob.PatternsOverlap(pattern.PathGlob, existing.Pattern.PathGlob)
		if err == nil && overlap {
			log.Printf("subscription: agent %s glob %q overlaps existing %q (subscription %s)",
				agentID, pattern.PathGlob, existing.Pattern.PathGlob, existing.ID)
		}
	}
}

// RegisterDefaults installs the two standing subscriptions every agent gets:
// direct messages addressed to it, and changes to its own file. Idempotent;
// defaults already present are not duplicated.
func (r *Registry) RegisterDefaults(ctx context.Context, agentID, filePath string) error {
	defaults := []core.Pattern{
		{EventTypes: []core.EventType{core.EventAgentMessage}, ToAgent: agentID},
	}
	if filePath != "" {
		// The literal path becomes a glob, so metacharacters in the file
		// name must be escaped or the default silently stops matching.
		defaults = append(defaults, core.Pattern{
			EventTypes: []core.EventType{core.EventContentChanged},
			PathGlob:   glob.QuoteMeta(filePath),
		})
	}

	for _, pattern := range defaults {
		if r.hasDefault(agentID, pattern) {
			continue
		}
		sub, err := r.store.InsertSubscription(ctx, core.Subscription{
			ID:        uuid.NewString(),
			AgentID:   agentID,
			Pattern:   pattern,
			IsDefault: true,
		})
		if err != nil {
			return fmt.Errorf("insert default subscription: %w", err)
		}
		r.mu.Lock()
		r.subs = append(r.subs, sub)
		r.mu.Unlock()
	}
	return nil
}

func (r *Registry) hasDefault(agentID string, pattern core.Pattern) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if sub.AgentID == agentID && sub.IsDefault && patternsEqual(sub.Pattern, pattern) {
			return true
		}
	}
	return false
}

func patternsEqual(a, b core.Pattern) bool {
	if len(a.EventTypes) != len(b.EventTypes) || len(a.FromAgents) != len(b.FromAgents) || len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.EventTypes {
		if a.EventTypes[i] != b.EventTypes[i] {
			return false
		}
	}
	for i := range a.FromAgents {
		if a.FromAgents[i] != b.FromAgents[i] {
			return false
		}
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return a.ToAgent == b.ToAgent && a.PathGlob == b.PathGlob
}

// UnregisterAll removes every subscription owned by an agent, defaults
// included. Used when the agent's work unit disappears.
func (r *Registry) UnregisterAll(ctx context.Context, agentID string) error {
	if err := r.store.DeleteAgentSubscriptions(ctx, agentID); err != nil {
		return fmt.Errorf("delete subscriptions: %w", err)
	}
	r.mu.Lock()
	kept := r.subs[:0]
	for _, sub := range r.subs {
		if sub.AgentID != agentID {
			kept = append(kept, sub)
		}
	}
	r.subs = kept
	r.mu.Unlock()
	return nil
}

// MatchingAgents returns the ids of agents with at least one pattern
// matching ev, ordered by the first matching subscription's insertion
// sequence. Each agent appears at most once no matter how many of its
// patterns match.
func (r *Registry) MatchingAgents(ev core.Event) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var agents []string
	for _, sub := range r.subs {
		if seen[sub.AgentID] {
			continue
		}
		if sub.Pattern.Matches(ev) {
			seen[sub.AgentID] = true
			agents = append(agents, sub.AgentID)
		}
	}
	return agents
}

// AgentSubscriptions returns the agent's subscriptions in seq order.
func (r *Registry) AgentSubscriptions(agentID string) []core.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.Subscription
	for _, sub := range r.subs {
		if sub.AgentID == agentID {
			out = append(out, sub)
		}
	}
	return out
}

// All returns every subscription in seq order.
func (r *Registry) All() []core.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}
