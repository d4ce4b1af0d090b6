package subscription

import (
	"context"
	"testing"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(storage.NewInMemory())
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return r
}

func TestRegisterRejectsEmptyPattern(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(context.Background(), "agent-x", core.Pattern{})
	if err == nil {
		t.Fatal("expected error for empty pattern")
	}
}

func TestRegisterRejectsMissingAgent(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Register(context.Background(), "", core.Pattern{ToAgent: "x"})
	if err == nil {
		t.Fatal("expected error for missing agent id")
	}
}

func TestRegisterRejectsPathologicalGlob(t *testing.T) {
	r := newTestRegistry(t)
	pattern := core.Pattern{PathGlob: "***********"} // exceeds wildcard limit
	_, err := r.Register(context.Background(), "agent-x", pattern)
	if err == nil {
		t.Fatal("expected complexity error")
	}
}

func TestMatchingAgentsOrderAndDedupe(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	// b registers first, then a. a registers twice with patterns that both
	// match the same event.
	if _, err := r.Register(ctx, "b", core.Pattern{EventTypes: []core.EventType{core.EventContentChanged}}); err != nil {
		t.Fatalf("register b: %v", err)
	}
	if _, err := r.Register(ctx, "a", core.Pattern{PathGlob: "src/*.py"}); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if _, err := r.Register(ctx, "a", core.Pattern{Tags: []string{"hot"}}); err != nil {
		t.Fatalf("register a again: %v", err)
	}

	ev := core.Event{Type: core.EventContentChanged, Path: "src/main.py", Tags: []string{"hot"}}
	agents := r.MatchingAgents(ev)
	if len(agents) != 2 || agents[0] != "b" || agents[1] != "a" {
		t.Fatalf("expected [b a], got %v", agents)
	}
}

func TestMatchingAgentsRequiresAllFields(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	pattern := core.Pattern{
		EventTypes: []core.EventType{core.EventAgentMessage},
		FromAgents: []string{"x"},
	}
	if _, err := r.Register(ctx, "watcher", pattern); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Type matches, sender doesn't.
	if agents := r.MatchingAgents(core.Event{Type: core.EventAgentMessage, FromAgent: "y"}); len(agents) != 0 {
		t.Fatalf("expected no match, got %v", agents)
	}
	// Both fields match.
	if agents := r.MatchingAgents(core.Event{Type: core.EventAgentMessage, FromAgent: "x"}); len(agents) != 1 {
		t.Fatalf("expected match, got %v", agents)
	}
}

func TestRegisterDefaultsExactlyTwoAndIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.RegisterDefaults(ctx, "agent-x", "src/a.py"); err != nil {
			t.Fatalf("defaults #%d: %v", i+1, err)
		}
	}

	subs := r.AgentSubscriptions("agent-x")
	if len(subs) != 2 {
		t.Fatalf("expected exactly 2 default subscriptions, got %d", len(subs))
	}
	for _, sub := range subs {
		if !sub.IsDefault {
			t.Fatalf("expected default flag on %+v", sub)
		}
	}

	// Direct messages to the agent wake it.
	msg := core.Event{Type: core.EventAgentMessage, ToAgent: "agent-x"}
	if agents := r.MatchingAgents(msg); len(agents) != 1 || agents[0] != "agent-x" {
		t.Fatalf("message default broken: %v", agents)
	}
	// Changes to its own file wake it.
	changed := core.Event{Type: core.EventContentChanged, Path: "src/a.py"}
	if agents := r.MatchingAgents(changed); len(agents) != 1 || agents[0] != "agent-x" {
		t.Fatalf("content default broken: %v", agents)
	}
	// Changes elsewhere don't.
	other := core.Event{Type: core.EventContentChanged, Path: "src/b.py"}
	if agents := r.MatchingAgents(other); len(agents) != 0 {
		t.Fatalf("expected no match for other file, got %v", agents)
	}
}

func TestRegisterDefaultsEscapeGlobMetacharacters(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	// File names can contain glob metacharacters; the content default must
	// match the literal path, not treat it as a pattern.
	if err := r.RegisterDefaults(ctx, "agent-x", "src/weird[1].py"); err != nil {
		t.Fatalf("defaults: %v", err)
	}

	changed := core.Event{Type: core.EventContentChanged, Path: "src/weird[1].py"}
	if agents := r.MatchingAgents(changed); len(agents) != 1 || agents[0] != "agent-x" {
		t.Fatalf("literal path no longer matches its own default: %v", agents)
	}
	// Unescaped, "[1]" would be a character class matching this path.
	classMatch := core.Event{Type: core.EventContentChanged, Path: "src/weird1.py"}
	if agents := r.MatchingAgents(classMatch); len(agents) != 0 {
		t.Fatalf("metacharacters leaked into the default glob: %v", agents)
	}
}

func TestRegisterDefaultsWithoutFilePath(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterDefaults(context.Background(), "agent-x", ""); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if subs := r.AgentSubscriptions("agent-x"); len(subs) != 1 {
		t.Fatalf("expected 1 subscription without file path, got %d", len(subs))
	}
}

func TestUnregisterAll(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_ = r.RegisterDefaults(ctx, "agent-x", "a.py")
	if _, err := r.Register(ctx, "agent-x", core.Pattern{Tags: []string{"extra"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = r.RegisterDefaults(ctx, "agent-y", "b.py")

	if err := r.UnregisterAll(ctx, "agent-x"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if subs := r.AgentSubscriptions("agent-x"); len(subs) != 0 {
		t.Fatalf("expected no subscriptions left, got %+v", subs)
	}
	if subs := r.AgentSubscriptions("agent-y"); len(subs) != 2 {
		t.Fatalf("other agent's subscriptions disturbed: %+v", subs)
	}

	// The event log no longer routes to the unregistered agent.
	msg := core.Event{Type: core.EventAgentMessage, ToAgent: "agent-x"}
	if agents := r.MatchingAgents(msg); len(agents) != 0 {
		t.Fatalf("expected no match after unregister, got %v", agents)
	}
}

func TestLoadRestoresPersistedSubscriptions(t *testing.T) {
	store := storage.NewInMemory()
	ctx := context.Background()

	r1 := NewRegistry(store)
	if err := r1.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := r1.Register(ctx, "agent-x", core.Pattern{ToAgent: "agent-x"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Fresh registry over the same store sees the subscription.
	r2 := NewRegistry(store)
	if err := r2.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	ev := core.Event{Type: core.EventAgentMessage, ToAgent: "agent-x"}
	if agents := r2.MatchingAgents(ev); len(agents) != 1 {
		t.Fatalf("persisted subscription not restored: %v", agents)
	}
}
