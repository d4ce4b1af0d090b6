package storage

import (
	"context"
	"testing"

	"github.com/mistakeknot/hivemind/internal/core"
)

func TestInMemoryAppendAssignsMonotonicIDs(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	var last int64
	for i := 0; i < 5; i++ {
		id, err := m.AppendEvent(ctx, core.Event{Type: core.EventManualTrigger})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestInMemorySubscriptionsKeepInsertionOrder(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	_, _ = m.InsertSubscription(ctx, core.Subscription{AgentID: "b", Pattern: core.Pattern{ToAgent: "b"}})
	_, _ = m.InsertSubscription(ctx, core.Subscription{AgentID: "a", Pattern: core.Pattern{ToAgent: "a"}})

	subs, err := m.ListSubscriptions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 || subs[0].AgentID != "b" || subs[1].AgentID != "a" {
		t.Fatalf("expected insertion order [b a], got %+v", subs)
	}
	if subs[0].Seq >= subs[1].Seq {
		t.Fatalf("seq not increasing: %d then %d", subs[0].Seq, subs[1].Seq)
	}
}

func TestInMemorySwarmOrphaning(t *testing.T) {
	m := NewInMemory()
	ctx := context.Background()
	_, err := m.UpsertSwarmEntry(ctx, core.SwarmEntry{AgentID: "x", FilePath: "a.py"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := m.MarkOrphaned(ctx, "x"); err != nil {
		t.Fatalf("orphan: %v", err)
	}
	entry, err := m.GetSwarmEntry(ctx, "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Status != core.AgentOrphaned {
		t.Fatalf("expected orphaned, got %s", entry.Status)
	}
	if err := m.MarkOrphaned(ctx, "missing"); err == nil {
		t.Fatal("expected error for unknown agent")
	}
}
