package eventlog

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/mistakeknot/hivemind/internal/core"
	"github.com/mistakeknot/hivemind/internal/observer"
	"github.com/mistakeknot/hivemind/internal/storage"
	"github.com/mistakeknot/hivemind/internal/subscription"
)

func newTestLog(t *testing.T, bus *observer.Bus) (*Log, *subscription.Registry) {
	t.Helper()
	store := storage.NewInMemory()
	reg := subscription.NewRegistry(store)
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("load registry: %v", err)
	}
	l := New(store, reg, bus, 16)
	t.Cleanup(l.Close)
	return l, reg
}

func TestAppendAssignsIDAndPersists(t *testing.T) {
	l, _ := newTestLog(t, nil)
	ctx := context.Background()

	ev, err := l.Append(ctx, core.Event{Type: core.EventManualTrigger})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ev.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if ev.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	events, err := l.Replay(ctx, 0, "")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("event not persisted: %+v", events)
	}
}

func TestAppendRejectsMissingType(t *testing.T) {
	l, _ := newTestLog(t, nil)
	if _, err := l.Append(context.Background(), core.Event{}); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestAppendFansOutOneTriggerPerMatchingAgent(t *testing.T) {
	l, reg := newTestLog(t, nil)
	ctx := context.Background()

	_ = reg.RegisterDefaults(ctx, "owner", "src/a.py")
	if _, err := reg.Register(ctx, "reviewer", core.Pattern{
		EventTypes: []core.EventType{core.EventContentChanged},
		PathGlob:   "src/*.py",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = reg.RegisterDefaults(ctx, "bystander", "docs/readme.md")

	ev, err := l.Append(ctx, core.Event{Type: core.EventContentChanged, Path: "src/a.py"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	got := map[string]int64{}
	for i := 0; i < 2; i++ {
		trig := <-l.Triggers()
		got[trig.AgentID] = trig.EventID
		if trig.Event.Path != "src/a.py" {
			t.Fatalf("trigger carries wrong event: %+v", trig.Event)
		}
	}
	if got["owner"] != ev.ID || got["reviewer"] != ev.ID {
		t.Fatalf("expected triggers for owner and reviewer, got %v", got)
	}
	select {
	case trig := <-l.Triggers():
		t.Fatalf("unexpected trigger for %s", trig.AgentID)
	default:
	}
}

func TestAppendWithNoMatchesProducesNoTriggers(t *testing.T) {
	l, _ := newTestLog(t, nil)
	if _, err := l.Append(context.Background(), core.Event{Type: core.EventManualTrigger}); err != nil {
		t.Fatalf("append: %v", err)
	}
	select {
	case trig := <-l.Triggers():
		t.Fatalf("unexpected trigger %+v", trig)
	default:
	}
}

func TestAppendPublishesToObservers(t *testing.T) {
	bus := observer.NewBus(8)
	defer bus.Close()
	l, reg := newTestLog(t, bus)
	ctx := context.Background()

	_ = reg.RegisterDefaults(ctx, "owner", "src/a.py")
	ch, cancel := bus.Subscribe()
	defer cancel()

	ev, err := l.Append(ctx, core.Event{Type: core.EventContentChanged, Path: "src/a.py"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	n := <-ch
	if n.Event.ID != ev.ID {
		t.Fatalf("observer saw wrong event: %+v", n.Event)
	}
	if !reflect.DeepEqual(n.AgentIDs, []string{"owner"}) {
		t.Fatalf("observer saw wrong routing: %v", n.AgentIDs)
	}
}

func TestReplayFiltersAndOrders(t *testing.T) {
	l, _ := newTestLog(t, nil)
	ctx := context.Background()

	e1, _ := l.Append(ctx, core.Event{Type: core.EventManualTrigger, GraphID: "g1"})
	_, _ = l.Append(ctx, core.Event{Type: core.EventManualTrigger, GraphID: "g2"})
	e3, _ := l.Append(ctx, core.Event{Type: core.EventManualTrigger, GraphID: "g1"})

	events, err := l.Replay(ctx, 0, "g1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(events) != 2 || events[0].ID != e1.ID || events[1].ID != e3.ID {
		t.Fatalf("wrong replay: %+v", events)
	}

	tail, err := l.Replay(ctx, e3.ID, "")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != e3.ID {
		t.Fatalf("cursor replay wrong: %+v", tail)
	}
}

func TestConcurrentAppendsKeepTriggerOrder(t *testing.T) {
	store := storage.NewInMemory()
	reg := subscription.NewRegistry(store)
	_ = reg.Load(context.Background())
	// Small buffer so appenders and the drain interleave under contention.
	l := New(store, reg, nil, 8)
	t.Cleanup(l.Close)
	ctx := context.Background()

	if _, err := reg.Register(ctx, "worker", core.Pattern{
		EventTypes: []core.EventType{core.EventManualTrigger},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := l.Append(ctx, core.Event{Type: core.EventManualTrigger}); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}()
	}

	// Per-agent delivery order must equal id order no matter how appends
	// interleave.
	ids := make([]int64, 0, writers*perWriter)
	for i := 0; i < writers*perWriter; i++ {
		trig := <-l.Triggers()
		ids = append(ids, trig.EventID)
	}
	wg.Wait()

	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("trigger order diverged from id order at %d: %d after %d", i, ids[i], ids[i-1])
		}
	}
}

func TestAppendAfterClosePersistsWithoutTriggers(t *testing.T) {
	store := storage.NewInMemory()
	reg := subscription.NewRegistry(store)
	_ = reg.Load(context.Background())
	// Unbuffered-ish log: buffer of 1 filled up first.
	l := New(store, reg, nil, 1)
	ctx := context.Background()

	_ = reg.RegisterDefaults(ctx, "owner", "a.py")
	if _, err := l.Append(ctx, core.Event{Type: core.EventContentChanged, Path: "a.py"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	l.Close()

	// With the buffer full and the log closed, this must not block forever.
	if _, err := l.Append(ctx, core.Event{Type: core.EventContentChanged, Path: "a.py"}); err != nil {
		t.Fatalf("append after close: %v", err)
	}

	events, err := l.Replay(ctx, 0, "")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected both events persisted, got %d", len(events))
	}
}
