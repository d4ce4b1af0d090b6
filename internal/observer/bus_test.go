package observer

import (
	"testing"

	"github.com/mistakeknot/hivemind/internal/core"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	bus.Publish(Notification{Event: core.Event{ID: 1, Type: core.EventManualTrigger}})

	for i, ch := range []<-chan Notification{ch1, ch2} {
		select {
		case n := <-ch:
			if n.Event.ID != 1 {
				t.Fatalf("subscriber %d: wrong event %+v", i, n.Event)
			}
		default:
			t.Fatalf("subscriber %d: no notification", i)
		}
	}
}

func TestBusDropsOldestWhenFull(t *testing.T) {
	bus := NewBus(2)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	for id := int64(1); id <= 5; id++ {
		bus.Publish(Notification{Event: core.Event{ID: id}})
	}

	// Buffer of 2 keeps the newest two notifications.
	n1 := <-ch
	n2 := <-ch
	if n1.Event.ID != 4 || n2.Event.ID != 5 {
		t.Fatalf("expected events 4 and 5, got %d and %d", n1.Event.ID, n2.Event.ID)
	}
	select {
	case n := <-ch:
		t.Fatalf("unexpected extra notification %+v", n)
	default:
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // safe to call twice

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}

	// Publishing after cancel must not panic.
	bus.Publish(Notification{Event: core.Event{ID: 9}})
}

func TestBusCloseClosesSubscribers(t *testing.T) {
	bus := NewBus(4)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Close()
	bus.Close() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after bus close")
	}

	// Subscribing after close returns an already-closed channel.
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()
	if _, ok := <-ch2; ok {
		t.Fatal("expected closed channel from post-close subscribe")
	}
}
