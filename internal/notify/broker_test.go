package notify

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBrokerFanOut(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	first, cancelFirst := broker.Subscribe(ctx)
	defer cancelFirst()
	second, cancelSecond := broker.Subscribe(ctx)
	defer cancelSecond()

	event := Event{Kind: KindAssignments, At: time.Now()}
	if err := broker.Publish(ctx, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, ch := range []<-chan Event{first, second} {
		select {
		case got := <-ch:
			if got.Kind != KindAssignments {
				t.Fatalf("event kind = %q, want %q", got.Kind, KindAssignments)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive the event")
		}
	}
}

func TestMemoryBrokerCancelStopsDelivery(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	events, cancel := broker.Subscribe(ctx)
	cancel()
	cancel() // idempotent

	if _, open := <-events; open {
		t.Fatalf("cancelled subscription channel should be closed")
	}
	if err := broker.Publish(ctx, Event{Kind: KindCatalog}); err != nil {
		t.Fatalf("Publish after cancel: %v", err)
	}
}

func TestMemoryBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	broker := NewMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	events, cancel := broker.Subscribe(ctx)
	defer cancel()

	// Fill the buffer and keep publishing; Publish must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = broker.Publish(ctx, Event{Kind: KindAssignments})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on a slow subscriber")
	}

	// The buffered events are still there to trigger a re-read.
	select {
	case <-events:
	default:
		t.Fatalf("expected at least one buffered event")
	}
}
