package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestBroker(t *testing.T) *RedisBroker {
	t.Helper()
	s := miniredis.RunT(t)
	broker, err := NewRedisBroker("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis broker: %v", err)
	}
	t.Cleanup(func() { _ = broker.Close() })
	return broker
}

func TestRedisBrokerPing(t *testing.T) {
	broker := setupTestBroker(t)
	if err := broker.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	broker := setupTestBroker(t)
	ctx := context.Background()

	events, cancel := broker.Subscribe(ctx)
	defer cancel()

	// miniredis delivers only to already-registered subscribers, so give the
	// subscription goroutine a moment to attach.
	deadline := time.After(2 * time.Second)
	published := Event{Kind: KindAssignments, At: time.Now().UTC().Truncate(time.Second)}
	for {
		if err := broker.Publish(ctx, published); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		select {
		case got := <-events:
			if got.Kind != published.Kind {
				t.Fatalf("event kind = %q, want %q", got.Kind, published.Kind)
			}
			if !got.At.Equal(published.At) {
				t.Fatalf("event time = %v, want %v", got.At, published.At)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("subscriber never received the published event")
		}
	}
}

func TestRedisBrokerCancelClosesChannel(t *testing.T) {
	broker := setupTestBroker(t)

	events, cancel := broker.Subscribe(context.Background())
	cancel()

	select {
	case _, open := <-events:
		if open {
			t.Fatalf("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel did not close after cancel")
	}
}
