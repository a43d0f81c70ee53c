// Package notify fans out coarse "something changed, re-read" events to
// connected clients. Events carry no payload beyond their kind; subscribers
// are expected to re-fetch the affected collection, never to patch state
// incrementally.
package notify

import (
	"context"
	"sync"
	"time"
)

const (
	KindAssignments = "assignments"
	KindCatalog     = "catalog"
)

// Event marks a change to one of the shared collections.
type Event struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

// Broker publishes change events and hands out subscriptions. Subscribe
// returns a receive channel and a cancel func that must be called to release
// the subscription.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context) (<-chan Event, func())
	Close() error
}

// MemoryBroker is the single-instance Broker used when no Redis is
// configured.
type MemoryBroker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]chan Event)}
}

// Publish delivers the event to every subscriber. Slow subscribers drop
// events rather than block the writer; a dropped event is safe because the
// next one triggers the same full re-read.
func (b *MemoryBroker) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 8)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
