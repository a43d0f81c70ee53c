package wizard

import (
	"errors"
	"sync"
)

var ErrDraftNotFound = errors.New("draft not found")

// Registry holds the live drafts. One mutex guards the map and every draft in
// it; all mutation goes through WithDraft.
type Registry struct {
	mu     sync.Mutex
	drafts map[string]*Draft
}

func NewRegistry() *Registry {
	return &Registry{drafts: make(map[string]*Draft)}
}

// Open creates a fresh draft at the name step with empty state and returns
// its id.
func (r *Registry) Open() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft := newDraft()
	r.drafts[draft.ID] = draft
	return draft.ID
}

// WithDraft runs fn with exclusive access to the draft.
func (r *Registry) WithDraft(id string, fn func(*Draft) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[id]
	if !ok {
		return ErrDraftNotFound
	}
	return fn(draft)
}

// Close discards the draft and all its state. Closing an unknown id is a
// no-op so explicit cancel after submit success stays idempotent.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, id)
}

// Len reports the number of open drafts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}
