// Package jobs keeps track of background fetches so a host can collect
// their results after the slash command has already returned.
package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/kznrluk/jina-reader/internal/fetcher"
)

// ErrUnknownJob is returned for IDs that were never added or already
// collected.
var ErrUnknownJob = errors.New("unknown job")

// Store maps job IDs to pending result slots.
type Store struct {
	mu    sync.Mutex
	slots map[string]*fetcher.Slot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{slots: make(map[string]*fetcher.Slot)}
}

// Add registers slot and returns its job ID.
func (s *Store) Add(slot *fetcher.Slot) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.slots[id] = slot
	s.mu.Unlock()
	return id
}

func (s *Store) get(id string) (*fetcher.Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	return slot, ok
}

// Result polls job id. done is false while the fetch is still running.
func (s *Store) Result(id string) (r fetcher.Result, done bool, err error) {
	slot, ok := s.get(id)
	if !ok {
		return fetcher.Result{}, false, ErrUnknownJob
	}
	r, done = slot.Result()
	return r, done, nil
}

// Wait blocks until job id finishes or ctx is done. A finished job is
// forgotten; a job whose wait was cut short stays in the store.
func (s *Store) Wait(ctx context.Context, id string) (string, error) {
	slot, ok := s.get(id)
	if !ok {
		return "", ErrUnknownJob
	}

	select {
	case <-slot.Done():
		s.Forget(id)
		r, _ := slot.Result()
		return r.Text, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Forget drops job id. The background fetch, if still running, completes
// into a slot nobody reads.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	delete(s.slots, id)
	s.mu.Unlock()
}

// Len returns the number of jobs not yet collected.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
