package fetcher

import (
	"context"
	"sync"
)

// Result is the outcome of one fetch. Err is nil on success.
type Result struct {
	Text string
	Err  error
}

// Slot is a single-assignment cell holding the Result of a background fetch.
// The first call to set wins; done is closed exactly once, after which the
// value never changes.
type Slot struct {
	once   sync.Once
	done   chan struct{}
	result Result
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{done: make(chan struct{})}
}

// set stores r if the slot is still empty and reports whether it did.
func (s *Slot) set(r Result) bool {
	stored := false
	s.once.Do(func() {
		s.result = r
		close(s.done)
		stored = true
	})
	return stored
}

// Done returns a channel that is closed once the slot holds a value.
func (s *Slot) Done() <-chan struct{} { return s.done }

// Result returns the stored value without blocking. ok is false while the
// fetch is still running.
func (s *Slot) Result() (r Result, ok bool) {
	select {
	case <-s.done:
		return s.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the slot is set or ctx is done.
func (s *Slot) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.done:
		return s.result.Text, s.result.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
