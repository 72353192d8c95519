package fetcher

import (
	"context"
	"log/slog"
	"time"
)

// Async runs a Fetcher in the background and hands the outcome back
// through a Slot.
type Async struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewAsync wraps f. A nil logger falls back to slog.Default().
func NewAsync(f Fetcher, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{fetcher: f, logger: logger.With("component", "async-fetcher")}
}

// Start schedules a fetch of url and returns immediately. The fetch outlives
// ctx's cancellation but keeps its values. The returned slot is written
// exactly once, whatever the outcome.
func (a *Async) Start(ctx context.Context, url string) *Slot {
	slot := NewSlot()
	ctx = context.WithoutCancel(ctx)

	go func() {
		start := time.Now()
		text, err := a.fetcher.Fetch(ctx, url)
		if err != nil {
			a.logger.Warn("fetch failed", "url", url, "err", err, "elapsed", time.Since(start))
		} else {
			a.logger.Info("successfully fetched content", "url", url, "bytes", len(text), "elapsed", time.Since(start))
		}

		if !slot.set(Result{Text: text, Err: err}) {
			a.logger.Debug("result dropped, slot already set", "url", url)
		}
	}()

	return slot
}
