// Package janitor periodically purges match records past their retention.
package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/youme-word/internal/store"
)

// Worker runs DeleteOlderThan(now - retention) on a fixed interval.
type Worker struct {
	store     store.Store
	retention time.Duration
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a stopped worker.
func New(st store.Store, retention, interval time.Duration, logger zerolog.Logger) *Worker {
	return &Worker{
		store:     st,
		retention: retention,
		interval:  interval,
		log:       logger.With().Str("component", "janitor").Logger(),
		now:       time.Now,
	}
}

// Start launches the background loop. The first sweep runs immediately.
// Calling Start on a running worker does nothing.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.log.Info().Dur("interval", w.interval).Dur("retention", w.retention).Msg("janitor started")
	go w.run(ctx, w.stopCh, w.doneCh)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	w.log.Info().Msg("janitor stopped")
}

func (w *Worker) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures are logged and reported as
// zero deletions; the next sweep tries again.
func (w *Worker) RunOnce(ctx context.Context) int64 {
	cutoff := w.now().Add(-w.retention)
	n, err := w.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.log.Warn().Err(err).Time("cutoff", cutoff).Msg("cleanup failed")
		return 0
	}
	if n > 0 {
		w.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("expired matches removed")
	}
	return n
}
