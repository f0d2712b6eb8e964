// Package worker relays audit events from the transactional outbox to the
// message broker.
package worker

import (
	"context"
	"log/slog"
	"time"

	audit "onekyc/pkg/platform/audit"

	"github.com/google/uuid"
)

// Sink publishes a batch of outbox entries. Implementations must be
// idempotent per entry id because a crash between publish and mark replays
// the batch.
type Sink interface {
	Publish(ctx context.Context, entries []audit.OutboxEntry) error
}

// Worker polls the outbox and publishes pending entries to a Sink.
type Worker struct {
	outbox    audit.Outbox
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// Option configures the Worker.
type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batchSize = n }
}

func NewWorker(outbox audit.Outbox, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		sink:      sink,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.RelayOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "audit relay failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and reports how many entries were relayed.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	entries, err := w.outbox.FetchUnpublished(ctx, w.batchSize)
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	if err := w.sink.Publish(ctx, entries); err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := w.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, err
	}
	return len(entries), nil
}
