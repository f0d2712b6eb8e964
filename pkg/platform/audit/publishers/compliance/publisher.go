// Package compliance writes verification decisions to the audit outbox.
//
// Emission is synchronous and fail-closed: when the write fails the caller
// gets an error and must abandon the decision it was about to commit.
package compliance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	audit "onekyc/pkg/platform/audit"
)

// Publisher seals compliance events and appends them to an audit.Store.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithClock stamps events that arrive without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// New returns a publisher over store. Pass an outbox-backed store so events
// reach the relay.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates, seals and persists event.
func (p *Publisher) Emit(ctx context.Context, event audit.ComplianceEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}

	start := time.Now()
	sealed := event.ToEvent()
	if err := p.store.Append(ctx, sealed); err != nil {
		p.metrics.failed()
		p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
			"request_id", event.RequestID,
			"action", string(event.Action),
			"case_id", event.CaseID.String(),
			"error", err,
		)
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}
	p.metrics.emitted(sealed.Action, time.Since(start).Seconds())
	return nil
}
