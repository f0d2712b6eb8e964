package service

import (
	"context"
	"time"

	"onekyc/internal/kyc/models"
	"onekyc/pkg/platform/circuit"
	"onekyc/pkg/requestcontext"
)

const (
	providerExtractor = "extractor"
	providerBiometric = "biometric"
	providerLandmarks = "landmarks"
	providerQuality   = "quality"
)

// guarded calls fn under the provider timeout and breaker. Any failure, an
// open breaker or a timeout yields OutcomeDegraded and the zero value; the
// caller substitutes a neutral signal.
func guarded[T any](ctx context.Context, s *Service, b *circuit.Breaker, fn func(ctx context.Context) (T, error)) (T, models.ProviderOutcome) {
	var zero T
	if !b.Allow() {
		s.logger.WarnContext(ctx, "provider breaker open, skipping call",
			"request_id", requestcontext.RequestID(ctx),
			"provider", b.Name(),
		)
		s.metrics.ObserveProviderCall(b.Name(), string(models.OutcomeDegraded), 0)
		return zero, models.OutcomeDegraded
	}

	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	start := time.Now()
	v, err := fn(callCtx)
	elapsed := time.Since(start)
	if err != nil {
		_, change := b.RecordFailure()
		if change.Opened {
			s.metrics.IncrementBreakerOpened(b.Name())
			s.logger.ErrorContext(ctx, "provider breaker opened",
				"request_id", requestcontext.RequestID(ctx),
				"provider", b.Name(),
			)
		}
		s.logger.WarnContext(ctx, "provider call degraded",
			"request_id", requestcontext.RequestID(ctx),
			"provider", b.Name(),
			"duration", elapsed,
			"error", err,
		)
		s.metrics.ObserveProviderCall(b.Name(), string(models.OutcomeDegraded), elapsed)
		return zero, models.OutcomeDegraded
	}
	if _, change := b.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "provider breaker closed",
			"request_id", requestcontext.RequestID(ctx),
			"provider", b.Name(),
		)
	}
	s.metrics.ObserveProviderCall(b.Name(), string(models.OutcomeOK), elapsed)
	return v, models.OutcomeOK
}

func (s *Service) extract(ctx context.Context, content []byte) (models.ExtractedFields, models.ProviderOutcome) {
	if s.providers.Extractor == nil {
		s.metrics.IncrementProviderSkipped(providerExtractor)
		return models.ExtractedFields{}, models.OutcomeSkipped
	}
	return guarded(ctx, s, s.extractorBreaker, func(ctx context.Context) (models.ExtractedFields, error) {
		return s.providers.Extractor.Extract(ctx, content)
	})
}

func (s *Service) embed(ctx context.Context, image []byte) ([]float64, models.ProviderOutcome) {
	if s.providers.Biometric == nil {
		s.metrics.IncrementProviderSkipped(providerBiometric)
		return nil, models.OutcomeSkipped
	}
	v, outcome := guarded(ctx, s, s.biometricBreaker, func(ctx context.Context) ([]float64, error) {
		return s.providers.Biometric.Embed(ctx, image)
	})
	if outcome == models.OutcomeOK && len(v) == 0 {
		// no face in the image
		return nil, models.OutcomeSkipped
	}
	return v, outcome
}

func (s *Service) scoreQuality(ctx context.Context, image []byte) (*float64, models.ProviderOutcome) {
	if s.providers.Quality == nil {
		s.metrics.IncrementProviderSkipped(providerQuality)
		return nil, models.OutcomeSkipped
	}
	v, outcome := guarded(ctx, s, s.qualityBreaker, func(ctx context.Context) (float64, error) {
		return s.providers.Quality.Score(ctx, image)
	})
	if outcome != models.OutcomeOK {
		return nil, outcome
	}
	v = min(max(v, 0), 1)
	return &v, outcome
}
