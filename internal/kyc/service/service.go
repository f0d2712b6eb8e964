// Package service is the verification decision engine. It drives a case from
// intake through evidence ingestion, automated processing and reviewer
// actions, and issues a verification number once a case is accepted.
//
// Every mutation runs under a per-case lock and is persisted with an
// optimistic version check, so two writers can never both advance a case.
package service

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"onekyc/internal/kyc/dedupe"
	"onekyc/internal/kyc/metrics"
	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/ports"
	id "onekyc/pkg/domain"
	"onekyc/pkg/platform/circuit"
	"onekyc/pkg/platform/tx"
)

var tracer = otel.Tracer("onekyc/kyc")

const (
	defaultMaxUKNAttempts  = 16
	defaultValidity        = 365 * 24 * time.Hour
	defaultProviderTimeout = 10 * time.Second
	defaultProcessTimeout  = 30 * time.Second
	defaultIssuer          = "onekyc"
)

// CaseStore persists case aggregates.
type CaseStore interface {
	// Create fails with sentinel.ErrConflict when the applicant already has a case.
	Create(ctx context.Context, c *models.Case) error
	Get(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	GetByApplicant(ctx context.Context, applicantID id.ApplicantID) (*models.Case, error)
	GetByUKN(ctx context.Context, ukn id.UKN) (*models.Case, error)
	// Save writes c when the stored version equals c.Version and then bumps
	// c.Version. A stale version fails with sentinel.ErrConflict.
	Save(ctx context.Context, c *models.Case) error
	// ReserveUKN claims ukn for caseID. A number held by another case fails
	// with sentinel.ErrConflict; reserving it again for the same case succeeds.
	ReserveUKN(ctx context.Context, ukn id.UKN, caseID id.CaseID) error
	// ReleaseUKN drops a reservation that was never committed to a case.
	ReleaseUKN(ctx context.Context, ukn id.UKN, caseID id.CaseID) error
	Stats(ctx context.Context) (models.Stats, error)
}

// FingerprintStore holds face fingerprints of verified cases for duplicate detection.
type FingerprintStore interface {
	Put(ctx context.Context, c dedupe.Candidate) error
	List(ctx context.Context) ([]dedupe.Candidate, error)
}

// Locker serializes writers on a key. unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// TxRunner runs fn in a unit of work shared by the case store and the audit outbox.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Providers are the optional external collaborators. A nil provider is
// skipped and its signal falls back to a neutral value.
type Providers struct {
	Extractor ports.Extractor
	Biometric ports.Biometric
	Landmarks ports.LandmarkDetector
	Quality   ports.QualityScorer
}

// Service orchestrates the verification pipeline.
type Service struct {
	cases        CaseStore
	fingerprints FingerprintStore
	ledger       ports.Ledger
	providers    Providers
	auditor      ports.AuditPublisher
	tx           TxRunner
	locker       Locker
	logger       *slog.Logger
	metrics      *metrics.Metrics

	random          io.Reader
	maxUKNAttempts  int
	validity        time.Duration
	issuer          string
	providerTimeout time.Duration
	processTimeout  time.Duration
	breakerOpts     []circuit.Option

	extractorBreaker *circuit.Breaker
	biometricBreaker *circuit.Breaker
	landmarkBreaker  *circuit.Breaker
	qualityBreaker   *circuit.Breaker
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithTxRunner(r TxRunner) Option {
	return func(s *Service) {
		if r != nil {
			s.tx = r
		}
	}
}

// WithDistributedLocker adds a cross-instance lock taken after the in-process one.
func WithDistributedLocker(l Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = chainLocker{s.locker, l}
		}
	}
}

// WithRandom sets the randomness source for verification numbers.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

func WithMaxUKNAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUKNAttempts = n
		}
	}
}

func WithValidity(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.validity = d
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.providerTimeout = d
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.processTimeout = d
		}
	}
}

// WithBreakerOptions configures the circuit breaker guarding each provider.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(s *Service) { s.breakerOpts = append(s.breakerOpts, opts...) }
}

// New builds the engine. ledger is required; providers may be partially nil.
func New(cases CaseStore, fingerprints FingerprintStore, ledger ports.Ledger, providers Providers, opts ...Option) *Service {
	s := &Service{
		cases:           cases,
		fingerprints:    fingerprints,
		ledger:          ledger,
		providers:       providers,
		tx:              tx.NoopRunner{},
		locker:          newKeyedMutex(),
		logger:          slog.Default(),
		random:          rand.Reader,
		maxUKNAttempts:  defaultMaxUKNAttempts,
		validity:        defaultValidity,
		issuer:          defaultIssuer,
		providerTimeout: defaultProviderTimeout,
		processTimeout:  defaultProcessTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractorBreaker = circuit.New(providerExtractor, s.breakerOpts...)
	s.biometricBreaker = circuit.New(providerBiometric, s.breakerOpts...)
	s.landmarkBreaker = circuit.New(providerLandmarks, s.breakerOpts...)
	s.qualityBreaker = circuit.New(providerQuality, s.breakerOpts...)
	return s
}
