package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	jwttoken "onekyc/internal/jwt_token"
	"onekyc/internal/kyc/adapters"
	"onekyc/internal/kyc/handler"
	kycmetrics "onekyc/internal/kyc/metrics"
	"onekyc/internal/kyc/service"
	kycmemory "onekyc/internal/kyc/store/memory"
	kycpostgres "onekyc/internal/kyc/store/postgres"
	kycredis "onekyc/internal/kyc/store/redis"
	"onekyc/internal/ledger"
	ledgermemory "onekyc/internal/ledger/store/memory"
	ledgerpostgres "onekyc/internal/ledger/store/postgres"
	"onekyc/internal/platform/config"
	"onekyc/internal/platform/httpserver"
	"onekyc/internal/platform/logger"
	"onekyc/internal/platform/metrics"
	"onekyc/internal/platform/postgres"
	platformredis "onekyc/internal/platform/redis"
	"onekyc/pkg/platform/audit"
	"onekyc/pkg/platform/audit/publishers/compliance"
	auditmemory "onekyc/pkg/platform/audit/store/memory"
	auditpostgres "onekyc/pkg/platform/audit/store/postgres"
	"onekyc/pkg/platform/audit/worker"
	"onekyc/pkg/platform/circuit"
	"onekyc/pkg/platform/middleware/metadata"
	"onekyc/pkg/platform/middleware/request"
	"onekyc/pkg/platform/middleware/requesttime"
	"onekyc/pkg/platform/tx"
)

// main wires dependencies, serves HTTP and relays audit events until a
// signal arrives. Business logic lives in internal/kyc.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// infra holds the backing stores. Nil fields mean the in-memory variant.
type infra struct {
	db    *sql.DB
	pool  *pgxpool.Pool
	redis *platformredis.Client
}

func (i infra) close() {
	if i.pool != nil {
		i.pool.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
}

func (i infra) checks() map[string]httpserver.Check {
	checks := map[string]httpserver.Check{}
	if i.db != nil {
		checks["postgres"] = i.db.PingContext
	}
	if i.redis != nil {
		checks["redis"] = i.redis.Ready
	}
	return checks
}

func openInfra(ctx context.Context, cfg config.Config) (infra, error) {
	var in infra
	if cfg.Postgres.URL != "" {
		db, err := postgres.OpenSQL(ctx, cfg.Postgres)
		if err != nil {
			return in, err
		}
		in.db = db
		if err := postgres.Migrate(ctx, db, kycpostgres.Schema, auditpostgres.Schema, ledgerpostgres.Schema); err != nil {
			in.close()
			return infra{}, err
		}
		pool, err := postgres.OpenPool(ctx, cfg.Postgres)
		if err != nil {
			in.close()
			return infra{}, err
		}
		in.pool = pool
	}
	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		in.close()
		return infra{}, err
	}
	in.redis = rc
	return in, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	in, err := openInfra(ctx, cfg)
	if err != nil {
		return err
	}
	defer in.close()

	reg := metrics.NewRegistry()

	var (
		cases       service.CaseStore
		fingerprint service.FingerprintStore
		ledgerStore ledger.Store
		auditStore  interface {
			audit.Store
			audit.Outbox
		}
		txRunner service.TxRunner = tx.NoopRunner{}
	)
	if in.db != nil {
		cases = kycpostgres.NewCaseStore(in.db)
		auditStore = auditpostgres.New(in.db)
		ledgerStore = ledgerpostgres.New(in.pool)
		txRunner = tx.NewRunner(in.db, cfg.Postgres.TxTimeout)
		log.Info("using postgres stores")
	} else {
		cases = kycmemory.NewCaseStore()
		auditStore = auditmemory.NewInMemoryStore()
		ledgerStore = ledgermemory.New()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(kycmetrics.New(reg)),
		service.WithTxRunner(txRunner),
		service.WithAuditPublisher(compliance.New(auditStore,
			compliance.WithLogger(log),
			compliance.WithMetrics(compliance.NewMetrics(reg)),
		)),
		service.WithMaxUKNAttempts(cfg.Engine.UKNMaxAttempts),
		service.WithProcessTimeout(cfg.Engine.ProcessTimeout),
		service.WithIssuer(cfg.Engine.Issuer),
		service.WithProviderTimeout(cfg.Providers.Timeout),
		service.WithBreakerOptions(
			circuit.WithFailureThreshold(cfg.Providers.BreakerFailures),
			circuit.WithSuccessThreshold(cfg.Providers.BreakerSuccesses),
			circuit.WithCooldown(cfg.Providers.BreakerCooldown),
		),
	}
	if in.redis != nil {
		fingerprint = kycredis.NewFingerprintStore(in.redis.Client)
		opts = append(opts, service.WithDistributedLocker(
			kycredis.NewLocker(in.redis.Client,
				kycredis.WithLockTTL(cfg.Redis.LockTTL),
				kycredis.WithLockerLogger(log),
			),
		))
		log.Info("using redis for fingerprints and case locks")
	} else {
		fingerprint = kycmemory.NewFingerprintStore()
	}

	ledgerSvc := ledger.New(ledgerStore, ledger.WithLogger(log))
	engine := service.New(cases, fingerprint, adapters.NewLedgerAdapter(ledgerSvc), buildProviders(cfg.Providers, log), opts...)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, "onekyc")
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Handle("/metrics", metrics.Handler(reg))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Get("/readyz", httpserver.Readiness(in.checks()))
	handler.New(engine, log, jwttoken.NewJWTServiceAdapter(jwtService)).Register(r)

	srv := httpserver.New(cfg.Server, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting onekyc", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := worker.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		relay := worker.NewWorker(auditStore, sink,
			worker.WithLogger(log),
			worker.WithInterval(cfg.Kafka.RelayInterval),
			worker.WithBatchSize(cfg.Kafka.RelayBatch),
		)
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay in the outbox")
	}

	return g.Wait()
}

// buildProviders wires an HTTP adapter for every configured provider URL.
func buildProviders(cfg config.ProvidersConfig, log *slog.Logger) service.Providers {
	client := &http.Client{}
	var p service.Providers
	if cfg.ExtractorURL != "" {
		p.Extractor = adapters.NewHTTPExtractor(cfg.ExtractorURL, client)
	}
	if cfg.BiometricURL != "" {
		p.Biometric = adapters.NewHTTPBiometric(cfg.BiometricURL, client)
	}
	if cfg.LandmarksURL != "" {
		p.Landmarks = adapters.NewHTTPLandmarks(cfg.LandmarksURL, client)
	}
	if cfg.QualityURL != "" {
		p.Quality = adapters.NewHTTPQuality(cfg.QualityURL, client)
	}
	for name, set := range map[string]bool{
		"extractor": p.Extractor != nil,
		"biometric": p.Biometric != nil,
		"landmarks": p.Landmarks != nil,
		"quality":   p.Quality != nil,
	} {
		if !set {
			log.Warn("provider not configured, signals scored at neutral values", "provider", name)
		}
	}
	return p
}
