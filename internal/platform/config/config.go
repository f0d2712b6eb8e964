package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, loaded from environment variables.
type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Providers ProvidersConfig
	Engine    EngineConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ONEKYC_ADDR"             envDefault:":8080"`
	LogLevel        string        `env:"ONEKYC_LOG_LEVEL"        envDefault:"info"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY"         envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer       string        `env:"JWT_ISSUER"              envDefault:"onekyc"`
	ShutdownTimeout time.Duration `env:"ONEKYC_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	ReadTimeout     time.Duration `env:"ONEKYC_READ_TIMEOUT"     envDefault:"30s"`
	WriteTimeout    time.Duration `env:"ONEKYC_WRITE_TIMEOUT"    envDefault:"60s"`
	IdleTimeout     time.Duration `env:"ONEKYC_IDLE_TIMEOUT"     envDefault:"120s"`
}

// PostgresConfig configures the case store and audit outbox. An empty URL
// selects the in-memory stores.
type PostgresConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS"    envDefault:"20"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout       time.Duration `env:"DATABASE_TX_TIMEOUT"        envDefault:"5s"`
}

// RedisConfig configures fingerprints and distributed case locks. An empty
// URL keeps both in process.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
	LockTTL      time.Duration `env:"REDIS_LOCK_TTL"       envDefault:"30s"`
}

// KafkaConfig configures the audit relay. No brokers disables the relay.
type KafkaConfig struct {
	Brokers       []string      `env:"KAFKA_BROKERS"        envSeparator:","`
	AuditTopic    string        `env:"KAFKA_AUDIT_TOPIC"    envDefault:"kyc.audit"`
	RelayInterval time.Duration `env:"KAFKA_RELAY_INTERVAL" envDefault:"1s"`
	RelayBatch    int           `env:"KAFKA_RELAY_BATCH"    envDefault:"100"`
}

// ProvidersConfig points at the external extraction and biometric services.
// An unset URL leaves the provider out and its signals are scored at
// neutral values.
type ProvidersConfig struct {
	ExtractorURL     string        `env:"PROVIDER_EXTRACTOR_URL"`
	BiometricURL     string        `env:"PROVIDER_BIOMETRIC_URL"`
	LandmarksURL     string        `env:"PROVIDER_LANDMARKS_URL"`
	QualityURL       string        `env:"PROVIDER_QUALITY_URL"`
	Timeout          time.Duration `env:"PROVIDER_TIMEOUT"           envDefault:"10s"`
	BreakerFailures  int           `env:"PROVIDER_BREAKER_FAILURES"  envDefault:"5"`
	BreakerSuccesses int           `env:"PROVIDER_BREAKER_SUCCESSES" envDefault:"2"`
	BreakerCooldown  time.Duration `env:"PROVIDER_BREAKER_COOLDOWN"  envDefault:"30s"`
}

// EngineConfig tunes the decision engine.
type EngineConfig struct {
	UKNMaxAttempts int           `env:"KYC_UKN_MAX_ATTEMPTS" envDefault:"16"`
	ProcessTimeout time.Duration `env:"KYC_PROCESS_TIMEOUT"  envDefault:"30s"`
	Issuer         string        `env:"KYC_ISSUER"           envDefault:"onekyc"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
