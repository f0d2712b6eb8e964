package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 16, cfg.Engine.UKNMaxAttempts)
	assert.Equal(t, "kyc.audit", cfg.Kafka.AuditTopic)
	assert.Equal(t, 10*time.Second, cfg.Providers.Timeout)
	assert.Empty(t, cfg.Postgres.URL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("PROVIDER_BREAKER_COOLDOWN", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Providers.BreakerCooldown)
}

func TestLoadError(t *testing.T) {
	t.Setenv("KYC_UKN_MAX_ATTEMPTS", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
