package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onekyc/internal/platform/config"
)

func TestNewWithoutURLIsDisabled(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestOptionsApplyPoolSettings(t *testing.T) {
	opts, err := options(config.RedisConfig{
		URL:          "redis://:secret@cache:6380/2",
		PoolSize:     7,
		MinIdleConns: 3,
		ReadTimeout:  time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3, opts.MinIdleConns)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}

func TestOptionsRejectBadURL(t *testing.T) {
	_, err := options(config.RedisConfig{URL: "http://not-redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}
