package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"onekyc/internal/platform/config"
)

// Client is the process-wide Redis connection. Stores take the embedded
// go-redis client directly.
type Client struct {
	*redis.Client
}

// New connects and pings. It returns a nil client when no URL is configured,
// which callers treat as "keep fingerprints and locks in process".
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Ready reports whether Redis answers. Used by the readiness probe.
func (c *Client) Ready(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
