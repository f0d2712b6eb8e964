// Package redis shares duplicate-detection fingerprints and case locks
// between engine instances.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"onekyc/internal/kyc/dedupe"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/sentinel"
)

const (
	fingerprintHashKey  = "kyc:fingerprints"
	fingerprintOrderKey = "kyc:fingerprints:order"
	lockKeyPrefix       = "lock:"

	defaultLockTTL      = 30 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

// putFingerprint records insertion order only for new cases, so ties in
// duplicate detection keep resolving to the earliest verified case.
var putFingerprint = redis.NewScript(`
if redis.call('HSET', KEYS[1], ARGV[1], ARGV[2]) == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[1])
end
return 1
`)

// releaseLock deletes the lock only when the caller still owns it.
var releaseLock = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// FingerprintStore keeps verified fingerprints in a hash plus an order list.
type FingerprintStore struct {
	client *redis.Client
}

func NewFingerprintStore(client *redis.Client) *FingerprintStore {
	return &FingerprintStore{client: client}
}

type fingerprintRecord struct {
	CaseID      string    `json:"case_id"`
	UKN         string    `json:"ukn"`
	Fingerprint []float64 `json:"fingerprint"`
}

func (s *FingerprintStore) Put(ctx context.Context, c dedupe.Candidate) error {
	payload, err := json.Marshal(fingerprintRecord(c))
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}
	if err := putFingerprint.Run(ctx, s.client, []string{fingerprintHashKey, fingerprintOrderKey}, c.CaseID, payload).Err(); err != nil {
		return fmt.Errorf("put fingerprint: %w", err)
	}
	return nil
}

func (s *FingerprintStore) List(ctx context.Context) ([]dedupe.Candidate, error) {
	ids, err := s.client.LRange(ctx, fingerprintOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list fingerprint order: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	values, err := s.client.HMGet(ctx, fingerprintHashKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read fingerprints: %w", err)
	}
	out := make([]dedupe.Candidate, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec fingerprintRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode fingerprint: %w", err)
		}
		out = append(out, dedupe.Candidate(rec))
	}
	return out, nil
}

// Locker is a single-instance Redis lock (SET NX PX). The TTL bounds how
// long a crashed holder blocks the case.
type Locker struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

func WithLockTTL(ttl time.Duration) LockerOption {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithPollInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithLockerLogger sets the logger for lock release failures.
func WithLockerLogger(logger *slog.Logger) LockerOption {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLocker(client *redis.Client, opts ...LockerOption) *Locker {
	l := &Locker{client: client, ttl: defaultLockTTL, pollInterval: defaultPollInterval, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Lock polls until the key is free or ctx ends.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	key = lockKeyPrefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire case lock")
		}
		if ok {
			return func() { l.release(context.WithoutCancel(ctx), key, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, dErrors.Wrap(sentinel.ErrLocked, dErrors.CodeConflict, "case is locked by another writer, retry")
		case <-ticker.C:
		}
	}
}

// release frees the lock if token still owns it. A failed release leaves the
// key held until its TTL expires, so it is logged rather than dropped.
func (l *Locker) release(ctx context.Context, key, token string) {
	n, err := releaseLock.Run(ctx, l.client, []string{key}, token).Int()
	switch {
	case err != nil:
		l.logger.WarnContext(ctx, "failed to release case lock",
			"key", key,
			"ttl", l.ttl,
			"error", err,
		)
	case n == 0:
		l.logger.WarnContext(ctx, "case lock expired before release",
			"key", key,
			"ttl", l.ttl,
		)
	}
}
