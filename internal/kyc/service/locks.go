package service

import (
	"context"
	"sync"

	dErrors "onekyc/pkg/domain-errors"
)

// keyedMutex is an in-process lock per key. Entries are dropped when the last
// holder or waiter leaves, so the map only holds cases currently in flight.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{ch: make(chan struct{}, 1)}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, m)
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for case lock")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.ch
			k.release(key, m)
		})
	}, nil
}

func (k *keyedMutex) release(key string, m *refMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}

// chainLocker takes each lock in order and releases them in reverse.
type chainLocker []Locker

func (c chainLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range c {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}

// withCaseLock runs fn while holding the lock for caseID.
func (s *Service) withCaseLock(ctx context.Context, caseID string, fn func(ctx context.Context) error) error {
	unlock, err := s.locker.Lock(ctx, "kyc:case:"+caseID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}
