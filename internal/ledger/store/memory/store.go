package memory

import (
	"context"
	"sync"

	"onekyc/internal/ledger"
	"onekyc/pkg/platform/sentinel"
)

// Store is an in-process ledger.
type Store struct {
	mu     sync.RWMutex
	blocks []ledger.Block
	byHash map[string]int
	byKey  map[string]int
}

func New() *Store {
	return &Store{byHash: map[string]int{}, byKey: map[string]int{}}
}

func (s *Store) Head(_ context.Context) (*ledger.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.blocks) == 0 {
		return nil, nil
	}
	b := s.blocks[len(s.blocks)-1]
	return &b, nil
}

func (s *Store) Append(_ context.Context, b ledger.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[b.Key]; ok {
		return sentinel.ErrConflict
	}
	if b.Index != int64(len(s.blocks)) {
		return ledger.ErrIndexTaken
	}
	s.blocks = append(s.blocks, b)
	s.byHash[b.Hash] = len(s.blocks) - 1
	s.byKey[b.Key] = len(s.blocks) - 1
	return nil
}

func (s *Store) ByHash(_ context.Context, hash string) (*ledger.Block, error) {
	return s.lookup(s.byHash, hash)
}

func (s *Store) ByKey(_ context.Context, key string) (*ledger.Block, error) {
	return s.lookup(s.byKey, key)
}

func (s *Store) lookup(index map[string]int, ref string) (*ledger.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := index[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	b := s.blocks[i]
	return &b, nil
}

func (s *Store) Range(_ context.Context, fromIndex int64, limit int) ([]ledger.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if fromIndex >= int64(len(s.blocks)) {
		return nil, nil
	}
	end := min(int(fromIndex)+limit, len(s.blocks))
	return append([]ledger.Block{}, s.blocks[fromIndex:end]...), nil
}
