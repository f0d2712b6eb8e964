// Package ledger is an append-only, hash-chained record of issued
// verification numbers. Each block commits to its predecessor so any
// rewrite of history breaks the chain.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/sentinel"
)

// BlockVersion is the block schema version written into every hash.
const BlockVersion = "1.0"

// ErrIndexTaken is returned by stores when another writer appended the same
// block index first. The service retries on it.
var ErrIndexTaken = errors.New("ledger index already taken")

// Block is one anchored entry.
type Block struct {
	Index          int64             `json:"index"`
	Key            string            `json:"key"`
	EvidenceHashes []string          `json:"evidence_hashes"`
	Summary        map[string]string `json:"summary"`
	Issuer         string            `json:"issuer"`
	Timestamp      time.Time         `json:"timestamp"`
	Version        string            `json:"version"`
	PrevHash       string            `json:"prev_hash"`
	Hash           string            `json:"hash"`
}

// ComputeHash returns "0x" plus the sha256 of the block's canonical JSON,
// excluding Hash itself. Map keys are sorted by encoding/json.
func (b Block) ComputeHash() string {
	b.Hash = ""
	b.Timestamp = b.Timestamp.UTC()
	payload, _ := json.Marshal(b)
	sum := sha256.Sum256(payload)
	return "0x" + hex.EncodeToString(sum[:])
}

// Store persists blocks. Append must reject a duplicate key with
// sentinel.ErrConflict and a duplicate index with ErrIndexTaken.
type Store interface {
	Head(ctx context.Context) (*Block, error)
	Append(ctx context.Context, b Block) error
	ByHash(ctx context.Context, hash string) (*Block, error)
	ByKey(ctx context.Context, key string) (*Block, error)
	Range(ctx context.Context, fromIndex int64, limit int) ([]Block, error)
}

// Service anchors and resolves blocks.
type Service struct {
	store      Store
	logger     *slog.Logger
	now        func() time.Time
	maxRetries int
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMaxRetries(n int) Option {
	return func(s *Service) { s.maxRetries = n }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		logger:     slog.Default(),
		now:        time.Now,
		maxRetries: 32,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Anchor appends a block for key. Keys are unique: anchoring an existing key
// returns a conflict error and leaves the chain untouched.
func (s *Service) Anchor(ctx context.Context, key string, evidenceHashes []string, summary map[string]string, issuer string) (*Block, error) {
	if strings.TrimSpace(key) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ledger key is required")
	}
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		head, err := s.store.Head(ctx)
		if err != nil {
			return nil, fmt.Errorf("read ledger head: %w", err)
		}
		b := Block{
			Key:            key,
			EvidenceHashes: append([]string{}, evidenceHashes...),
			Summary:        summary,
			Issuer:         issuer,
			Timestamp:      s.now().UTC().Truncate(time.Microsecond),
			Version:        BlockVersion,
		}
		if b.Summary == nil {
			b.Summary = map[string]string{}
		}
		if head != nil {
			b.Index = head.Index + 1
			b.PrevHash = head.Hash
		}
		b.Hash = b.ComputeHash()

		err = s.store.Append(ctx, b)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "ledger block anchored", "index", b.Index, "tx_hash", b.Hash)
			return &b, nil
		case errors.Is(err, ErrIndexTaken):
			continue
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "ledger key already anchored")
		default:
			return nil, fmt.Errorf("append ledger block: %w", err)
		}
	}
	return nil, dErrors.New(dErrors.CodeConflict, "ledger contention, retry")
}

// Lookup resolves a "0x" transaction hash or an anchored key.
func (s *Service) Lookup(ctx context.Context, ref string) (*Block, error) {
	ref = strings.TrimSpace(ref)
	var (
		b   *Block
		err error
	)
	if strings.HasPrefix(ref, "0x") {
		b, err = s.store.ByHash(ctx, strings.ToLower(ref))
	} else {
		b, err = s.store.ByKey(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "ledger record not found")
		}
		return nil, fmt.Errorf("lookup ledger: %w", err)
	}
	return b, nil
}

// Verify walks the whole chain and reports the first broken link.
func (s *Service) Verify(ctx context.Context) error {
	const page = 500
	var (
		next int64
		prev string
	)
	for {
		blocks, err := s.store.Range(ctx, next, page)
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		for _, b := range blocks {
			if b.Index != next || b.PrevHash != prev || b.Hash != b.ComputeHash() {
				return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("ledger chain broken at index %d", b.Index))
			}
			prev = b.Hash
			next++
		}
		if len(blocks) < page {
			return nil
		}
	}
}
