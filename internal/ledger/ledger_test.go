package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"onekyc/internal/ledger"
	"onekyc/internal/ledger/store/memory"
	dErrors "onekyc/pkg/domain-errors"
)

type LedgerSuite struct {
	suite.Suite
	store *memory.Store
	svc   *ledger.Service
	ctx   context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = memory.New()
	s.svc = ledger.New(s.store)
	s.ctx = context.Background()
}

// =============================================================================
// Anchoring
// =============================================================================

func (s *LedgerSuite) TestAnchorChainsBlocks() {
	first, err := s.svc.Anchor(s.ctx, "KYC-0000-0000-0001", []string{"aa"}, map[string]string{"risk": "0.10"}, "system")
	s.Require().NoError(err)
	second, err := s.svc.Anchor(s.ctx, "KYC-0000-0000-0002", nil, nil, "reviewer-1")
	s.Require().NoError(err)

	s.Equal(int64(0), first.Index)
	s.Empty(first.PrevHash)
	s.Equal(int64(1), second.Index)
	s.Equal(first.Hash, second.PrevHash)
	s.Regexp(`^0x[0-9a-f]{64}$`, second.Hash)
	s.Equal(ledger.BlockVersion, second.Version)
	s.NoError(s.svc.Verify(s.ctx))
}

func (s *LedgerSuite) TestAnchorSameKeyTwiceConflicts() {
	_, err := s.svc.Anchor(s.ctx, "KYC-0000-0000-0001", nil, nil, "system")
	s.Require().NoError(err)

	_, err = s.svc.Anchor(s.ctx, "KYC-0000-0000-0001", nil, nil, "system")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *LedgerSuite) TestAnchorRequiresKey() {
	_, err := s.svc.Anchor(s.ctx, "  ", nil, nil, "system")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// Justification: concurrent anchors race for the same index; the loser must
// retry on the new head instead of forking the chain.
func (s *LedgerSuite) TestConcurrentAnchorsKeepOneChain() {
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Anchor(s.ctx, fmt.Sprintf("KYC-0000-0000-%04d", i), nil, nil, "system")
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	s.NoError(s.svc.Verify(s.ctx))
	blocks, err := s.store.Range(s.ctx, 0, 100)
	s.Require().NoError(err)
	s.Len(blocks, 20)
}

// =============================================================================
// Lookup
// =============================================================================

func (s *LedgerSuite) TestLookupByHashAndKey() {
	b, err := s.svc.Anchor(s.ctx, "KYC-0000-0000-0001", []string{"aa", "bb"}, nil, "system")
	s.Require().NoError(err)

	byHash, err := s.svc.Lookup(s.ctx, b.Hash)
	s.Require().NoError(err)
	s.Equal(b.Key, byHash.Key)

	byKey, err := s.svc.Lookup(s.ctx, "KYC-0000-0000-0001")
	s.Require().NoError(err)
	s.Equal(b.Hash, byKey.Hash)
	s.Equal([]string{"aa", "bb"}, byKey.EvidenceHashes)
}

func (s *LedgerSuite) TestLookupMissing() {
	_, err := s.svc.Lookup(s.ctx, "0xdeadbeef")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Verification
// =============================================================================

type tamperingStore struct {
	*memory.Store
}

func (t tamperingStore) Range(ctx context.Context, from int64, limit int) ([]ledger.Block, error) {
	blocks, err := t.Store.Range(ctx, from, limit)
	if len(blocks) > 0 {
		blocks[0].Summary = map[string]string{"risk": "0.01"}
	}
	return blocks, err
}

func (s *LedgerSuite) TestVerifyDetectsRewrite() {
	_, err := s.svc.Anchor(s.ctx, "KYC-0000-0000-0001", nil, map[string]string{"risk": "0.20"}, "system")
	s.Require().NoError(err)

	tampered := ledger.New(tamperingStore{s.store})
	err = tampered.Verify(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestBlockHashIsStableAcrossTimezones(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := ledger.Block{Key: "k", Timestamp: at, Version: ledger.BlockVersion, Summary: map[string]string{"b": "2", "a": "1"}}
	shifted := b
	shifted.Timestamp = at.In(time.FixedZone("IST", 5*3600+1800))
	require.Equal(t, b.ComputeHash(), shifted.ComputeHash())
}
