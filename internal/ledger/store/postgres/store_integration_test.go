//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"onekyc/internal/ledger"
	"onekyc/internal/ledger/store/postgres"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	pg  *containers.PostgresContainer
	svc *ledger.Service
	ctx context.Context
}

func TestPostgresLedgerSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	_, err := s.pg.Pool.Exec(s.ctx, postgres.Schema)
	s.Require().NoError(err)
}

func (s *PostgresLedgerSuite) SetupTest() {
	_, err := s.pg.Pool.Exec(s.ctx, `TRUNCATE ledger_blocks`)
	s.Require().NoError(err)
	s.svc = ledger.New(postgres.New(s.pg.Pool))
}

func (s *PostgresLedgerSuite) TestAnchorLookupVerify() {
	b, err := s.svc.Anchor(s.ctx, "KYC-AAAA-BBBB-CCCC", []string{"h1"}, map[string]string{"status": "VERIFIED"}, "system")
	s.Require().NoError(err)

	got, err := s.svc.Lookup(s.ctx, b.Hash)
	s.Require().NoError(err)
	s.Equal(b.Timestamp, got.Timestamp)
	s.Equal(b.Hash, got.ComputeHash(), "hash survives the round trip through Postgres")

	_, err = s.svc.Anchor(s.ctx, "KYC-AAAA-BBBB-DDDD", nil, nil, "system")
	s.Require().NoError(err)
	s.NoError(s.svc.Verify(s.ctx))
}

func (s *PostgresLedgerSuite) TestDuplicateKeyConflicts() {
	_, err := s.svc.Anchor(s.ctx, "KYC-AAAA-BBBB-CCCC", nil, nil, "system")
	s.Require().NoError(err)

	_, err = s.svc.Anchor(s.ctx, "KYC-AAAA-BBBB-CCCC", nil, nil, "system")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}
