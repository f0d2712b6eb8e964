//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "onekyc/pkg/domain"
	"onekyc/pkg/platform/audit"
	"onekyc/pkg/platform/audit/store/postgres"
	"onekyc/pkg/platform/tx"
	"onekyc/pkg/testutil/containers"
)

type OutboxSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
	ctx   context.Context
}

func TestOutboxSuite(t *testing.T) {
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	_, err := s.pg.DB.ExecContext(s.ctx, postgres.Schema)
	s.Require().NoError(err)
}

func (s *OutboxSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE outbox`)
	s.Require().NoError(err)
	s.store = postgres.New(s.pg.DB)
}

func (s *OutboxSuite) event(at time.Time) audit.Event {
	return audit.ComplianceEvent{
		Timestamp:   at,
		CaseID:      id.NewCaseID(),
		ApplicantID: id.NewApplicantID(),
		Action:      audit.ActionVerified,
		Decision:    "VERIFIED",
		ClientIP:    "203.0.113.7",
	}.ToEvent()
}

// =============================================================================
// Relay view
// =============================================================================

func (s *OutboxSuite) TestFetchOldestFirstAndMarkPublished() {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := s.event(t0.Add(time.Minute))
	earlier := s.event(t0)
	s.Require().NoError(s.store.Append(s.ctx, later))
	s.Require().NoError(s.store.Append(s.ctx, earlier))

	entries, err := s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(earlier.ID, entries[0].ID)
	s.Equal(earlier.CaseID, entries[0].AggregateID)
	s.Equal(string(audit.ActionVerified), entries[0].EventType)

	var decoded audit.Event
	s.Require().NoError(json.Unmarshal(entries[0].Payload, &decoded))
	s.Equal("203.0.113.7", decoded.ClientIP)
	s.Equal(decoded.ComputeHash(), decoded.Hash)

	s.Require().NoError(s.store.MarkPublished(s.ctx, []uuid.UUID{earlier.ID}))
	entries, err = s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(later.ID, entries[0].ID)
}

// Justification: a decision and its audit event must commit or roll back
// together, otherwise the relay could publish a decision that never happened.
func (s *OutboxSuite) TestAppendJoinsAmbientTransaction() {
	runner := tx.NewRunner(s.pg.DB, 5*time.Second)
	boom := errors.New("case save failed")

	err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(s.store.Append(ctx, s.event(time.Now())))
		return boom
	})
	s.ErrorIs(err, boom)

	entries, err := s.store.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(entries)
}
