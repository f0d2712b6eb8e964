//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/store/postgres"
	id "onekyc/pkg/domain"
	"onekyc/pkg/platform/sentinel"
	"onekyc/pkg/platform/tx"
	"onekyc/pkg/testutil/containers"
)

type PostgresCaseSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.CaseStore
	ctx   context.Context
	now   time.Time
}

func TestPostgresCaseSuite(t *testing.T) {
	suite.Run(t, new(PostgresCaseSuite))
}

func (s *PostgresCaseSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	_, err := s.pg.DB.ExecContext(s.ctx, postgres.Schema)
	s.Require().NoError(err)
}

func (s *PostgresCaseSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE kyc_ukn_reservations, kyc_cases`)
	s.Require().NoError(err)
	s.store = postgres.NewCaseStore(s.pg.DB)
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresCaseSuite) newCase() *models.Case {
	c := models.NewCase(id.NewApplicantID(), s.now)
	s.Require().NoError(s.store.Create(s.ctx, c))
	return c
}

func (s *PostgresCaseSuite) TestCreateAndGet() {
	c := s.newCase()

	got, err := s.store.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal(int64(1), got.Version)
	s.Equal(models.StatusDraft, got.Status)

	byApplicant, err := s.store.GetByApplicant(s.ctx, c.ApplicantID)
	s.Require().NoError(err)
	s.Equal(c.ID, byApplicant.ID)

	s.ErrorIs(s.store.Create(s.ctx, models.NewCase(c.ApplicantID, s.now)), sentinel.ErrConflict)
}

func (s *PostgresCaseSuite) TestOptimisticSave() {
	c := s.newCase()
	a, _ := s.store.Get(s.ctx, c.ID)
	b, _ := s.store.Get(s.ctx, c.ID)

	a.Status = models.StatusRegistered
	s.Require().NoError(s.store.Save(s.ctx, a))
	s.Equal(int64(2), a.Version)

	b.Status = models.StatusFlagged
	s.ErrorIs(s.store.Save(s.ctx, b), sentinel.ErrConflict)

	missing := models.NewCase(id.NewApplicantID(), s.now)
	s.ErrorIs(s.store.Save(s.ctx, missing), sentinel.ErrNotFound)
}

// Justification: the unique index and the reservation table together are what
// guarantee a verification number is never handed out twice.
func (s *PostgresCaseSuite) TestReservationAndCommit() {
	c := s.newCase()
	other := s.newCase()
	ukn := id.UKN("KYC-AAAA-BBBB-CCCC")

	c.UKN = ukn
	s.ErrorIs(s.store.Save(s.ctx, c), sentinel.ErrConflict, "unreserved numbers cannot be committed")

	s.Require().NoError(s.store.ReserveUKN(s.ctx, ukn, c.ID))
	s.NoError(s.store.ReserveUKN(s.ctx, ukn, c.ID))
	s.ErrorIs(s.store.ReserveUKN(s.ctx, ukn, other.ID), sentinel.ErrConflict)

	c.Status = models.StatusVerified
	c.ApprovedBy = models.ActorSystem
	s.Require().NoError(s.store.Save(s.ctx, c))

	got, err := s.store.GetByUKN(s.ctx, ukn)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)

	s.Require().NoError(s.store.ReleaseUKN(s.ctx, ukn, c.ID))
	s.ErrorIs(s.store.ReserveUKN(s.ctx, ukn, other.ID), sentinel.ErrConflict, "committed numbers stay reserved")
}

func (s *PostgresCaseSuite) TestReleaseFreesUncommittedNumber() {
	c := s.newCase()
	other := s.newCase()
	ukn := id.UKN("KYC-AAAA-BBBB-DDDD")

	s.Require().NoError(s.store.ReserveUKN(s.ctx, ukn, c.ID))
	s.Require().NoError(s.store.ReleaseUKN(s.ctx, ukn, c.ID))
	s.NoError(s.store.ReserveUKN(s.ctx, ukn, other.ID))
}

func (s *PostgresCaseSuite) TestSaveJoinsAmbientTransaction() {
	c := s.newCase()
	runner := tx.NewRunner(s.pg.DB, 5*time.Second)
	boom := errors.New("audit outbox unavailable")

	err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
		c.Status = models.StatusRegistered
		if err := s.store.Save(ctx, c); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.Get(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDraft, got.Status, "rolled back with the transaction")
}

func (s *PostgresCaseSuite) TestStats() {
	auto := s.newCase()
	s.Require().NoError(s.store.ReserveUKN(s.ctx, "KYC-0000-0000-0001", auto.ID))
	auto.Status = models.StatusVerified
	auto.ApprovedBy = models.ActorSystem
	auto.UKN = "KYC-0000-0000-0001"
	auto.Risk = &models.RiskAssessment{Probability: 0.1}
	s.Require().NoError(s.store.Save(s.ctx, auto))

	manual := s.newCase()
	s.Require().NoError(s.store.ReserveUKN(s.ctx, "KYC-0000-0000-0002", manual.ID))
	manual.Status = models.StatusVerified
	manual.ApprovedBy = "reviewer-7"
	manual.UKN = "KYC-0000-0000-0002"
	manual.Risk = &models.RiskAssessment{Probability: 0.5}
	s.Require().NoError(s.store.Save(s.ctx, manual))

	s.newCase()

	st, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, st.Total)
	s.Equal(2, st.ByStatus[models.StatusVerified])
	s.Equal(1, st.ByStatus[models.StatusDraft])
	s.Equal(1, st.AutoApproved)
	s.Equal(1, st.ManuallyApproved)
	s.InDelta(0.3, st.AverageRisk, 1e-9)
}
