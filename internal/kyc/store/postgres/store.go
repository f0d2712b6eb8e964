// Package postgres persists case aggregates in PostgreSQL.
//
// The aggregate is stored as a JSONB document next to the columns that carry
// constraints or feed statistics. Uniqueness of applicants and verification
// numbers is enforced by the database, not by the service.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"onekyc/internal/kyc/models"
	id "onekyc/pkg/domain"
	"onekyc/pkg/platform/sentinel"
	txcontext "onekyc/pkg/platform/tx"
)

// Schema creates the case and reservation tables.
const Schema = `
CREATE TABLE IF NOT EXISTS kyc_cases (
	id               UUID PRIMARY KEY,
	applicant_id     UUID NOT NULL,
	status           TEXT NOT NULL,
	ukn              TEXT,
	approved_by      TEXT,
	risk_probability DOUBLE PRECISION,
	verified_at      TIMESTAMPTZ,
	expires_at       TIMESTAMPTZ,
	version          BIGINT NOT NULL,
	body             JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	CONSTRAINT kyc_cases_applicant_unique UNIQUE (applicant_id),
	CONSTRAINT kyc_cases_ukn_unique UNIQUE (ukn)
);

CREATE TABLE IF NOT EXISTS kyc_ukn_reservations (
	ukn         TEXT PRIMARY KEY,
	case_id     UUID NOT NULL REFERENCES kyc_cases (id),
	reserved_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const uniqueViolation = "23505"

// CaseStore is a lib/pq backed case store. Calls join a transaction placed
// in the context by tx.Runner.
type CaseStore struct {
	db *sql.DB
}

func NewCaseStore(db *sql.DB) *CaseStore {
	return &CaseStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *CaseStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *CaseStore) Create(ctx context.Context, c *models.Case) error {
	c.Version = 1
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal case: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO kyc_cases (id, applicant_id, status, version, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID.String(), c.ApplicantID.String(), string(c.Status), c.Version, body, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *CaseStore) Get(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	return s.getOne(ctx, `SELECT body FROM kyc_cases WHERE id = $1`, caseID.String())
}

func (s *CaseStore) GetByApplicant(ctx context.Context, applicantID id.ApplicantID) (*models.Case, error) {
	return s.getOne(ctx, `SELECT body FROM kyc_cases WHERE applicant_id = $1`, applicantID.String())
}

func (s *CaseStore) GetByUKN(ctx context.Context, ukn id.UKN) (*models.Case, error) {
	return s.getOne(ctx, `SELECT body FROM kyc_cases WHERE ukn = $1`, ukn.String())
}

func (s *CaseStore) getOne(ctx context.Context, query string, arg any) (*models.Case, error) {
	var body []byte
	err := s.execer(ctx).QueryRowContext(ctx, query, arg).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select case: %w", err)
	}
	var c models.Case
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("unmarshal case: %w", err)
	}
	return &c, nil
}

// Save is an optimistic update on version. A verification number must be
// reserved by this case before it can be committed.
func (s *CaseStore) Save(ctx context.Context, c *models.Case) error {
	expected := c.Version
	next := *c
	next.Version = expected + 1
	body, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal case: %w", err)
	}
	var ukn sql.NullString
	if !c.UKN.IsZero() {
		ukn = sql.NullString{String: c.UKN.String(), Valid: true}
	}
	var riskProbability sql.NullFloat64
	if c.Risk != nil {
		riskProbability = sql.NullFloat64{Float64: c.Risk.Probability, Valid: true}
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE kyc_cases
		SET status = $3, ukn = $4, approved_by = $5, risk_probability = $6,
		    verified_at = $7, expires_at = $8, version = $9, body = $10, updated_at = $11
		WHERE id = $1 AND version = $2
		  AND ($4::text IS NULL OR EXISTS (
		      SELECT 1 FROM kyc_ukn_reservations r WHERE r.ukn = $4 AND r.case_id = $1))`,
		c.ID.String(), expected, string(c.Status), ukn, nullString(c.ApprovedBy), riskProbability,
		c.VerifiedAt, c.ExpiresAt, next.Version, body, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, c.ID); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	c.Version = next.Version
	return nil
}

// ReserveUKN inserts the reservation outside any ambient transaction so a
// concurrent issuer sees it immediately.
func (s *CaseStore) ReserveUKN(ctx context.Context, ukn id.UKN, caseID id.CaseID) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO kyc_ukn_reservations (ukn, case_id) VALUES ($1, $2)
		ON CONFLICT (ukn) DO NOTHING`,
		ukn.String(), caseID.String(),
	)
	if err != nil {
		return fmt.Errorf("reserve ukn: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var holder string
	err = s.db.QueryRowContext(ctx, `SELECT case_id FROM kyc_ukn_reservations WHERE ukn = $1`, ukn.String()).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		// released between the insert and the read; the caller draws again
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("read ukn reservation: %w", err)
	}
	if holder != caseID.String() {
		return sentinel.ErrConflict
	}
	return nil
}

// ReleaseUKN never drops a number already committed to a case.
func (s *CaseStore) ReleaseUKN(ctx context.Context, ukn id.UKN, caseID id.CaseID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM kyc_ukn_reservations r
		WHERE r.ukn = $1 AND r.case_id = $2
		  AND NOT EXISTS (SELECT 1 FROM kyc_cases c WHERE c.ukn = r.ukn)`,
		ukn.String(), caseID.String(),
	)
	if err != nil {
		return fmt.Errorf("release ukn: %w", err)
	}
	return nil
}

func (s *CaseStore) Stats(ctx context.Context) (models.Stats, error) {
	st := models.Stats{ByStatus: map[models.Status]int{}}
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT status, count(*) FROM kyc_cases GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("count cases by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, fmt.Errorf("scan status count: %w", err)
		}
		st.ByStatus[models.Status(status)] = n
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("iterate status counts: %w", err)
	}

	err = s.execer(ctx).QueryRowContext(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'VERIFIED' AND approved_by = $1),
			count(*) FILTER (WHERE status = 'VERIFIED' AND approved_by <> $1),
			COALESCE(avg(risk_probability), 0)
		FROM kyc_cases`, models.ActorSystem,
	).Scan(&st.AutoApproved, &st.ManuallyApproved, &st.AverageRisk)
	if err != nil {
		return st, fmt.Errorf("aggregate cases: %w", err)
	}
	return st, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
