package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"onekyc/internal/ledger"
	"onekyc/pkg/platform/sentinel"
)

// Schema creates the ledger table. The primary key on idx serializes
// concurrent appends; the unique key makes every key anchor once.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_blocks (
	idx             BIGINT PRIMARY KEY,
	key             TEXT NOT NULL,
	hash            TEXT NOT NULL,
	prev_hash       TEXT NOT NULL,
	evidence_hashes JSONB NOT NULL,
	summary         JSONB NOT NULL,
	issuer          TEXT NOT NULL,
	version         TEXT NOT NULL,
	anchored_at     TIMESTAMPTZ NOT NULL,
	CONSTRAINT ledger_blocks_key_unique UNIQUE (key),
	CONSTRAINT ledger_blocks_hash_unique UNIQUE (hash)
);
`

const uniqueViolation = "23505"

// Store is a pgx-backed ledger.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectColumns = `idx, key, hash, prev_hash, evidence_hashes, summary, issuer, version, anchored_at`

func (s *Store) Head(ctx context.Context) (*ledger.Block, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM ledger_blocks ORDER BY idx DESC LIMIT 1`)
	b, err := scanBlock(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

func (s *Store) Append(ctx context.Context, b ledger.Block) error {
	hashes, err := json.Marshal(b.EvidenceHashes)
	if err != nil {
		return fmt.Errorf("marshal evidence hashes: %w", err)
	}
	summary, err := json.Marshal(b.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ledger_blocks (idx, key, hash, prev_hash, evidence_hashes, summary, issuer, version, anchored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.Index, b.Key, b.Hash, b.PrevHash, hashes, summary, b.Issuer, b.Version, b.Timestamp,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == "ledger_blocks_key_unique" {
			return sentinel.ErrConflict
		}
		return ledger.ErrIndexTaken
	}
	if err != nil {
		return fmt.Errorf("insert ledger block: %w", err)
	}
	return nil
}

func (s *Store) ByHash(ctx context.Context, hash string) (*ledger.Block, error) {
	return scanBlock(s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM ledger_blocks WHERE hash = $1`, hash))
}

func (s *Store) ByKey(ctx context.Context, key string) (*ledger.Block, error) {
	return scanBlock(s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM ledger_blocks WHERE key = $1`, key))
}

func (s *Store) Range(ctx context.Context, fromIndex int64, limit int) ([]ledger.Block, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM ledger_blocks WHERE idx >= $1 ORDER BY idx LIMIT $2`,
		fromIndex, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger range: %w", err)
	}
	defer rows.Close()

	var out []ledger.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger range: %w", err)
	}
	return out, nil
}

func scanBlock(row pgx.Row) (*ledger.Block, error) {
	var (
		b       ledger.Block
		hashes  []byte
		summary []byte
	)
	err := row.Scan(&b.Index, &b.Key, &b.Hash, &b.PrevHash, &hashes, &summary, &b.Issuer, &b.Version, &b.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ledger block: %w", err)
	}
	if err := json.Unmarshal(hashes, &b.EvidenceHashes); err != nil {
		return nil, fmt.Errorf("decode evidence hashes: %w", err)
	}
	if err := json.Unmarshal(summary, &b.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	b.Timestamp = b.Timestamp.UTC()
	return &b, nil
}
