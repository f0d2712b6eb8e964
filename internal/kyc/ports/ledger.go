package ports

import (
	"context"
	"time"
)

// Receipt proves an anchoring. TxHash is the reference relying parties use.
type Receipt struct {
	TxHash     string
	BlockIndex int64
	AnchoredAt time.Time
}

// Record is an anchored entry as returned by Lookup.
type Record struct {
	Key            string
	TxHash         string
	BlockIndex     int64
	EvidenceHashes []string
	Summary        map[string]string
	Issuer         string
	AnchoredAt     time.Time
	PrevHash       string
}

// Ledger anchors verification outcomes in an append-only store.
type Ledger interface {
	// Anchor records key once. A second anchor for the same key fails with
	// sentinel.ErrConflict.
	Anchor(ctx context.Context, key string, evidenceHashes []string, summary map[string]string, issuer string) (Receipt, error)
	// Lookup resolves either a tx hash or a key. Missing entries return
	// sentinel.ErrNotFound.
	Lookup(ctx context.Context, ref string) (*Record, error)
}
