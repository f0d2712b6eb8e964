package adapters

import (
	"context"

	"onekyc/internal/kyc/ports"
	"onekyc/internal/ledger"
)

// LedgerAdapter is an in-process adapter that implements ports.Ledger by
// calling the ledger service directly. A remote ledger would replace it
// without touching the engine.
type LedgerAdapter struct {
	ledger *ledger.Service
}

func NewLedgerAdapter(svc *ledger.Service) ports.Ledger {
	return &LedgerAdapter{ledger: svc}
}

func (a *LedgerAdapter) Anchor(ctx context.Context, key string, evidenceHashes []string, summary map[string]string, issuer string) (ports.Receipt, error) {
	b, err := a.ledger.Anchor(ctx, key, evidenceHashes, summary, issuer)
	if err != nil {
		return ports.Receipt{}, err
	}
	return ports.Receipt{
		TxHash:     b.Hash,
		BlockIndex: b.Index,
		AnchoredAt: b.Timestamp,
	}, nil
}

func (a *LedgerAdapter) Lookup(ctx context.Context, ref string) (*ports.Record, error) {
	b, err := a.ledger.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &ports.Record{
		Key:            b.Key,
		TxHash:         b.Hash,
		BlockIndex:     b.Index,
		EvidenceHashes: b.EvidenceHashes,
		Summary:        b.Summary,
		Issuer:         b.Issuer,
		AnchoredAt:     b.Timestamp,
		PrevHash:       b.PrevHash,
	}, nil
}
