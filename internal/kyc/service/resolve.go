package service

import (
	"context"
	"errors"
	"time"

	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/ports"
	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/sentinel"
	"onekyc/pkg/requestcontext"
)

// Verification is what a relying party learns from a verification number.
type Verification struct {
	UKN           id.UKN        `json:"ukn"`
	Status        models.Status `json:"status"`
	VerifiedAt    time.Time     `json:"verified_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	LedgerReceipt string        `json:"ledger_receipt"`
}

// ResolveUKN checks that a verification number is issued and still valid.
// Unknown numbers are not found; expired ones are gone.
func (s *Service) ResolveUKN(ctx context.Context, raw string) (*Verification, error) {
	ukn, err := id.ParseUKN(raw)
	if err != nil {
		return nil, err
	}
	c, err := s.cases.GetByUKN(ctx, ukn)
	if err != nil {
		return nil, translateStoreErr(err, "verification number not found")
	}
	if c.Status != models.StatusVerified || c.VerifiedAt == nil || c.ExpiresAt == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification number not found")
	}
	if c.IsExpired(requestcontext.Now(ctx)) {
		return nil, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeGone, "verification has expired")
	}
	return &Verification{
		UKN:           c.UKN,
		Status:        c.Status,
		VerifiedAt:    *c.VerifiedAt,
		ExpiresAt:     *c.ExpiresAt,
		LedgerReceipt: c.LedgerReceipt,
	}, nil
}

// LookupLedger resolves a ledger receipt or verification number.
func (s *Service) LookupLedger(ctx context.Context, ref string) (*ports.Record, error) {
	if ref == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ledger reference is required")
	}
	rec, err := s.ledger.Lookup(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "ledger entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ledger lookup failed")
	}
	return rec, nil
}

// Stats summarizes all cases.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	st, err := s.cases.Stats(ctx)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute statistics")
	}
	return st, nil
}
