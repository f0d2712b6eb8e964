package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"onekyc/internal/kyc/dedupe"
	"onekyc/internal/kyc/models"
	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/sentinel"
	"onekyc/pkg/requestcontext"
)

// issue reserves a fresh verification number, anchors it and only then moves
// the case to VERIFIED. When anchoring fails the reservation is released and
// the case keeps its status with an anchoring_failed event.
func (s *Service) issue(ctx context.Context, c *models.Case, approvedBy string, now time.Time) error {
	if !c.Status.CanTransitionTo(models.StatusVerified) {
		return invalidState("case cannot be verified in status " + c.Status.String())
	}
	ukn, err := s.reserveUKN(ctx, c.ID)
	if err != nil {
		return err
	}

	summary := map[string]string{
		"case_id":      c.ID.String(),
		"applicant_id": c.ApplicantID.String(),
		"approved_by":  approvedBy,
		"verified_at":  now.UTC().Format(time.RFC3339),
		"expires_at":   now.Add(s.validity).UTC().Format(time.RFC3339),
	}
	if c.Risk != nil {
		summary["risk_probability"] = fmt.Sprintf("%.4f", c.Risk.Probability)
	}
	receipt, err := s.ledger.Anchor(ctx, ukn.String(), c.EvidenceFingerprints(), summary, s.issuer)
	if err != nil {
		s.releaseUKN(ctx, ukn, c.ID)
		c.Record(models.EventAnchoringFailed, models.ActorSystem, map[string]string{
			"error": err.Error(),
		}, now)
		s.logger.ErrorContext(ctx, "ledger anchoring failed",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", c.ID.String(),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger anchoring failed")
	}

	if err := c.TransitionTo(models.StatusVerified, approvedBy, now); err != nil {
		return err
	}
	c.MarkVerified(ukn, receipt.TxHash, approvedBy, now, s.validity)
	c.Record(models.EventUKNIssued, approvedBy, map[string]string{
		"ukn":        ukn.String(),
		"expires_at": c.ExpiresAt.UTC().Format(time.RFC3339),
	}, now)
	c.Record(models.EventLedgerAnchored, models.ActorSystem, map[string]string{
		"tx_hash":     receipt.TxHash,
		"block_index": strconv.FormatInt(receipt.BlockIndex, 10),
	}, now)
	return nil
}

// reserveUKN draws numbers until the store accepts one. Exhausting the
// attempts is an internal error: with 48 random bits it means the source is broken.
func (s *Service) reserveUKN(ctx context.Context, caseID id.CaseID) (id.UKN, error) {
	for attempt := 1; attempt <= s.maxUKNAttempts; attempt++ {
		ukn, err := id.GenerateUKN(s.random)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification number")
		}
		err = s.cases.ReserveUKN(ctx, ukn, caseID)
		if err == nil {
			return ukn, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve verification number")
		}
		s.metrics.IncrementUKNCollision()
		s.logger.WarnContext(ctx, "verification number collision, drawing again",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID.String(),
			"attempt", attempt,
		)
	}
	return "", dErrors.New(dErrors.CodeInternal,
		fmt.Sprintf("could not allocate a unique verification number after %d attempts", s.maxUKNAttempts))
}

func (s *Service) releaseUKN(ctx context.Context, ukn id.UKN, caseID id.CaseID) {
	if err := s.cases.ReleaseUKN(context.WithoutCancel(ctx), ukn, caseID); err != nil {
		s.logger.ErrorContext(ctx, "failed to release verification number reservation",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID.String(),
			"error", err,
		)
	}
}

// indexFingerprint adds a verified case to the duplicate detection pool.
func (s *Service) indexFingerprint(ctx context.Context, c *models.Case) {
	fp := faceFingerprint(c)
	if len(fp) == 0 {
		return
	}
	err := s.fingerprints.Put(context.WithoutCancel(ctx), dedupe.Candidate{
		CaseID:      c.ID.String(),
		UKN:         c.UKN.String(),
		Fingerprint: fp,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to index verified fingerprint",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", c.ID.String(),
			"error", err,
		)
	}
}
