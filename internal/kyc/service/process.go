package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"onekyc/internal/kyc/claims"
	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/risk"
	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/audit"
	"onekyc/pkg/requestcontext"
)

// Process runs the automated pipeline on a case: claim reconciliation,
// biometric and duplicate checks, risk scoring and resolution. A claim
// mismatch rejects the case and is not an error. Processing a VERIFIED or
// REJECTED case fails with an invalid state conflict and changes nothing.
func (s *Service) Process(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	ctx, span := tracer.Start(ctx, "KYC.Service.Process",
		trace.WithAttributes(attribute.String("case_id", caseID.String())))
	defer span.End()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.processTimeout)
	defer cancel()

	var out *models.Case
	err := s.withCaseLock(ctx, caseID.String(), func(ctx context.Context) error {
		c, err := s.load(ctx, caseID)
		if err != nil {
			return err
		}
		switch {
		case c.Status.IsTerminal():
			return invalidState("case already processed")
		case !c.Status.Processable():
			return invalidState("case cannot be processed in status " + c.Status.String())
		case len(c.Evidence) == 0:
			return dErrors.New(dErrors.CodeValidation, "no evidence")
		case c.CurrentClaim() == nil:
			return dErrors.New(dErrors.CodeValidation, "no identity claim submitted")
		}
		out = c
		return s.runPipeline(ctx, c)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("status", out.Status.String()))
	s.metrics.ObserveProcessLatency(time.Since(start))
	s.metrics.IncrementOutcome(out.Status.String(), models.ActorSystem)
	s.logger.InfoContext(ctx, "case processed",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", out.ID.String(),
		"status", out.Status.String(),
		"duration", time.Since(start),
	)
	return out, nil
}

func (s *Service) runPipeline(ctx context.Context, c *models.Case) error {
	now := requestcontext.Now(ctx)
	claim := c.CurrentClaim()
	doc := c.Latest(models.KindIdentityDocument)

	var nameScore, identityAddress *float64
	if doc != nil && doc.ExtractionUsable() {
		res := claims.Validate(*claim, doc.Extracted, doc.Kind)
		c.Record(models.EventClaimValidated, models.ActorSystem, map[string]string{
			"evidence_id": doc.ID.String(),
			"ok":          strconv.FormatBool(res.OK),
			"name_score":  fmt.Sprintf("%.4f", res.NameScore),
			"address_ok":  strconv.FormatBool(res.AddressOK),
		}, now)
		if !res.OK {
			return s.rejectOnClaims(ctx, c, res.Reasons, now)
		}
		nameScore, identityAddress = &res.NameScore, res.AddressScore
	} else {
		c.Record(models.EventClaimValidationSkipped, models.ActorSystem, map[string]string{
			"reason": skipReason(doc),
		}, now)
	}

	if err := c.TransitionTo(models.StatusProcessing, models.ActorSystem, now); err != nil {
		return err
	}

	selfie := c.Latest(models.KindBiometricCapture)
	sig := s.gatherSignals(ctx, c, doc, selfie)
	if sig.biometric != nil {
		c.BiometricMatchScore = sig.biometric
		c.Record(models.EventBiometricMatched, models.ActorSystem, map[string]string{
			"score": fmt.Sprintf("%.4f", *sig.biometric),
		}, now)
	}
	if sig.checkedAny {
		c.Record(models.EventDuplicateChecked, models.ActorSystem, map[string]string{
			"checked":    strconv.FormatBool(sig.duplicateChecked),
			"duplicate":  strconv.FormatBool(sig.duplicate.IsDuplicate),
			"similarity": fmt.Sprintf("%.4f", sig.duplicate.Similarity),
		}, now)
	}

	features := buildFeatures(c, doc, nameScore, addressScore(c, claim, identityAddress), sig.biometric, now)
	assessment := risk.Score(features)
	c.Risk = &assessment
	c.Record(models.EventRiskScored, models.ActorSystem, riskSummary(assessment), now)

	decision := resolve(sig.duplicate, sig.duplicateChecked, assessment.Probability)
	if decision.status == models.StatusVerified {
		if err := s.issue(ctx, c, models.ActorSystem, now); err != nil {
			// The case stays in PROCESSING, where a reviewer can approve it.
			if commitErr := s.commit(ctx, c, nil); commitErr != nil {
				return commitErr
			}
			return err
		}
		if err := s.commit(ctx, c, s.complianceEvent(ctx, c, audit.ActionVerified, "automated approval")); err != nil {
			s.releaseUKN(ctx, c.UKN, c.ID)
			return err
		}
		s.indexFingerprint(ctx, c)
		return nil
	}

	if err := c.TransitionTo(decision.status, models.ActorSystem, now); err != nil {
		return err
	}
	c.Duplicate = sig.duplicate.IsDuplicate
	c.ReviewerComment = decision.comment
	return s.commit(ctx, c, s.complianceEvent(ctx, c, audit.ActionReviewRequired, decision.comment))
}

func (s *Service) rejectOnClaims(ctx context.Context, c *models.Case, reasons []string, now time.Time) error {
	if err := c.TransitionTo(models.StatusRejected, models.ActorSystem, now); err != nil {
		return err
	}
	c.ReviewerComment = strings.Join(reasons, "; ")
	s.logger.InfoContext(ctx, "claim mismatch, case rejected",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", c.ID.String(),
		"reasons", len(reasons),
	)
	return s.commit(ctx, c, s.complianceEvent(ctx, c, audit.ActionRejected, c.ReviewerComment))
}

func skipReason(doc *models.EvidenceItem) string {
	switch {
	case doc == nil:
		return "no identity document"
	case doc.Extraction != models.OutcomeOK:
		return "identity document extraction " + strings.ToLower(string(doc.Extraction))
	default:
		return "identity document extraction returned no fields"
	}
}

func riskSummary(a models.RiskAssessment) map[string]string {
	summary := map[string]string{
		"probability": fmt.Sprintf("%.4f", a.Probability),
	}
	if len(a.Attributions) > 0 {
		top := a.Attributions[0]
		summary["top_feature"] = top.Feature
		summary["top_weight"] = fmt.Sprintf("%.4f", top.Weight)
	}
	return summary
}
