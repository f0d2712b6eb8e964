package service

import (
	"context"
	"errors"
	"strconv"

	"onekyc/internal/kyc/models"
	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/audit"
	"onekyc/pkg/platform/middleware/metadata"
	"onekyc/pkg/platform/sentinel"
	"onekyc/pkg/requestcontext"
)

// OpenCase starts a DRAFT case. An applicant has at most one case.
func (s *Service) OpenCase(ctx context.Context, applicantID id.ApplicantID) (*models.Case, error) {
	if applicantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "applicant_id is required")
	}
	c := models.NewCase(applicantID, requestcontext.Now(ctx))
	if err := s.cases.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "applicant already has a verification case")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
	}
	s.logger.InfoContext(ctx, "case opened",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", c.ID.String(),
	)
	return c, nil
}

// GetCase loads a case.
func (s *Service) GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	return s.load(ctx, caseID)
}

// CaseForApplicant loads the applicant's case.
func (s *Service) CaseForApplicant(ctx context.Context, applicantID id.ApplicantID) (*models.Case, error) {
	c, err := s.cases.GetByApplicant(ctx, applicantID)
	if err != nil {
		return nil, translateStoreErr(err, "case not found")
	}
	return c, nil
}

// SubmitClaim appends a claim. The newest claim supersedes earlier ones.
func (s *Service) SubmitClaim(ctx context.Context, caseID id.CaseID, claim models.IdentityClaim) (*models.Case, error) {
	if err := claim.Validate(); err != nil {
		return nil, err
	}
	var out *models.Case
	err := s.withCaseLock(ctx, caseID.String(), func(ctx context.Context) error {
		c, err := s.load(ctx, caseID)
		if err != nil {
			return err
		}
		if !c.Status.AcceptsEvidence() {
			return invalidState("case no longer accepts claims in status " + c.Status.String())
		}
		now := requestcontext.Now(ctx)
		claim.SubmittedAt = now
		c.Claims = append(c.Claims, claim)
		c.UpdatedAt = now
		c.Record(models.EventClaimSubmitted, actorID(ctx), map[string]string{
			"revision": strconv.Itoa(len(c.Claims)),
		}, now)
		if c.Status == models.StatusDraft {
			if err := c.TransitionTo(models.StatusRegistered, actorID(ctx), now); err != nil {
				return err
			}
		}
		if err := s.commit(ctx, c, nil); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return nil, translateStoreErr(err, "case not found")
	}
	return c, nil
}

// commit saves c and, when event is set, emits it in the same unit of work.
// The audit publisher is fail-closed, so a lost event aborts the save.
func (s *Service) commit(ctx context.Context, c *models.Case, event *audit.ComplianceEvent) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if event != nil && s.auditor != nil {
			if err := s.auditor.Emit(ctx, *event); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
			}
		}
		if err := s.cases.Save(ctx, c); err != nil {
			return translateStoreErr(err, "failed to save case")
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist case",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", c.ID.String(),
			"status", c.Status.String(),
			"error", err,
		)
	}
	return err
}

func (s *Service) complianceEvent(ctx context.Context, c *models.Case, action audit.Action, reason string) *audit.ComplianceEvent {
	return &audit.ComplianceEvent{
		Timestamp:   requestcontext.Now(ctx),
		CaseID:      c.ID,
		ApplicantID: c.ApplicantID,
		Action:      action,
		Decision:    c.Status.String(),
		Reason:      reason,
		UKN:         c.UKN.String(),
		RequestID:   requestcontext.RequestID(ctx),
		ActorID:     actorID(ctx),
		ClientIP:    metadata.GetClientIP(ctx),
	}
}

// actorID is the authenticated caller, or "system" for background work.
func actorID(ctx context.Context) string {
	if p := requestcontext.Actor(ctx); p.ID != "" {
		return p.ID
	}
	return models.ActorSystem
}

func translateStoreErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case dErrors.GetCode(err) != dErrors.CodeInternal:
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "case was modified concurrently, retry")
	case errors.Is(err, sentinel.ErrLocked):
		return dErrors.Wrap(err, dErrors.CodeConflict, "case is locked by another writer, retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "store failure")
	}
}

func invalidState(msg string) error {
	return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeConflict, msg)
}
