package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"onekyc/internal/kyc/models"
	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/audit"
	"onekyc/pkg/requestcontext"
)

const maxCommentLength = 2000

// Approve verifies a case on a reviewer's authority. Issuance and anchoring
// are the same as for automated approval, with the reviewer as approver.
func (s *Service) Approve(ctx context.Context, caseID id.CaseID, comment string) (*models.Case, error) {
	ctx, span := tracer.Start(ctx, "KYC.Service.Approve",
		trace.WithAttributes(attribute.String("case_id", caseID.String())))
	defer span.End()

	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLength {
		return nil, dErrors.New(dErrors.CodeValidation, "comment is too long")
	}

	var out *models.Case
	err := s.withCaseLock(ctx, caseID.String(), func(ctx context.Context) error {
		c, err := s.reviewable(ctx, caseID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		reviewer := actorID(ctx)
		c.Record(models.EventReviewerDecision, reviewer, map[string]string{
			"decision": "approve",
			"comment":  comment,
		}, now)
		if comment != "" {
			c.ReviewerComment = comment
		}
		if err := s.issue(ctx, c, reviewer, now); err != nil {
			if commitErr := s.commit(ctx, c, nil); commitErr != nil {
				return commitErr
			}
			return err
		}
		if err := s.commit(ctx, c, s.complianceEvent(ctx, c, audit.ActionVerified, comment)); err != nil {
			s.releaseUKN(ctx, c.UKN, c.ID)
			return err
		}
		s.indexFingerprint(ctx, c)
		out = c
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.metrics.IncrementOutcome(out.Status.String(), "reviewer")
	s.logger.InfoContext(ctx, "case approved by reviewer",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", out.ID.String(),
		"reviewer", out.ApprovedBy,
	)
	return out, nil
}

// Reject closes a case. A comment is required.
func (s *Service) Reject(ctx context.Context, caseID id.CaseID, comment string) (*models.Case, error) {
	return s.reviewerTransition(ctx, caseID, comment, models.StatusRejected, audit.ActionRejected, "reject")
}

// RequestInfo asks the applicant for more evidence. A comment is required.
// The case accepts uploads again and may be re-processed.
func (s *Service) RequestInfo(ctx context.Context, caseID id.CaseID, comment string) (*models.Case, error) {
	return s.reviewerTransition(ctx, caseID, comment, models.StatusRequestInfo, audit.ActionInfoRequested, "request_info")
}

func (s *Service) reviewerTransition(ctx context.Context, caseID id.CaseID, comment string, next models.Status, action audit.Action, decision string) (*models.Case, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "comment is required")
	}
	if len(comment) > maxCommentLength {
		return nil, dErrors.New(dErrors.CodeValidation, "comment is too long")
	}

	var out *models.Case
	err := s.withCaseLock(ctx, caseID.String(), func(ctx context.Context) error {
		c, err := s.reviewable(ctx, caseID)
		if err != nil {
			return err
		}
		if !c.Status.CanTransitionTo(next) {
			return invalidState("case in status " + c.Status.String() + " cannot move to " + next.String())
		}
		now := requestcontext.Now(ctx)
		reviewer := actorID(ctx)
		c.Record(models.EventReviewerDecision, reviewer, map[string]string{
			"decision": decision,
			"comment":  comment,
		}, now)
		if err := c.TransitionTo(next, reviewer, now); err != nil {
			return err
		}
		c.ReviewerComment = comment
		if err := s.commit(ctx, c, s.complianceEvent(ctx, c, action, comment)); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementOutcome(out.Status.String(), "reviewer")
	s.logger.InfoContext(ctx, "reviewer decision recorded",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", out.ID.String(),
		"status", out.Status.String(),
	)
	return out, nil
}

func (s *Service) reviewable(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.Status.Reviewable() {
		return nil, invalidState("case is not awaiting review in status " + c.Status.String())
	}
	return c, nil
}
