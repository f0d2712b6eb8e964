package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"onekyc/internal/kyc/liveness"
	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/transactions"
	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/audit"
	"onekyc/pkg/requestcontext"
)

const (
	maxUploadBytes = 10 << 20

	livenessFailedComment = "Liveness check failed: No eye blink detected in video"
)

// Upload is raw evidence handed to AddEvidence. Video captures carry their
// frames in Frames and leave Content empty.
type Upload struct {
	Kind         models.EvidenceKind
	DocumentType models.DocumentType
	Content      []byte
	Frames       [][]byte
}

func (u Upload) isVideo() bool {
	return u.Kind == models.KindBiometricCapture && u.DocumentType == models.DocVideo
}

func (u Upload) validate() error {
	if _, _, err := models.ParseEvidence(string(u.Kind), string(u.DocumentType)); err != nil {
		return err
	}
	if u.isVideo() {
		if len(u.Frames) == 0 {
			return dErrors.New(dErrors.CodeValidation, "video capture requires at least one frame")
		}
		total := 0
		for _, f := range u.Frames {
			if len(f) == 0 {
				return dErrors.New(dErrors.CodeValidation, "video frames must not be empty")
			}
			total += len(f)
		}
		if total > maxUploadBytes {
			return dErrors.New(dErrors.CodeValidation, "video capture is too large")
		}
		return nil
	}
	if len(u.Content) == 0 {
		return dErrors.New(dErrors.CodeValidation, "evidence content is required")
	}
	if len(u.Content) > maxUploadBytes {
		return dErrors.New(dErrors.CodeValidation, "evidence content is too large")
	}
	return nil
}

// fingerprint is the sha256 of the raw bytes. Frames are hashed in order.
func (u Upload) fingerprint() string {
	h := sha256.New()
	if u.isVideo() {
		for _, f := range u.Frames {
			h.Write(f)
		}
	} else {
		h.Write(u.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AddEvidence analyses an upload and attaches it to the case. Provider calls
// run before the case lock is taken; the status is re-checked under the lock.
// Uploading the same bytes twice returns the case unchanged.
//
// A suspicious transaction document or a video capture showing a face that
// never blinks moves the case to FLAGGED.
func (s *Service) AddEvidence(ctx context.Context, caseID id.CaseID, up Upload) (*models.Case, error) {
	if err := up.validate(); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.Status.AcceptsEvidence() {
		return nil, invalidState("case does not accept evidence in status " + c.Status.String())
	}
	fp := up.fingerprint()
	if hasFingerprint(c, fp) {
		return c, nil
	}

	item := s.analyze(ctx, up, fp)

	var out *models.Case
	err = s.withCaseLock(ctx, caseID.String(), func(ctx context.Context) error {
		c, err := s.load(ctx, caseID)
		if err != nil {
			return err
		}
		if !c.Status.AcceptsEvidence() {
			return invalidState("case does not accept evidence in status " + c.Status.String())
		}
		if hasFingerprint(c, fp) {
			out = c
			return nil
		}

		now := requestcontext.Now(ctx)
		actor := actorID(ctx)
		c.Evidence = append(c.Evidence, item)
		c.UpdatedAt = now
		recordIngestion(c, item, actor, now)

		var event *audit.ComplianceEvent
		if comment, flag := ingestionFlag(item); flag {
			if err := c.TransitionTo(models.StatusFlagged, actor, now); err != nil {
				return err
			}
			c.ReviewerComment = comment
			event = s.complianceEvent(ctx, c, audit.ActionFlagged, comment)
		} else if c.Status == models.StatusDraft || c.Status == models.StatusRegistered {
			if err := c.TransitionTo(models.StatusUploaded, actor, now); err != nil {
				return err
			}
		}
		if err := s.commit(ctx, c, event); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementEvidence(string(item.Kind))
	s.logger.InfoContext(ctx, "evidence ingested",
		"request_id", requestcontext.RequestID(ctx),
		"case_id", caseID.String(),
		"kind", string(item.Kind),
		"document_type", string(item.DocumentType),
		"status", out.Status.String(),
	)
	return out, nil
}

func hasFingerprint(c *models.Case, fp string) bool {
	for _, e := range c.Evidence {
		if e.Fingerprint == fp {
			return true
		}
	}
	return false
}

// ingestionFlag decides whether a freshly analysed item alone warrants review.
func ingestionFlag(item models.EvidenceItem) (string, bool) {
	if t := item.Transactions; t != nil && t.IsSuspicious {
		return "Transaction document flagged: " + strings.Join(t.Indicators, ", "), true
	}
	if l := item.Liveness; l != nil && l.Video && l.FaceDetected && !l.IsLive {
		return livenessFailedComment, true
	}
	return "", false
}

func recordIngestion(c *models.Case, item models.EvidenceItem, actor string, now time.Time) {
	c.Record(models.EventEvidenceIngested, actor, map[string]string{
		"evidence_id":   item.ID.String(),
		"kind":          string(item.Kind),
		"document_type": string(item.DocumentType),
		"fingerprint":   item.Fingerprint,
		"extraction":    string(item.Extraction),
	}, now)
	for _, p := range item.DegradedProviders {
		c.Record(models.EventProviderDegraded, models.ActorSystem, map[string]string{
			"evidence_id": item.ID.String(),
			"provider":    p,
		}, now)
	}
	if l := item.Liveness; l != nil {
		c.Record(models.EventLivenessAssessed, models.ActorSystem, map[string]string{
			"evidence_id":   item.ID.String(),
			"face_detected": strconv.FormatBool(l.FaceDetected),
			"is_live":       strconv.FormatBool(l.IsLive),
			"blinks":        strconv.Itoa(l.BlinkCount),
			"confidence":    fmt.Sprintf("%.2f", l.Confidence),
		}, now)
	}
	if t := item.Transactions; t != nil {
		c.Record(models.EventTransactionsAnalyzed, models.ActorSystem, map[string]string{
			"evidence_id":  item.ID.String(),
			"risk_score":   strconv.Itoa(t.RiskScore),
			"suspicious":   strconv.FormatBool(t.IsSuspicious),
			"transactions": strconv.Itoa(t.TransactionCount),
		}, now)
	}
}

// analyze builds the immutable evidence item. It never fails: provider
// problems are recorded as degraded outcomes.
func (s *Service) analyze(ctx context.Context, up Upload, fp string) models.EvidenceItem {
	item := models.EvidenceItem{
		ID:               id.NewEvidenceID(),
		Kind:             up.Kind,
		DocumentType:     up.DocumentType,
		Fingerprint:      fp,
		Extraction:       models.OutcomeSkipped,
		EmbeddingOutcome: models.OutcomeSkipped,
		UploadedAt:       requestcontext.Now(ctx),
	}
	degraded := map[string]bool{}

	switch up.Kind {
	case models.KindIdentityDocument:
		var qualityOutcome models.ProviderOutcome
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			item.Extracted, item.Extraction = s.extract(gctx, up.Content)
			return nil
		})
		g.Go(func() error {
			item.QualityScore, qualityOutcome = s.scoreQuality(gctx, up.Content)
			return nil
		})
		g.Go(func() error {
			item.FaceEmbedding, item.EmbeddingOutcome = s.embed(gctx, up.Content)
			return nil
		})
		_ = g.Wait()
		degraded[providerQuality] = qualityOutcome == models.OutcomeDegraded

	case models.KindAddressProof:
		item.Extracted, item.Extraction = s.extract(ctx, up.Content)

	case models.KindTransactionDocument:
		item.Extracted, item.Extraction = s.extract(ctx, up.Content)
		// Unreadable statements are not analysed; an empty one is.
		if item.Extraction == models.OutcomeOK {
			a := transactions.Analyze(item.Extracted.RawText, up.DocumentType)
			item.Transactions = &a
		}

	case models.KindBiometricCapture:
		var still []byte
		var landmarkOutcome models.ProviderOutcome
		if up.isVideo() {
			item.Liveness, still, landmarkOutcome = s.assessVideo(ctx, up.Frames)
		} else {
			item.Liveness, landmarkOutcome = s.assessStill(ctx, up.Content)
			still = up.Content
		}
		degraded[providerLandmarks] = landmarkOutcome == models.OutcomeDegraded
		if still != nil {
			item.FaceEmbedding, item.EmbeddingOutcome = s.embed(ctx, still)
		}
	}

	degraded[providerExtractor] = item.Extraction == models.OutcomeDegraded
	degraded[providerBiometric] = item.EmbeddingOutcome == models.OutcomeDegraded
	for _, p := range []string{providerExtractor, providerQuality, providerLandmarks, providerBiometric} {
		if degraded[p] {
			item.DegradedProviders = append(item.DegradedProviders, p)
		}
	}
	return item
}

func (s *Service) detectEyes(ctx context.Context, frame []byte) (*liveness.EyeLandmarks, models.ProviderOutcome) {
	return guarded(ctx, s, s.landmarkBreaker, func(ctx context.Context) (*liveness.EyeLandmarks, error) {
		return s.providers.Landmarks.DetectEyes(ctx, frame)
	})
}

func (s *Service) assessStill(ctx context.Context, image []byte) (*models.LivenessResult, models.ProviderOutcome) {
	if s.providers.Landmarks == nil {
		s.metrics.IncrementProviderSkipped(providerLandmarks)
		return nil, models.OutcomeSkipped
	}
	marks, outcome := s.detectEyes(ctx, image)
	if outcome != models.OutcomeOK {
		return nil, outcome
	}
	res := liveness.AssessStill(marks)
	return &res, outcome
}

// assessVideo runs landmark detection over the analysed frames and returns
// the liveness verdict plus the frame to embed. Without usable landmarks the
// first frame is embedded.
func (s *Service) assessVideo(ctx context.Context, frames [][]byte) (*models.LivenessResult, []byte, models.ProviderOutcome) {
	if s.providers.Landmarks == nil {
		s.metrics.IncrementProviderSkipped(providerLandmarks)
		return nil, frames[0], models.OutcomeSkipped
	}
	n := min(len(frames), liveness.MaxFrames)
	marks := make([]*liveness.EyeLandmarks, n)
	for i := range n {
		m, outcome := s.detectEyes(ctx, frames[i])
		if outcome != models.OutcomeOK {
			return nil, frames[0], outcome
		}
		marks[i] = m
	}
	res := liveness.AssessVideo(marks, liveness.MaxFrames)
	var still []byte
	if res.BestFrameIndex >= 0 {
		still = frames[res.BestFrameIndex]
	}
	return &res, still, models.OutcomeOK
}
