package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"onekyc/internal/kyc/claims"
	"onekyc/internal/kyc/dedupe"
	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/risk"
	"onekyc/pkg/requestcontext"
)

// signals are the cross-evidence comparisons made during processing.
type signals struct {
	biometric        *float64
	duplicate        models.DuplicateMatch
	duplicateChecked bool
	checkedAny       bool
}

// gatherSignals compares the selfie with the identity document and checks the
// face fingerprint against every verified one. The duplicate check runs on the
// same embedding that verification indexes, so a selfie without a face falls
// back to the document photo. A face capture that could not be embedded leaves
// the check incomplete and duplicateChecked false.
func (s *Service) gatherSignals(ctx context.Context, c *models.Case, doc, selfie *models.EvidenceItem) signals {
	sig := signals{duplicateChecked: !missingEmbedding(doc, selfie)}
	fp := faceFingerprint(c)
	sig.checkedAny = len(fp) > 0 || !sig.duplicateChecked

	g, gctx := errgroup.WithContext(ctx)
	if s.providers.Biometric != nil && doc != nil && selfie != nil &&
		len(doc.FaceEmbedding) > 0 && len(selfie.FaceEmbedding) > 0 {
		g.Go(func() error {
			score := s.providers.Biometric.MatchScore(selfie.FaceEmbedding, doc.FaceEmbedding)
			score = min(max(score, 0), 1)
			sig.biometric = &score
			return nil
		})
	}
	if len(fp) > 0 {
		g.Go(func() error {
			candidates, err := s.fingerprints.List(gctx)
			if err != nil {
				s.logger.WarnContext(ctx, "fingerprint store unavailable, duplicate check skipped",
					"request_id", requestcontext.RequestID(ctx),
					"case_id", c.ID.String(),
					"error", err,
				)
				sig.duplicateChecked = false
				return nil
			}
			self := c.ID.String()
			pool := candidates[:0:0]
			for _, cand := range candidates {
				if cand.CaseID != self {
					pool = append(pool, cand)
				}
			}
			sig.duplicate = dedupe.Check(fp, pool)
			return nil
		})
	}
	_ = g.Wait()
	return sig
}

// missingEmbedding reports a face that exists but was never embedded: a
// biometric capture with no embedding, or an identity document whose
// embedding provider degraded.
func missingEmbedding(doc, selfie *models.EvidenceItem) bool {
	if selfie != nil && len(selfie.FaceEmbedding) == 0 {
		return true
	}
	return doc != nil && len(doc.FaceEmbedding) == 0 && doc.EmbeddingOutcome == models.OutcomeDegraded
}

// buildFeatures collects the risk inputs. Anything unknown stays nil and is
// scored at its neutral value.
func buildFeatures(c *models.Case, doc *models.EvidenceItem, nameScore, addressScore, biometric *float64, now time.Time) risk.Features {
	f := risk.Features{
		FaceMatchConfidence:      biometric,
		AddressVerificationScore: addressScore,
		NameMatchScore:           nameScore,
	}
	extraction := risk.ExtractionConfidence(doc)
	f.ExtractionConfidence = &extraction

	if doc != nil {
		docType := risk.DocumentTypeRisk(doc.DocumentType)
		f.DocumentTypeRisk = &docType
		f.IDQualityScore = doc.QualityScore
		if doc.ExtractionUsable() {
			if issued, ok := claims.ParseDocumentDate(doc.Extracted.IssueDate); ok {
				years := max(now.Sub(issued).Hours()/24/365.25, 0)
				f.DocumentAgeYears = &years
			}
		}
	}
	if t := latestTransactions(c); t != nil {
		v := float64(t.RiskScore) / 100
		f.TransactionHistoryRisk = &v
	}
	return f
}

func latestTransactions(c *models.Case) *models.TransactionAnalysis {
	for i := len(c.Evidence) - 1; i >= 0; i-- {
		e := c.Evidence[i]
		if e.Kind == models.KindTransactionDocument && e.Transactions != nil {
			return e.Transactions
		}
	}
	return nil
}

// addressScore prefers a readable address proof over the identity document.
func addressScore(c *models.Case, claim *models.IdentityClaim, fromIdentity *float64) *float64 {
	proof := c.Latest(models.KindAddressProof)
	if proof != nil && proof.ExtractionUsable() {
		if score, ok := claims.AddressScore(claim.Address, proof.Extracted.Address); ok {
			return &score
		}
	}
	return fromIdentity
}

// faceFingerprint is the embedding indexed for duplicate detection: the
// selfie when present, otherwise the identity document photo.
func faceFingerprint(c *models.Case) []float64 {
	if selfie := c.Latest(models.KindBiometricCapture); selfie != nil && len(selfie.FaceEmbedding) > 0 {
		return selfie.FaceEmbedding
	}
	if doc := c.Latest(models.KindIdentityDocument); doc != nil {
		return doc.FaceEmbedding
	}
	return nil
}
