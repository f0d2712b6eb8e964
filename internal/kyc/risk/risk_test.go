package risk

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onekyc/internal/kyc/models"
)

func ptr(v float64) *float64 { return &v }

func TestScore_ProbabilityBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	pick := func() *float64 {
		switch rng.IntN(4) {
		case 0:
			return nil
		case 1:
			return ptr(math.NaN())
		case 2:
			return ptr(rng.NormFloat64() * 1e6)
		default:
			return ptr(rng.Float64())
		}
	}
	for range 500 {
		f := Features{pick(), pick(), pick(), pick(), pick(), pick(), pick(), pick()}
		a := Score(f)
		require.GreaterOrEqual(t, a.Probability, 0.0)
		require.LessOrEqual(t, a.Probability, 1.0)
		require.Len(t, a.Attributions, 8)
		for i := 1; i < len(a.Attributions); i++ {
			assert.GreaterOrEqual(t, math.Abs(a.Attributions[i-1].Weight), math.Abs(a.Attributions[i].Weight))
		}
		assert.Equal(t, a, Score(f), "deterministic")
	}
}

func TestScore_StrongApplicantAutoApproves(t *testing.T) {
	a := Score(Features{
		FaceMatchConfidence:  ptr(0.93),
		DocumentTypeRisk:     ptr(DocumentTypeRisk(models.DocPassport)),
		ExtractionConfidence: ptr(0.9),
		NameMatchScore:       ptr(1.0),
	})
	assert.Less(t, a.Probability, 0.30)
}

func TestScore_DegradedExtractionNeverAutoApproves(t *testing.T) {
	// Best values for everything that does not depend on extraction.
	a := Score(Features{
		FaceMatchConfidence:      ptr(1),
		AddressVerificationScore: ptr(1),
		TransactionHistoryRisk:   ptr(0),
		IDQualityScore:           ptr(1),
		DocumentTypeRisk:         ptr(0.1),
	})
	assert.GreaterOrEqual(t, a.Probability, 0.30)
	assert.Equal(t, FeatureExtraction, a.Attributions[0].Feature)
	assert.Equal(t, 0.0, a.Attributions[0].Value)
}

func TestScore_Monotonic(t *testing.T) {
	low := Score(Features{TransactionHistoryRisk: ptr(0.1)}).Probability
	high := Score(Features{TransactionHistoryRisk: ptr(0.6)}).Probability
	assert.Less(t, low, high, "riskier transactions raise probability")

	weak := Score(Features{FaceMatchConfidence: ptr(0.6)}).Probability
	strong := Score(Features{FaceMatchConfidence: ptr(0.95)}).Probability
	assert.Less(t, strong, weak, "better face match lowers probability")
}

func TestScore_TiesKeepDeclarationOrder(t *testing.T) {
	neutral := Features{
		FaceMatchConfidence:      ptr(0.75),
		DocumentAgeYears:         ptr(2),
		AddressVerificationScore: ptr(0.5),
		TransactionHistoryRisk:   ptr(0.2857),
		IDQualityScore:           ptr(0.8),
		DocumentTypeRisk:         ptr(0.3),
		ExtractionConfidence:     ptr(0.85),
		NameMatchScore:           ptr(0.9),
	}
	a := Score(neutral)

	names := make([]string, 0, len(a.Attributions))
	for _, at := range a.Attributions {
		names = append(names, at.Feature)
	}
	assert.Equal(t, []string{
		FeatureFaceMatch, FeatureDocumentAge, FeatureAddress, FeatureTransaction,
		FeatureIDQuality, FeatureDocType, FeatureExtraction, FeatureNameMatch,
	}, names)
	assert.InDelta(t, 1/(1+math.Exp(1.6)), a.Probability, 1e-9)
}

func TestExtractionConfidence(t *testing.T) {
	full := &models.EvidenceItem{Extraction: models.OutcomeOK, Extracted: models.ExtractedFields{Name: "A", DateOfBirth: "1990-01-01"}}
	partial := &models.EvidenceItem{Extraction: models.OutcomeOK, Extracted: models.ExtractedFields{Name: "A"}}
	other := &models.EvidenceItem{Extraction: models.OutcomeOK, Extracted: models.ExtractedFields{Address: "X"}}
	degraded := &models.EvidenceItem{Extraction: models.OutcomeDegraded}

	assert.Equal(t, 0.9, ExtractionConfidence(full))
	assert.Equal(t, 0.7, ExtractionConfidence(partial))
	assert.Equal(t, 0.0, ExtractionConfidence(other))
	assert.Equal(t, 0.0, ExtractionConfidence(degraded))
	assert.Equal(t, 0.0, ExtractionConfidence(nil))
}

func TestDocumentTypeRisk(t *testing.T) {
	assert.Equal(t, 0.1, DocumentTypeRisk(models.DocPassport))
	assert.Equal(t, 0.3, DocumentTypeRisk(models.DocDriversLicense))
	assert.Equal(t, 0.5, DocumentTypeRisk(models.DocNationalID))
	assert.Equal(t, 0.3, DocumentTypeRisk(models.DocAadhaar))
}
