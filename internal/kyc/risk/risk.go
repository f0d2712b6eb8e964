// Package risk scores a case with a pre-fit logistic model over eight
// standardized features and explains the score per feature.
package risk

import (
	"math"
	"sort"

	"onekyc/internal/kyc/models"
)

// Feature names in declaration order. Attribution ties fall back to this order.
const (
	FeatureFaceMatch   = "face_match_confidence"
	FeatureDocumentAge = "document_age_years"
	FeatureAddress     = "address_verification_score"
	FeatureTransaction = "transaction_history_risk"
	FeatureIDQuality   = "id_quality_score"
	FeatureDocType     = "document_type_risk"
	FeatureExtraction  = "extraction_confidence"
	FeatureNameMatch   = "name_match_score"
)

const (
	intercept = -1.6
	zClamp    = 3.0
)

type feature struct {
	name    string
	coef    float64
	mean    float64
	std     float64
	neutral float64
}

// model is the pre-fit classifier. Coefficients act on z-scores, so a
// positive coefficient means a higher raw value raises risk.
var model = []feature{
	{FeatureFaceMatch, -0.9, 0.75, 0.1443, 0.85},
	{FeatureDocumentAge, 0.35, 2.0, 2.0, 1.5},
	{FeatureAddress, -0.3, 0.5, 0.4082, 0.5},
	{FeatureTransaction, 0.8, 0.2857, 0.1597, 0.2},
	{FeatureIDQuality, -0.35, 0.8, 0.1155, 0.8},
	{FeatureDocType, 0.3, 0.3, 0.1633, 0.3},
	{FeatureExtraction, -2.0, 0.85, 0.0866, 0.0},
	{FeatureNameMatch, -0.45, 0.9, 0.0577, 0.9},
}

// Features are the scorer inputs, already normalized by the caller. A nil
// field takes the feature's neutral default.
type Features struct {
	FaceMatchConfidence      *float64
	DocumentAgeYears         *float64
	AddressVerificationScore *float64
	TransactionHistoryRisk   *float64
	IDQualityScore           *float64
	DocumentTypeRisk         *float64
	ExtractionConfidence     *float64
	NameMatchScore           *float64
}

func (f Features) values() []*float64 {
	return []*float64{
		f.FaceMatchConfidence,
		f.DocumentAgeYears,
		f.AddressVerificationScore,
		f.TransactionHistoryRisk,
		f.IDQualityScore,
		f.DocumentTypeRisk,
		f.ExtractionConfidence,
		f.NameMatchScore,
	}
}

// Score returns the probability of the case being fraudulent together with
// per-feature attributions, most impactful first. It is deterministic.
func Score(f Features) models.RiskAssessment {
	inputs := f.values()
	logit := intercept
	attrs := make([]models.Attribution, len(model))
	for i, m := range model {
		v := m.neutral
		if inputs[i] != nil && !math.IsNaN(*inputs[i]) {
			v = *inputs[i]
		}
		z := math.Max(-zClamp, math.Min(zClamp, (v-m.mean)/m.std))
		contribution := m.coef * z
		logit += contribution
		attrs[i] = models.Attribution{Feature: m.name, Weight: contribution, Value: v}
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		return math.Abs(attrs[i].Weight) > math.Abs(attrs[j].Weight)
	})
	return models.RiskAssessment{
		Probability:  sigmoid(logit),
		Attributions: attrs,
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

var documentTypeRisk = map[models.DocumentType]float64{
	models.DocPassport:       0.1,
	models.DocDriversLicense: 0.3,
	models.DocNationalID:     0.5,
}

// DocumentTypeRisk weights the identity document type. Unlisted types are 0.3.
func DocumentTypeRisk(t models.DocumentType) float64 {
	if w, ok := documentTypeRisk[t]; ok {
		return w
	}
	return 0.3
}

// ExtractionConfidence rates how much of the identity document was read:
// 0.9 with both name and date of birth, 0.7 with either, 0 when extraction
// degraded, came back empty, or there is no identity document.
func ExtractionConfidence(doc *models.EvidenceItem) float64 {
	switch {
	case doc == nil || !doc.ExtractionUsable():
		return 0
	case doc.Extracted.HasCoreIdentity():
		return 0.9
	case doc.Extracted.Name != "" || doc.Extracted.DateOfBirth != "":
		return 0.7
	default:
		return 0
	}
}
