// Package dedupe detects an applicant re-enrolling under a new case by
// comparing face fingerprints against those of verified cases.
package dedupe

import (
	"math"

	"onekyc/internal/kyc/models"
)

// Threshold is the cosine similarity at or above which two fingerprints are
// considered the same person.
const Threshold = 0.85

// Candidate is a fingerprint bound to a verified case.
type Candidate struct {
	CaseID      string
	UKN         string
	Fingerprint []float64
}

// Check compares fp against every candidate. The highest similarity wins and
// ties keep the earlier candidate. Callers pass only verified cases and never
// the case being checked.
func Check(fp []float64, candidates []Candidate) models.DuplicateMatch {
	best, bestIdx := 0.0, -1
	for i, c := range candidates {
		s := Cosine(fp, c.Fingerprint)
		if bestIdx == -1 || s > best {
			best, bestIdx = s, i
		}
	}
	if bestIdx == -1 {
		return models.DuplicateMatch{}
	}
	m := models.DuplicateMatch{Similarity: best}
	if best >= Threshold {
		m.IsDuplicate = true
		m.MatchedCaseID = candidates[bestIdx].CaseID
		m.MatchedUKN = candidates[bestIdx].UKN
	}
	return m
}

// Cosine returns the cosine similarity of a and b, clamped to [0, 1].
// Vectors of different length or zero norm have similarity 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, s))
}
