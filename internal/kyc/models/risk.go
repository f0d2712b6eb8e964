package models

// Attribution is one feature's contribution to a risk probability.
type Attribution struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
	Value   float64 `json:"value"`
}

// RiskAssessment is the latest risk score for a case with attributions
// ordered most impactful first.
type RiskAssessment struct {
	Probability  float64       `json:"probability"`
	Attributions []Attribution `json:"attributions"`
}

// DuplicateMatch is produced by duplicate detection; it is never stored on its own.
type DuplicateMatch struct {
	IsDuplicate   bool
	MatchedCaseID string
	MatchedUKN    string
	Similarity    float64
}
