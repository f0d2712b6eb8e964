// Package claims reconciles self-reported identity claims with fields read off
// submitted evidence.
package claims

import (
	"fmt"
	"strings"

	"onekyc/internal/kyc/models"
)

const (
	NameThreshold    = 0.75
	AddressThreshold = 0.60
)

// Result is the reconciliation outcome. OK is false iff Reasons is non-empty.
// AddressOK is advisory and never affects OK.
type Result struct {
	OK           bool
	Reasons      []string
	NameScore    float64
	AddressScore *float64
	AddressOK    bool
}

var genderSynonyms = map[string]string{
	"M":      "MALE",
	"MALE":   "MALE",
	"F":      "FEMALE",
	"FEMALE": "FEMALE",
	"O":      "OTHER",
	"OTHER":  "OTHER",
}

// CanonicalGender maps synonyms onto MALE, FEMALE or OTHER. Unknown values
// come back normalized but unmapped.
func CanonicalGender(g string) string {
	n := Normalize(g)
	if c, ok := genderSynonyms[n]; ok {
		return c
	}
	return n
}

// Validate reconciles claim against extracted. It is a pure function of its inputs.
//
// Identity documents are checked on name, date of birth, gender and address.
// Other kinds only carry a name and an address, so the name is checked when
// the document shows one and date of birth and gender are not considered.
func Validate(claim models.IdentityClaim, extracted models.ExtractedFields, kind models.EvidenceKind) Result {
	res := Result{AddressOK: true}
	identity := kind == models.KindIdentityDocument

	res.NameScore = Similarity(claim.FullName, extracted.Name)
	if (identity || extracted.Name != "") && res.NameScore < NameThreshold {
		res.Reasons = append(res.Reasons, fmt.Sprintf(
			"Name mismatch: User entered '%s' but document shows '%s' (similarity: %.2f%%)",
			claim.FullName, extracted.Name, res.NameScore*100))
	}

	if identity {
		if reason := checkDateOfBirth(claim.DateOfBirth, extracted.DateOfBirth); reason != "" {
			res.Reasons = append(res.Reasons, reason)
		}
	}

	if identity && extracted.Gender != "" && claim.Gender != "" {
		claimed, read := CanonicalGender(claim.Gender), CanonicalGender(extracted.Gender)
		if claimed != read {
			res.Reasons = append(res.Reasons, fmt.Sprintf(
				"Gender mismatch: User entered '%s' but document shows '%s'", claimed, read))
		}
	}

	if strings.TrimSpace(claim.Address) != "" && strings.TrimSpace(extracted.Address) != "" {
		score := Similarity(claim.Address, extracted.Address)
		res.AddressScore = &score
		res.AddressOK = score >= AddressThreshold
	}

	res.OK = len(res.Reasons) == 0
	return res
}

// AddressScore compares a claimed address with one read off an address proof.
// ok is false when either side is missing.
func AddressScore(claimed, extracted string) (score float64, ok bool) {
	if strings.TrimSpace(claimed) == "" || strings.TrimSpace(extracted) == "" {
		return 0, false
	}
	return Similarity(claimed, extracted), true
}

func checkDateOfBirth(claimed, extracted string) string {
	want, ok := ParseClaimDate(claimed)
	if !ok {
		return fmt.Sprintf("DOB mismatch: could not parse entered date '%s'", claimed)
	}
	got, ok := ParseDocumentDate(extracted)
	if !ok {
		return fmt.Sprintf("DOB mismatch: could not parse document date '%s'", extracted)
	}
	if !sameDay(want, got) {
		return fmt.Sprintf("DOB mismatch: User entered '%s' but document shows '%s'",
			want.Format(models.ClaimDateLayout), got.Format(models.ClaimDateLayout))
	}
	return ""
}
