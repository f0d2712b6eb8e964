package models

import (
	"strings"
	"time"

	dErrors "onekyc/pkg/domain-errors"
)

// ClaimDateLayout is the only accepted layout for self-reported dates of birth.
const ClaimDateLayout = "2006-01-02"

// IdentityClaim is what the applicant says about themselves. Resubmission
// appends a new claim; earlier ones are kept.
type IdentityClaim struct {
	FullName      string    `json:"full_name"`
	DateOfBirth   string    `json:"date_of_birth"`
	Gender        string    `json:"gender,omitempty"`
	MaritalStatus string    `json:"marital_status,omitempty"`
	Purpose       string    `json:"purpose,omitempty"`
	Address       string    `json:"address,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Validate checks the claim is well formed. Reconciliation against evidence
// happens later in the claim validator.
func (c IdentityClaim) Validate() error {
	if strings.TrimSpace(c.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	if len(c.FullName) > 200 {
		return dErrors.New(dErrors.CodeValidation, "full_name must be at most 200 characters")
	}
	if _, err := time.Parse(ClaimDateLayout, strings.TrimSpace(c.DateOfBirth)); err != nil {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
	}
	if len(c.Address) > 500 {
		return dErrors.New(dErrors.CodeValidation, "address must be at most 500 characters")
	}
	return nil
}
