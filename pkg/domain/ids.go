// Package domain holds the typed identifiers shared across modules.
//
// Each identifier is a distinct named type so the compiler rejects passing a
// ReviewerID where a CaseID is expected. Parse* functions are the trust
// boundary: they reject empty, malformed and nil values.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "onekyc/pkg/domain-errors"
)

type (
	CaseID      uuid.UUID
	ApplicantID uuid.UUID
	ReviewerID  uuid.UUID
	EvidenceID  uuid.UUID
)

func NewCaseID() CaseID { return CaseID(uuid.New()) }
func NewApplicantID() ApplicantID { return ApplicantID(uuid.New()) }
func NewReviewerID() ReviewerID { return ReviewerID(uuid.New()) }
func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

func (id CaseID) String() string { return uuid.UUID(id).String() }
func (id ApplicantID) String() string { return uuid.UUID(id).String() }
func (id ReviewerID) String() string { return uuid.UUID(id).String() }
func (id EvidenceID) String() string { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ApplicantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReviewerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case_id")
	return CaseID(u), err
}

func ParseApplicantID(s string) (ApplicantID, error) {
	u, err := parseUUID(s, "applicant_id")
	return ApplicantID(u), err
}

func ParseReviewerID(s string) (ReviewerID, error) {
	u, err := parseUUID(s, "reviewer_id")
	return ReviewerID(u), err
}

func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parseUUID(s, "evidence_id")
	return EvidenceID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}

func (id CaseID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ApplicantID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ReviewerID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id EvidenceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *CaseID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ApplicantID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReviewerID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EvidenceID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
