package models

import (
	"fmt"
	"slices"
	"time"

	id "onekyc/pkg/domain"
	dErrors "onekyc/pkg/domain-errors"
)

// EvidenceKind classifies an uploaded artifact.
type EvidenceKind string

const (
	KindIdentityDocument    EvidenceKind = "IDENTITY_DOCUMENT"
	KindAddressProof        EvidenceKind = "ADDRESS_PROOF"
	KindTransactionDocument EvidenceKind = "TRANSACTION_DOCUMENT"
	KindBiometricCapture    EvidenceKind = "BIOMETRIC_CAPTURE"
)

// DocumentType is the concrete artifact type within a kind.
type DocumentType string

const (
	DocPassport        DocumentType = "PASSPORT"
	DocDriversLicense  DocumentType = "DRIVERS_LICENSE"
	DocNationalID      DocumentType = "NATIONAL_ID"
	DocAadhaar         DocumentType = "AADHAAR"
	DocPANCard         DocumentType = "PAN_CARD"
	DocVoterID         DocumentType = "VOTER_ID"
	DocUtilityBill     DocumentType = "UTILITY_BILL"
	DocBankStatement   DocumentType = "BANK_STATEMENT"
	DocRentalAgreement DocumentType = "RENTAL_AGREEMENT"
	DocSelfie          DocumentType = "SELFIE"
	DocVideo           DocumentType = "VIDEO"
)

var documentTypesByKind = map[EvidenceKind][]DocumentType{
	KindIdentityDocument:    {DocPassport, DocDriversLicense, DocNationalID, DocAadhaar, DocPANCard, DocVoterID},
	KindAddressProof:        {DocUtilityBill, DocBankStatement, DocRentalAgreement},
	KindTransactionDocument: {DocBankStatement, DocUtilityBill},
	KindBiometricCapture:    {DocSelfie, DocVideo},
}

// ParseEvidence validates a kind/document-type pair supplied by a caller.
func ParseEvidence(kind, docType string) (EvidenceKind, DocumentType, error) {
	k := EvidenceKind(kind)
	allowed, ok := documentTypesByKind[k]
	if !ok {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported evidence kind %q", kind))
	}
	d := DocumentType(docType)
	if !slices.Contains(allowed, d) {
		return "", "", dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("document type %q is not valid for %s", docType, kind))
	}
	return k, d, nil
}

// ProviderOutcome records whether an external provider call produced a usable value.
type ProviderOutcome string

const (
	OutcomeOK       ProviderOutcome = "OK"
	OutcomeDegraded ProviderOutcome = "DEGRADED"
	OutcomeSkipped  ProviderOutcome = "SKIPPED"
)

// ExtractedFields is what the extraction provider read off a document.
// An empty string means the provider did not expose the field.
type ExtractedFields struct {
	Name           string `json:"name,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Address        string `json:"address,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	IssueDate      string `json:"issue_date,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	RawText        string `json:"raw_text,omitempty"`
}

// IsEmpty reports whether extraction yielded nothing at all.
func (f ExtractedFields) IsEmpty() bool {
	return f == ExtractedFields{}
}

// HasCoreIdentity reports whether both name and date of birth were read.
func (f ExtractedFields) HasCoreIdentity() bool {
	return f.Name != "" && f.DateOfBirth != ""
}

// LivenessResult is the liveness verdict attached to a biometric capture.
type LivenessResult struct {
	FaceDetected   bool    `json:"face_detected"`
	IsLive         bool    `json:"is_live"`
	BlinkDetected  bool    `json:"blink_detected"`
	BlinkCount     int     `json:"blink_count"`
	EyeAspectRatio float64 `json:"eye_aspect_ratio"`
	Confidence     float64 `json:"confidence"`
	FramesAnalyzed int     `json:"frames_analyzed"`
	BestFrameIndex int     `json:"best_frame_index"`
	Video          bool    `json:"video"`
}

// TransactionAnalysis is the fraud-heuristic result for a transactional document.
type TransactionAnalysis struct {
	IsSuspicious     bool     `json:"is_suspicious"`
	RiskScore        int      `json:"risk_score"`
	Indicators       []string `json:"indicators"`
	TransactionCount int      `json:"transaction_count"`
}

// EvidenceItem is one uploaded artifact plus its derived analysis. It is built
// complete at ingestion and never modified afterwards.
type EvidenceItem struct {
	ID                id.EvidenceID        `json:"id"`
	Kind              EvidenceKind         `json:"kind"`
	DocumentType      DocumentType         `json:"document_type"`
	Fingerprint       string               `json:"fingerprint"`
	Extraction        ProviderOutcome      `json:"extraction"`
	Extracted         ExtractedFields      `json:"extracted"`
	Liveness          *LivenessResult      `json:"liveness,omitempty"`
	Transactions      *TransactionAnalysis `json:"transactions,omitempty"`
	FaceEmbedding     []float64            `json:"face_embedding,omitempty"`
	EmbeddingOutcome  ProviderOutcome      `json:"embedding_outcome"`
	QualityScore      *float64             `json:"quality_score,omitempty"`
	DegradedProviders []string             `json:"degraded_providers,omitempty"`
	UploadedAt        time.Time            `json:"uploaded_at"`
}

// ExtractionUsable reports whether the extracted fields can be trusted for reconciliation.
func (e EvidenceItem) ExtractionUsable() bool {
	return e.Extraction == OutcomeOK && !e.Extracted.IsEmpty()
}
