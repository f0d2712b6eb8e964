package handler

import (
	"time"

	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/ports"
)

// CaseResponse is the HTTP view of a case. Face embeddings and raw
// extracted fields stay server side.
type CaseResponse struct {
	ID                  string                 `json:"id"`
	ApplicantID         string                 `json:"applicant_id"`
	Status              string                 `json:"status"`
	UKN                 string                 `json:"ukn,omitempty"`
	Risk                *models.RiskAssessment `json:"risk,omitempty"`
	BiometricMatchScore *float64               `json:"biometric_match_score,omitempty"`
	Duplicate           bool                   `json:"duplicate"`
	ReviewerComment     string                 `json:"reviewer_comment,omitempty"`
	ApprovedBy          string                 `json:"approved_by,omitempty"`
	LedgerReceipt       string                 `json:"ledger_receipt,omitempty"`
	VerifiedAt          *time.Time             `json:"verified_at,omitempty"`
	ExpiresAt           *time.Time             `json:"expires_at,omitempty"`
	Claim               *models.IdentityClaim  `json:"claim,omitempty"`
	Evidence            []EvidenceResponse     `json:"evidence"`
	Events              []EventResponse        `json:"events"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// EvidenceResponse summarizes one evidence item.
type EvidenceResponse struct {
	ID                string                      `json:"id"`
	Kind              string                      `json:"kind"`
	DocumentType      string                      `json:"document_type"`
	Fingerprint       string                      `json:"fingerprint"`
	Extraction        string                      `json:"extraction"`
	Liveness          *models.LivenessResult      `json:"liveness,omitempty"`
	Transactions      *models.TransactionAnalysis `json:"transactions,omitempty"`
	QualityScore      *float64                    `json:"quality_score,omitempty"`
	DegradedProviders []string                    `json:"degraded_providers,omitempty"`
	UploadedAt        time.Time                   `json:"uploaded_at"`
}

// EventResponse is one entry of the verification log.
type EventResponse struct {
	Seq     int               `json:"seq"`
	Kind    string            `json:"kind"`
	Actor   string            `json:"actor"`
	Summary map[string]string `json:"summary,omitempty"`
	At      time.Time         `json:"at"`
	Hash    string            `json:"hash"`
}

// FromCase converts a domain case to its HTTP view.
func FromCase(c *models.Case) *CaseResponse {
	resp := &CaseResponse{
		ID:                  c.ID.String(),
		ApplicantID:         c.ApplicantID.String(),
		Status:              c.Status.String(),
		UKN:                 c.UKN.String(),
		Risk:                c.Risk,
		BiometricMatchScore: c.BiometricMatchScore,
		Duplicate:           c.Duplicate,
		ReviewerComment:     c.ReviewerComment,
		ApprovedBy:          c.ApprovedBy,
		LedgerReceipt:       c.LedgerReceipt,
		VerifiedAt:          c.VerifiedAt,
		ExpiresAt:           c.ExpiresAt,
		Claim:               c.CurrentClaim(),
		Evidence:            make([]EvidenceResponse, 0, len(c.Evidence)),
		Events:              make([]EventResponse, 0, len(c.Events)),
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	for _, e := range c.Evidence {
		resp.Evidence = append(resp.Evidence, EvidenceResponse{
			ID:                e.ID.String(),
			Kind:              string(e.Kind),
			DocumentType:      string(e.DocumentType),
			Fingerprint:       e.Fingerprint,
			Extraction:        string(e.Extraction),
			Liveness:          e.Liveness,
			Transactions:      e.Transactions,
			QualityScore:      e.QualityScore,
			DegradedProviders: e.DegradedProviders,
			UploadedAt:        e.UploadedAt,
		})
	}
	for _, ev := range c.Events {
		resp.Events = append(resp.Events, EventResponse{
			Seq:     ev.Seq,
			Kind:    string(ev.Kind),
			Actor:   ev.Actor,
			Summary: ev.Summary,
			At:      ev.At,
			Hash:    ev.Hash,
		})
	}
	return resp
}

// LedgerResponse is an anchored ledger entry.
type LedgerResponse struct {
	Key            string            `json:"key"`
	TxHash         string            `json:"tx_hash"`
	BlockIndex     int64             `json:"block_index"`
	EvidenceHashes []string          `json:"evidence_hashes"`
	Summary        map[string]string `json:"summary"`
	Issuer         string            `json:"issuer"`
	AnchoredAt     time.Time         `json:"anchored_at"`
	PrevHash       string            `json:"prev_hash,omitempty"`
}

func FromRecord(r *ports.Record) *LedgerResponse {
	return &LedgerResponse{
		Key:            r.Key,
		TxHash:         r.TxHash,
		BlockIndex:     r.BlockIndex,
		EvidenceHashes: r.EvidenceHashes,
		Summary:        r.Summary,
		Issuer:         r.Issuer,
		AnchoredAt:     r.AnchoredAt,
		PrevHash:       r.PrevHash,
	}
}
