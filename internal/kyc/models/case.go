package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	id "onekyc/pkg/domain"
)

// ActorSystem marks events and approvals made by the automated pipeline.
const ActorSystem = "system"

// Case is the aggregate root for one applicant's verification.
type Case struct {
	ID                  id.CaseID       `json:"id"`
	ApplicantID         id.ApplicantID  `json:"applicant_id"`
	UKN                 id.UKN          `json:"ukn,omitempty"`
	Status              Status          `json:"status"`
	Risk                *RiskAssessment `json:"risk,omitempty"`
	BiometricMatchScore *float64        `json:"biometric_match_score,omitempty"`
	Duplicate           bool            `json:"duplicate"`
	ReviewerComment     string          `json:"reviewer_comment,omitempty"`
	ApprovedBy          string          `json:"approved_by,omitempty"`
	LedgerReceipt       string          `json:"ledger_receipt,omitempty"`
	VerifiedAt          *time.Time      `json:"verified_at,omitempty"`
	ExpiresAt           *time.Time      `json:"expires_at,omitempty"`
	Claims              []IdentityClaim `json:"claims"`
	Evidence            []EvidenceItem  `json:"evidence"`
	Events              []Event         `json:"events"`
	Version             int64           `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// NewCase creates a DRAFT case for an applicant.
func NewCase(applicantID id.ApplicantID, now time.Time) *Case {
	c := &Case{
		ID:          id.NewCaseID(),
		ApplicantID: applicantID,
		Status:      StatusDraft,
		Claims:      []IdentityClaim{},
		Evidence:    []EvidenceItem{},
		Events:      []Event{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.Record(EventCaseOpened, applicantID.String(), nil, now)
	return c
}

// CurrentClaim returns the most recent claim or nil.
func (c *Case) CurrentClaim() *IdentityClaim {
	if len(c.Claims) == 0 {
		return nil
	}
	return &c.Claims[len(c.Claims)-1]
}

// Latest returns the most recently uploaded evidence of a kind, or nil.
// For identity documents this is the primary document: a re-upload replaces
// an unreadable one.
func (c *Case) Latest(kind EvidenceKind) *EvidenceItem {
	for i := len(c.Evidence) - 1; i >= 0; i-- {
		if c.Evidence[i].Kind == kind {
			return &c.Evidence[i]
		}
	}
	return nil
}

// EvidenceFingerprints lists content hashes in upload order.
func (c *Case) EvidenceFingerprints() []string {
	out := make([]string, 0, len(c.Evidence))
	for _, e := range c.Evidence {
		out = append(out, e.Fingerprint)
	}
	return out
}

// TransitionTo moves the case to next and appends a status event.
func (c *Case) TransitionTo(next Status, actor string, now time.Time) error {
	if !c.Status.CanTransitionTo(next) {
		return errIllegalTransition(c.Status, next)
	}
	prev := c.Status
	c.Status = next
	c.UpdatedAt = now
	c.Record(EventStatusChanged, actor, map[string]string{
		"from": string(prev),
		"to":   string(next),
	}, now)
	return nil
}

// MarkVerified applies the issuance outcome. Callers transition first.
func (c *Case) MarkVerified(ukn id.UKN, receipt string, approvedBy string, verifiedAt time.Time, validity time.Duration) {
	expires := verifiedAt.Add(validity)
	c.UKN = ukn
	c.LedgerReceipt = receipt
	c.ApprovedBy = approvedBy
	c.VerifiedAt = &verifiedAt
	c.ExpiresAt = &expires
}

// IsExpired reports whether a verified case has passed its validity window.
func (c *Case) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Record appends a hash-chained event.
func (c *Case) Record(kind EventKind, actor string, summary map[string]string, at time.Time) Event {
	prev := ""
	if n := len(c.Events); n > 0 {
		prev = c.Events[n-1].Hash
	}
	ev := Event{
		Seq:      len(c.Events) + 1,
		Kind:     kind,
		Actor:    actor,
		Summary:  summary,
		At:       at.UTC(),
		PrevHash: prev,
	}
	ev.Hash = ev.computeHash(c.ID)
	c.Events = append(c.Events, ev)
	return ev
}

// VerifyEventChain recomputes every event hash and link.
func (c *Case) VerifyEventChain() bool {
	prev := ""
	for i, ev := range c.Events {
		if ev.Seq != i+1 || ev.PrevHash != prev || ev.Hash != ev.computeHash(c.ID) {
			return false
		}
		prev = ev.Hash
	}
	return true
}

// Clone copies the aggregate so stores never share slices with callers.
// Evidence items, claims and events are immutable once appended, so copying
// the slices is enough.
func (c *Case) Clone() *Case {
	out := *c
	out.Claims = append([]IdentityClaim(nil), c.Claims...)
	out.Evidence = append([]EvidenceItem(nil), c.Evidence...)
	out.Events = append([]Event(nil), c.Events...)
	return &out
}

// EventKind names a pipeline step.
type EventKind string

const (
	EventCaseOpened             EventKind = "case_opened"
	EventClaimSubmitted         EventKind = "claim_submitted"
	EventEvidenceIngested       EventKind = "evidence_ingested"
	EventProviderDegraded       EventKind = "provider_degraded"
	EventLivenessAssessed       EventKind = "liveness_assessed"
	EventTransactionsAnalyzed   EventKind = "transactions_analyzed"
	EventClaimValidated         EventKind = "claim_validated"
	EventClaimValidationSkipped EventKind = "claim_validation_skipped"
	EventStatusChanged          EventKind = "status_changed"
	EventBiometricMatched       EventKind = "biometric_matched"
	EventDuplicateChecked       EventKind = "duplicate_checked"
	EventRiskScored             EventKind = "risk_scored"
	EventUKNIssued              EventKind = "ukn_issued"
	EventLedgerAnchored         EventKind = "ledger_anchored"
	EventAnchoringFailed        EventKind = "anchoring_failed"
	EventReviewerDecision       EventKind = "reviewer_decision"
)

// Event is an append-only verification log entry.
type Event struct {
	Seq      int               `json:"seq"`
	Kind     EventKind         `json:"kind"`
	Actor    string            `json:"actor"`
	Summary  map[string]string `json:"summary,omitempty"`
	At       time.Time         `json:"at"`
	PrevHash string            `json:"prev_hash,omitempty"`
	Hash     string            `json:"hash"`
}

func (e Event) computeHash(caseID id.CaseID) string {
	payload, _ := json.Marshal(struct {
		CaseID   string            `json:"case_id"`
		Seq      int               `json:"seq"`
		Kind     EventKind         `json:"kind"`
		Actor    string            `json:"actor"`
		Summary  map[string]string `json:"summary"`
		At       string            `json:"at"`
		PrevHash string            `json:"prev_hash"`
	}{caseID.String(), e.Seq, e.Kind, e.Actor, e.Summary, e.At.Format(time.RFC3339Nano), e.PrevHash})
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}
