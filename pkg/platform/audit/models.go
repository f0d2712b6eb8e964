package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	id "onekyc/pkg/domain"

	"github.com/google/uuid"
)

// Action names a compliance-relevant verification outcome.
type Action string

const (
	ActionVerified       Action = "kyc_verified"
	ActionRejected       Action = "kyc_rejected"
	ActionReviewRequired Action = "kyc_review_required"
	ActionFlagged        Action = "kyc_flagged"
	ActionInfoRequested  Action = "kyc_info_requested"
)

// ComplianceEvent captures a decision with regulatory significance. Use it
// with the compliance publisher for fail-closed semantics.
type ComplianceEvent struct {
	Timestamp   time.Time      // set automatically if zero
	CaseID      id.CaseID      // required
	ApplicantID id.ApplicantID // required
	Action      Action         // required
	Decision    string         // resulting case status
	Reason      string         // reviewer comment or rule outcome
	UKN         string         // set when a number was issued
	RequestID   string         // correlation id from the HTTP request
	ActorID     string         // "system" or the reviewer
	ClientIP    string         // caller address, empty for background work
}

// ErrIncompleteEvent rejects events missing a case, applicant or action.
var ErrIncompleteEvent = errors.New("incomplete compliance event")

// Validate checks the fields every compliance consumer relies on.
func (e ComplianceEvent) Validate() error {
	switch {
	case e.CaseID.IsNil():
		return fmt.Errorf("%w: case id is required", ErrIncompleteEvent)
	case e.ApplicantID.IsNil():
		return fmt.Errorf("%w: applicant id is required", ErrIncompleteEvent)
	case e.Action == "":
		return fmt.Errorf("%w: action is required", ErrIncompleteEvent)
	}
	return nil
}

// Event is the persisted form of a compliance event. Hash covers every other
// field so consumers can detect tampering in transit.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	CaseID      string    `json:"case_id"`
	ApplicantID string    `json:"applicant_id"`
	Action      string    `json:"action"`
	Decision    string    `json:"decision,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	UKN         string    `json:"ukn,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	ClientIP    string    `json:"client_ip,omitempty"`
	Hash        string    `json:"hash"`
}

// ToEvent assigns an id and seals the event.
func (e ComplianceEvent) ToEvent() Event {
	ev := Event{
		ID:          uuid.New(),
		Timestamp:   e.Timestamp.UTC(),
		CaseID:      e.CaseID.String(),
		ApplicantID: e.ApplicantID.String(),
		Action:      string(e.Action),
		Decision:    e.Decision,
		Reason:      e.Reason,
		UKN:         e.UKN,
		RequestID:   e.RequestID,
		ActorID:     e.ActorID,
		ClientIP:    e.ClientIP,
	}
	ev.Hash = ev.ComputeHash()
	return ev
}

// ComputeHash returns "sha256:" plus the hex digest of the event without its hash.
func (e Event) ComputeHash() string {
	e.Hash = ""
	payload, _ := json.Marshal(e)
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Store persists audit events. Postgres-backed stores write to the outbox
// inside the caller's transaction when one is present in ctx.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is an event awaiting relay to the message broker.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Outbox is the relay's view of pending events.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}
