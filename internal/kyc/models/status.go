package models

import (
	"fmt"

	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/platform/sentinel"
)

// Status is the case lifecycle position. Values are used verbatim in API and audit payloads.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusRegistered  Status = "REGISTERED"
	StatusUploaded    Status = "UPLOADED"
	StatusProcessing  Status = "PROCESSING"
	StatusInReview    Status = "IN_REVIEW"
	StatusFlagged     Status = "FLAGGED"
	StatusRequestInfo Status = "REQUEST_INFO"
	StatusVerified    Status = "VERIFIED"
	StatusRejected    Status = "REJECTED"
)

// transitions lists the allowed next states. REQUEST_INFO -> PROCESSING is the
// explicit re-review path. PROCESSING is reachable by reviewers when anchoring
// failed mid-approval. VERIFIED and REJECTED have no exits.
var transitions = map[Status][]Status{
	StatusDraft:       {StatusRegistered, StatusUploaded, StatusFlagged},
	StatusRegistered:  {StatusUploaded, StatusFlagged},
	StatusUploaded:    {StatusProcessing, StatusRejected, StatusFlagged},
	StatusProcessing:  {StatusVerified, StatusInReview, StatusRejected, StatusFlagged, StatusRequestInfo},
	StatusInReview:    {StatusVerified, StatusRejected, StatusRequestInfo},
	StatusFlagged:     {StatusVerified, StatusRejected, StatusRequestInfo},
	StatusRequestInfo: {StatusProcessing, StatusVerified, StatusRejected, StatusFlagged},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; ok || st == StatusVerified || st == StatusRejected {
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown status %q", s))
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether the automated pipeline is finished with the case.
func (s Status) IsTerminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsEvidence reports whether new evidence may be attached in this status.
func (s Status) AcceptsEvidence() bool {
	switch s {
	case StatusDraft, StatusRegistered, StatusUploaded, StatusRequestInfo:
		return true
	}
	return false
}

// Processable reports whether the automated pipeline may run.
func (s Status) Processable() bool {
	switch s {
	case StatusDraft, StatusRegistered, StatusUploaded, StatusRequestInfo:
		return true
	}
	return false
}

// Reviewable reports whether a reviewer may approve, reject or request information.
func (s Status) Reviewable() bool {
	switch s {
	case StatusInReview, StatusFlagged, StatusProcessing, StatusRequestInfo:
		return true
	}
	return false
}

// errIllegalTransition wraps sentinel.ErrInvalidState so callers can match either.
func errIllegalTransition(from, to Status) error {
	return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeConflict,
		fmt.Sprintf("illegal status transition %s -> %s", from, to))
}
