package handler

import (
	"encoding/base64"
	"fmt"
	"strings"

	"onekyc/internal/kyc/liveness"
	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/service"
	dErrors "onekyc/pkg/domain-errors"
)

// ClaimRequest is the body for POST /kyc/cases/{caseID}/claims.
type ClaimRequest struct {
	FullName      string `json:"full_name"`
	DateOfBirth   string `json:"date_of_birth"`
	Gender        string `json:"gender,omitempty"`
	MaritalStatus string `json:"marital_status,omitempty"`
	Purpose       string `json:"purpose,omitempty"`
	Address       string `json:"address,omitempty"`
}

// Validate trims the fields and runs the claim's own checks.
func (r *ClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.FullName = strings.TrimSpace(r.FullName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Gender = strings.TrimSpace(r.Gender)
	r.MaritalStatus = strings.TrimSpace(r.MaritalStatus)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.Address = strings.TrimSpace(r.Address)
	return r.Claim().Validate()
}

// Claim converts the request to a domain claim.
func (r *ClaimRequest) Claim() models.IdentityClaim {
	return models.IdentityClaim{
		FullName:      r.FullName,
		DateOfBirth:   r.DateOfBirth,
		Gender:        r.Gender,
		MaritalStatus: r.MaritalStatus,
		Purpose:       r.Purpose,
		Address:       r.Address,
	}
}

// EvidenceRequest is the body for POST /kyc/cases/{caseID}/evidence. Images
// are base64; a video capture sends its frames instead of content.
type EvidenceRequest struct {
	Kind         string   `json:"kind"`
	DocumentType string   `json:"document_type"`
	Content      string   `json:"content,omitempty"`
	Frames       []string `json:"frames,omitempty"`

	upload service.Upload
}

// Validate decodes the payload. Size limits are enforced by the engine.
func (r *EvidenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	kind, docType, err := models.ParseEvidence(strings.TrimSpace(r.Kind), strings.TrimSpace(r.DocumentType))
	if err != nil {
		return err
	}
	if len(r.Frames) > liveness.MaxFrames {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d frames are accepted", liveness.MaxFrames))
	}
	up := service.Upload{Kind: kind, DocumentType: docType}
	if r.Content != "" {
		if up.Content, err = base64.StdEncoding.DecodeString(r.Content); err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "content must be base64")
		}
	}
	for i, f := range r.Frames {
		frame, err := base64.StdEncoding.DecodeString(f)
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("frames[%d] must be base64", i))
		}
		up.Frames = append(up.Frames, frame)
	}
	r.upload = up
	return nil
}

// Upload returns the decoded upload.
func (r *EvidenceRequest) Upload() service.Upload {
	return r.upload
}

// ReviewRequest is the body for reviewer actions. Reject and request-info
// require a comment; the engine enforces that.
type ReviewRequest struct {
	Comment string `json:"comment"`
}

func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Comment = strings.TrimSpace(r.Comment)
	return nil
}
