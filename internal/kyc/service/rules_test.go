package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"onekyc/internal/kyc/models"
)

func TestResolve(t *testing.T) {
	dup := models.DuplicateMatch{IsDuplicate: true, MatchedUKN: "KYC-AAAA-BBBB-CCCC", Similarity: 0.9712}

	tests := []struct {
		name        string
		dup         models.DuplicateMatch
		checked     bool
		probability float64
		status      models.Status
		comment     string
	}{
		{"low risk is verified", models.DuplicateMatch{}, true, 0.05, models.StatusVerified, ""},
		{"threshold goes to review", models.DuplicateMatch{}, true, 0.30, models.StatusInReview, "Risk probability 0.3000 requires manual review"},
		{"high risk goes to review", models.DuplicateMatch{}, true, 0.8612, models.StatusInReview, "Risk probability 0.8612 requires manual review"},
		{"duplicate overrides low risk", dup, true, 0.01, models.StatusInReview, "Possible duplicate of verified identity KYC-AAAA-BBBB-CCCC (similarity: 97.12%)"},
		{"unchecked duplicate overrides low risk", models.DuplicateMatch{}, false, 0.01, models.StatusInReview, "Duplicate check unavailable, manual review required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(tt.dup, tt.checked, tt.probability)
			assert.Equal(t, tt.status, got.status)
			assert.Equal(t, tt.comment, got.comment)
		})
	}
}
