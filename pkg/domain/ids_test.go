package domain

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "onekyc/pkg/domain-errors"
)

// TestParseCaseID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
//
// Justification: This is a pure function enforcing a domain invariant
// at trust boundaries.
func TestParseCaseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCaseID("  ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicantID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseReviewerID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, ReviewerID(raw), id)
		assert.False(t, id.IsNil())
	})
}

var uknPattern = regexp.MustCompile(`^KYC-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`)

func TestUKN(t *testing.T) {
	t.Run("generated numbers match the published format", func(t *testing.T) {
		for range 50 {
			u, err := NewUKN()
			require.NoError(t, err)
			assert.Regexp(t, uknPattern, u.String())
		}
	})

	t.Run("generation is a pure function of the random source", func(t *testing.T) {
		src := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02}
		u, err := GenerateUKN(bytes.NewReader(src))
		require.NoError(t, err)
		assert.Equal(t, UKN("KYC-DEAD-BEEF-0102"), u)
	})

	t.Run("short random source fails", func(t *testing.T) {
		_, err := GenerateUKN(bytes.NewReader([]byte{0x01}))
		assert.Error(t, err)
	})

	t.Run("parse normalizes case and whitespace", func(t *testing.T) {
		u, err := ParseUKN("  kyc-dead-beef-0102 ")
		require.NoError(t, err)
		assert.Equal(t, UKN("KYC-DEAD-BEEF-0102"), u)
	})

	for _, bad := range []string{"", "KYC-DEAD-BEEF", "ABC-DEAD-BEEF-0102", "KYC-DEAD-BEEF-01G2", "KYC-DEADB-EEF-0102", "KYC-DEAD-BEEF-0102-0000"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseUKN(bad)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}
