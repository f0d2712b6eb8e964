package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "onekyc/pkg/domain-errors"
	"onekyc/pkg/requestcontext"
)

var jwtService = NewJWTService("test-signing-key", "onekyc", "onekyc-api")

func Test_GenerateAndValidate(t *testing.T) {
	subject := uuid.NewString()
	token, err := jwtService.GenerateAccessToken(subject, "reviewer", time.Hour)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, "reviewer", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_Rejections(t *testing.T) {
	t.Run("garbage token", func(t *testing.T) {
		_, err := jwtService.ValidateToken("invalid-token-string")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(uuid.NewString(), "applicant", -time.Hour)
		require.NoError(t, err)
		_, err = jwtService.ValidateToken(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("foreign audience", func(t *testing.T) {
		other := NewJWTService("test-signing-key", "onekyc", "someone-else")
		token, err := other.GenerateAccessToken(uuid.NewString(), "applicant", time.Hour)
		require.NoError(t, err)
		_, err = jwtService.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func Test_AdapterMapsRole(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(uuid.NewString(), "reviewer", time.Hour)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, requestcontext.RoleReviewer, claims.Role)
	assert.NotEmpty(t, claims.JTI)
}
