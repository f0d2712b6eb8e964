package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndCode(t *testing.T) {
	t.Run("wrap nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		base := New(CodeConflict, "case modified concurrently")
		err := fmt.Errorf("save case: %w", base)
		assert.True(t, HasCode(err, CodeConflict))
		assert.Equal(t, CodeConflict, GetCode(err))
	})

	t.Run("cause is reachable through errors.Is", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeInternal, "failed to load case")
		require.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to load case: connection reset", err.Error())
	})

	t.Run("plain errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, GetCode(errors.New("boom")))
		assert.False(t, Is(errors.New("boom"), CodeNotFound))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeInvalidInput: http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeGone:         http.StatusGone,
		CodeTimeout:      http.StatusGatewayTimeout,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), "code %s", code)
	}
}
