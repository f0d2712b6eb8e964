package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "onekyc/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok)
	})

	t.Run("gone includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeGone, "verification expired"))

		require.Equal(t, http.StatusGone, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "gone", body["error"])
		assert.Equal(t, "verification expired", body["error_description"])
	})
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func (r *commentRequest) Validate() error {
	r.Comment = strings.TrimSpace(r.Comment)
	if r.Comment == "" {
		return dErrors.New(dErrors.CodeValidation, "comment is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("valid body is normalized", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"comment":"  looks fine "}`))
		req, ok := DecodeAndPrepare[commentRequest](w, r, nil, r.Context(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "looks fine", req.Comment)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		_, ok := DecodeAndPrepare[commentRequest](w, r, nil, r.Context(), "req-2")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation failure uses the validation code", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"comment":" "}`))
		_, ok := DecodeAndPrepare[commentRequest](w, r, nil, r.Context(), "req-3")
		assert.False(t, ok)
		assert.Contains(t, w.Body.String(), "validation_error")
	})
}
