package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"onekyc/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen requestcontext.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Actor(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		rr := httptest.NewRecorder()
		RequireAuth(stubValidator{}, logger)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		RequireAuth(stubValidator{err: errors.New("bad")}, logger)(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown role is downgraded to applicant", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer ok")
		v := stubValidator{claims: &JWTClaims{Subject: "sub-1", Role: "admin"}}
		RequireAuth(v, logger)(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, requestcontext.Principal{ID: "sub-1", Role: requestcontext.RoleApplicant}, seen)
	})
}

func TestRequireRole(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guard := RequireRole(requestcontext.RoleReviewer, logger)(next)

	t.Run("applicant is forbidden", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(requestcontext.WithActor(req.Context(), requestcontext.Principal{ID: "a", Role: requestcontext.RoleApplicant}))
		guard.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("reviewer passes", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(requestcontext.WithActor(req.Context(), requestcontext.Principal{ID: "r", Role: requestcontext.RoleReviewer}))
		guard.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}
