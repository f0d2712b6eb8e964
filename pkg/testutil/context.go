package testutil

import (
	"context"
	"net/http"
	"time"

	"onekyc/pkg/requestcontext"
)

// WithActor adds an authenticated principal to the request context.
// This simulates what the auth middleware does for a valid bearer token.
func WithActor(req *http.Request, p requestcontext.Principal) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), p))
}

// WithApplicant authenticates the request as the given applicant.
func WithApplicant(req *http.Request, applicantID string) *http.Request {
	return WithActor(req, requestcontext.Principal{ID: applicantID, Role: requestcontext.RoleApplicant})
}

// WithReviewer authenticates the request as a reviewer.
func WithReviewer(req *http.Request, reviewerID string) *http.Request {
	return WithActor(req, requestcontext.Principal{ID: reviewerID, Role: requestcontext.RoleReviewer})
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
