// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping this package free
// of net/http lets the decision service depend on it without pulling in
// transport code.
//
// Usage in services:
//
//	actor := requestcontext.Actor(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, requestcontext.Principal{ID: reviewerID, Role: requestcontext.RoleReviewer})
package requestcontext

import (
	"context"
	"time"
)

type (
	principalKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyPrincipal   = principalKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Role distinguishes applicants from reviewers.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleReviewer  Role = "reviewer"
)

// Principal is the authenticated caller.
type Principal struct {
	ID   string
	Role Role
}

// -----------------------------------------------------------------------------
// Authenticated principal
// -----------------------------------------------------------------------------

// Actor retrieves the authenticated principal. The zero value means anonymous.
func Actor(ctx context.Context) Principal {
	if p, ok := ctx.Value(ContextKeyPrincipal).(Principal); ok {
		return p
	}
	return Principal{}
}

// WithActor injects the authenticated principal into the context.
func WithActor(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
