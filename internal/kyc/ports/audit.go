package ports

import (
	"context"

	"onekyc/pkg/platform/audit"
)

// AuditPublisher emits compliance events. It is fail-closed: an error means
// the event was not persisted and the caller must not commit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}
