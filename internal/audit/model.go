// Package audit provides the append-only trail of lock transitions and
// posting actions. Writes are best-effort: a failed audit insert is logged by
// the caller and never blocks or rolls back the triggering operation.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// Entry is one immutable audit record.
type Entry struct {
	ID           int64
	OrgID        uuid.UUID
	UserID       string
	UserRole     shared.Role
	Action       string
	ResourceType string
	ResourceID   string
	IP           string
	Before       map[string]any
	After        map[string]any
	At           time.Time
}

// Recorder is the write port consumed by the lock store and the poster.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Filter narrows audit listing for the admin surface.
type Filter struct {
	OrgID        uuid.UUID
	ResourceType string
	ResourceID   string
	Action       string
	Page         int
	PageSize     int
}
