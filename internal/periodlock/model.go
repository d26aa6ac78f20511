// Package periodlock implements the per-(organization, period) financial
// locking state machine: no_record -> LOCKED <-> UNLOCKED_AMENDMENT, where the
// amendment state always carries a future expiry and exits only via manual
// re-lock or the auto-relock sweep.
package periodlock

import (
	"time"

	"github.com/google/uuid"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// Status enumerates lock states.
type Status string

const (
	StatusLocked            Status = "LOCKED"
	StatusUnlockedAmendment Status = "UNLOCKED_AMENDMENT"
)

// SystemActor is recorded when the auto-relock sweep performs a transition.
const SystemActor = "system"

// Lock is the lock record for one (organization, period) pair. Exactly one
// row exists per pair.
type Lock struct {
	ID              int64
	OrgID           uuid.UUID
	Period          shared.Period
	Status          Status
	LockedBy        string
	LockedAt        time.Time
	LockReason      string
	UnlockedBy      *string
	UnlockedAt      *time.Time
	UnlockReason    *string
	UnlockExpiresAt *time.Time
	ExtensionCount  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Snapshot renders the audit-trail view of the lock.
func (l Lock) Snapshot() map[string]any {
	snap := map[string]any{
		"period":          string(l.Period),
		"status":          string(l.Status),
		"locked_by":       l.LockedBy,
		"locked_at":       l.LockedAt,
		"lock_reason":     l.LockReason,
		"extension_count": l.ExtensionCount,
	}
	if l.UnlockedBy != nil {
		snap["unlocked_by"] = *l.UnlockedBy
	}
	if l.UnlockReason != nil {
		snap["unlock_reason"] = *l.UnlockReason
	}
	if l.UnlockExpiresAt != nil {
		snap["unlock_expires_at"] = *l.UnlockExpiresAt
	}
	return snap
}

// FiscalYearResult reports the outcome for one period of a fiscal-year batch
// lock. Failures are per-period; the batch never rolls back.
type FiscalYearResult struct {
	Period shared.Period
	Locked bool
	Error  string
}
