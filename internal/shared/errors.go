package shared

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation indicates malformed input (period, reason, payload).
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the actor's role lacks permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a state-machine conflict (already locked, wrong state, cap reached).
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates the lock record or journal entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnbalancedEntry indicates a journal entry whose debits and credits differ.
	// Always a bug; logged, never surfaced to end users.
	ErrUnbalancedEntry = errors.New("journal entry unbalanced")
	// ErrPostingFailed wraps persistence failures during journal posting. The calling
	// business operation still succeeds; the failure is logged for reconciliation.
	ErrPostingFailed = errors.New("posting failed")
)

// PeriodLockedError blocks a financial write into a closed period. It carries
// enough detail for the caller to offer "unlock or choose another date".
type PeriodLockedError struct {
	Period   Period
	LockedBy string
	LockedAt time.Time
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("period %s is locked (locked by %s at %s)", e.Period, e.LockedBy, e.LockedAt.Format(time.RFC3339))
}

// AsPeriodLocked unwraps a PeriodLockedError from an error chain.
func AsPeriodLocked(err error) (*PeriodLockedError, bool) {
	var ple *PeriodLockedError
	if errors.As(err, &ple) {
		return ple, true
	}
	return nil, false
}
