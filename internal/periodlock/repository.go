package periodlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// Repository is the persistence port for lock records. Every transition is a
// single conditional update keyed on the current status (and extension count
// for Extend), so concurrent callers against one (org, period) serialize and
// the loser sees ErrConflict.
type Repository interface {
	Get(ctx context.Context, org uuid.UUID, period shared.Period) (Lock, error)
	List(ctx context.Context, org uuid.UUID) ([]Lock, error)
	Create(ctx context.Context, lock Lock) (Lock, error)
	Relock(ctx context.Context, org uuid.UUID, period shared.Period, by, reason string, at time.Time) (Lock, error)
	Unlock(ctx context.Context, org uuid.UUID, period shared.Period, by, reason string, at, expires time.Time) (Lock, error)
	Extend(ctx context.Context, org uuid.UUID, period shared.Period, newExpiry time.Time, expectCount int) (Lock, error)
	SweepExpired(ctx context.Context, now time.Time) ([]Lock, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a Postgres-backed lock repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const lockColumns = `id, org_id, period, status, locked_by, locked_at, lock_reason, unlocked_by, unlocked_at, unlock_reason, unlock_expires_at, extension_count, created_at, updated_at`

func scanLock(row pgx.Row) (Lock, error) {
	var l Lock
	err := row.Scan(&l.ID, &l.OrgID, &l.Period, &l.Status, &l.LockedBy, &l.LockedAt, &l.LockReason,
		&l.UnlockedBy, &l.UnlockedAt, &l.UnlockReason, &l.UnlockExpiresAt, &l.ExtensionCount, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lock{}, shared.ErrNotFound
		}
		return Lock{}, err
	}
	return l, nil
}

func (r *repository) Get(ctx context.Context, org uuid.UUID, period shared.Period) (Lock, error) {
	row := r.db.QueryRow(ctx, `SELECT `+lockColumns+` FROM period_locks WHERE org_id=$1 AND period=$2`, org, period)
	return scanLock(row)
}

func (r *repository) List(ctx context.Context, org uuid.UUID) ([]Lock, error) {
	rows, err := r.db.Query(ctx, `SELECT `+lockColumns+` FROM period_locks WHERE org_id=$1 ORDER BY period DESC`, org)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Create inserts the first lock record for the pair. A concurrent first lock
// trips the unique index and surfaces as ErrConflict.
func (r *repository) Create(ctx context.Context, lock Lock) (Lock, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO period_locks (org_id, period, status, locked_by, locked_at, lock_reason)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING `+lockColumns, lock.OrgID, lock.Period, StatusLocked, lock.LockedBy, lock.LockedAt, lock.LockReason)
	created, err := scanLock(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Lock{}, fmt.Errorf("%w: period %s already locked", shared.ErrConflict, lock.Period)
		}
		return Lock{}, err
	}
	return created, nil
}

// Relock closes an amendment window. Conditional on the amendment status so a
// concurrent relock (manual or sweep) loses cleanly.
func (r *repository) Relock(ctx context.Context, org uuid.UUID, period shared.Period, by, reason string, at time.Time) (Lock, error) {
	row := r.db.QueryRow(ctx, `UPDATE period_locks
SET status=$3, locked_by=$4, locked_at=$5, lock_reason=$6, unlock_expires_at=NULL, updated_at=NOW()
WHERE org_id=$1 AND period=$2 AND status=$7
RETURNING `+lockColumns, org, period, StatusLocked, by, at, reason, StatusUnlockedAmendment)
	l, err := scanLock(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Lock{}, fmt.Errorf("%w: period %s not in amendment state", shared.ErrConflict, period)
		}
		return Lock{}, err
	}
	return l, nil
}

func (r *repository) Unlock(ctx context.Context, org uuid.UUID, period shared.Period, by, reason string, at, expires time.Time) (Lock, error) {
	row := r.db.QueryRow(ctx, `UPDATE period_locks
SET status=$3, unlocked_by=$4, unlocked_at=$5, unlock_reason=$6, unlock_expires_at=$7, extension_count=0, updated_at=NOW()
WHERE org_id=$1 AND period=$2 AND status=$8
RETURNING `+lockColumns, org, period, StatusUnlockedAmendment, by, at, reason, expires, StatusLocked)
	l, err := scanLock(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Lock{}, fmt.Errorf("%w: period %s is not locked", shared.ErrConflict, period)
		}
		return Lock{}, err
	}
	return l, nil
}

// Extend bumps the amendment expiry. The expected extension count is part of
// the predicate, so two concurrent extends cannot both consume one slot.
func (r *repository) Extend(ctx context.Context, org uuid.UUID, period shared.Period, newExpiry time.Time, expectCount int) (Lock, error) {
	row := r.db.QueryRow(ctx, `UPDATE period_locks
SET unlock_expires_at=$3, extension_count=extension_count+1, updated_at=NOW()
WHERE org_id=$1 AND period=$2 AND status=$4 AND extension_count=$5
RETURNING `+lockColumns, org, period, newExpiry, StatusUnlockedAmendment, expectCount)
	l, err := scanLock(row)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Lock{}, fmt.Errorf("%w: amendment window changed concurrently", shared.ErrConflict)
		}
		return Lock{}, err
	}
	return l, nil
}

// SweepExpired relocks every amendment record whose window has passed. The
// status predicate makes the sweep idempotent and safe to run from multiple
// instances: a record already relocked simply does not match.
func (r *repository) SweepExpired(ctx context.Context, now time.Time) ([]Lock, error) {
	rows, err := r.db.Query(ctx, `UPDATE period_locks
SET status=$1, locked_by=$2, locked_at=$3, lock_reason='amendment window expired', unlock_expires_at=NULL, updated_at=NOW()
WHERE status=$4 AND unlock_expires_at <= $3
RETURNING `+lockColumns, StatusLocked, SystemActor, now, StatusUnlockedAmendment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
