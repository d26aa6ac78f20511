package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists audit entries in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends one entry. The table has no update or delete path.
func (r *Repository) Record(ctx context.Context, e Entry) error {
	if r == nil || r.pool == nil {
		return errors.New("audit: repository not initialised")
	}
	if e.Action == "" || e.ResourceType == "" || e.ResourceID == "" {
		return errors.New("audit: action, resource type and resource id are required")
	}
	if e.OrgID == uuid.Nil {
		return errors.New("audit: organization id required")
	}
	beforeJSON, err := json.Marshal(e.Before)
	if err != nil {
		return err
	}
	afterJSON, err := json.Marshal(e.After)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_logs (org_id, user_id, user_role, action, resource_type, resource_id, ip, before_snapshot, after_snapshot, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE(NULLIF($10, '0001-01-01 00:00:00Z'::timestamptz), NOW()))`,
		e.OrgID, e.UserID, e.UserRole, e.Action, e.ResourceType, e.ResourceID, e.IP, beforeJSON, afterJSON, e.At)
	return err
}

// List returns entries for the org, newest first.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, user_id, user_role, action, resource_type, resource_id, ip, before_snapshot, after_snapshot, occurred_at
FROM audit_logs
WHERE org_id=$1
  AND ($2='' OR resource_type=$2)
  AND ($3='' OR resource_id=$3)
  AND ($4='' OR action=$4)
ORDER BY occurred_at DESC, id DESC
LIMIT $5 OFFSET $6`, f.OrgID, f.ResourceType, f.ResourceID, f.Action, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			beforeJSON []byte
			afterJSON  []byte
			at         time.Time
		)
		if err := rows.Scan(&e.ID, &e.OrgID, &e.UserID, &e.UserRole, &e.Action, &e.ResourceType, &e.ResourceID, &e.IP, &beforeJSON, &afterJSON, &at); err != nil {
			return nil, err
		}
		e.At = at
		_ = json.Unmarshal(beforeJSON, &e.Before)
		_ = json.Unmarshal(afterJSON, &e.After)
		out = append(out, e)
	}
	return out, rows.Err()
}
