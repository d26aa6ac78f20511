package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evgarage-erp/evgarage-erp/internal/platform/db"
	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// errDuplicateSource signals the unique (org, source_type, source_id) guard
// fired. The service resolves it by returning the already-stored entry.
var errDuplicateSource = errors.New("ledger: source document already posted")

// Repository is the persistence port for journal entries.
type Repository interface {
	Insert(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	GetByID(ctx context.Context, org uuid.UUID, id int64) (JournalEntry, error)
	GetBySource(ctx context.Context, org uuid.UUID, sourceType, sourceID string) (JournalEntry, error)
	List(ctx context.Context, org uuid.UUID, limit, offset int) ([]JournalEntry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed journal repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Insert writes the entry and its lines in one RepeatableRead transaction.
func (r *repository) Insert(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO journal_entries (org_id, date, source_type, source_id, created_by, reversal_of)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
			entry.OrgID, entry.Date, entry.SourceType, entry.SourceID, entry.CreatedBy, entry.ReversalOf)
		if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return errDuplicateSource
			}
			return err
		}
		for i, line := range entry.Lines {
			if _, err := tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, position, account_code, account_name, debit, credit)
VALUES ($1,$2,$3,$4,$5,$6)`, entry.ID, i, line.AccountCode, line.AccountName, line.Debit, line.Credit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

const entryColumns = `id, org_id, date, source_type, source_id, created_by, reversal_of, created_at`

func (r *repository) GetByID(ctx context.Context, org uuid.UUID, id int64) (JournalEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 AND id=$2`, org, id)
	return r.scanEntryWithLines(ctx, row)
}

func (r *repository) GetBySource(ctx context.Context, org uuid.UUID, sourceType, sourceID string) (JournalEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 AND source_type=$2 AND source_id=$3`, org, sourceType, sourceID)
	return r.scanEntryWithLines(ctx, row)
}

func (r *repository) List(ctx context.Context, org uuid.UUID, limit, offset int) ([]JournalEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE org_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`, org, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		lines, err := r.loadLines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.OrgID, &e.Date, &e.SourceType, &e.SourceID, &e.CreatedBy, &e.ReversalOf, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *repository) scanEntryWithLines(ctx context.Context, row pgx.Row) (JournalEntry, error) {
	e, err := scanEntry(row)
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := r.loadLines(ctx, e.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	e.Lines = lines
	return e, nil
}

func (r *repository) loadLines(ctx context.Context, entryID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_code, account_name, debit, credit FROM journal_lines WHERE entry_id=$1 ORDER BY position ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.AccountCode, &line.AccountName, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("ledger: entry %d has no lines", entryID)
	}
	return lines, nil
}
