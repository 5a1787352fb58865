// Package entries provides the PostgreSQL-backed Entry Store. Every status
// precondition is expressed in the WHERE clause of the write itself, so a
// concurrent caller can never observe or act on a stale status.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const entryColumns = `id, owner_id, category, sequence_no, status, reviewer_remark, payload, attachment_key, created_at, updated_at`

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e          models.Entry
		category   string
		status     string
		remark     sql.NullString
		payload    []byte
		attachment sql.NullString
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &category, &e.SequenceNo, &status, &remark,
		&payload, &attachment, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Category = models.Category(category)
	e.Status = models.Status(status)
	e.Payload = payload
	if remark.Valid {
		e.ReviewerRemark = &remark.String
	}
	if attachment.Valid {
		e.AttachmentKey = &attachment.String
	}
	return &e, nil
}

func collect(rows *sql.Rows) ([]*models.Entry, error) {
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LockSequence takes a transaction-scoped advisory lock on (owner, category)
// so that concurrent creates compute distinct sequence numbers. It must run
// inside a transaction.
func (r *PostgresRepository) LockSequence(ctx context.Context, ownerID string, category models.Category) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := r.db.ExecContext(ctx, query, ownerID+"/"+string(category)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// NextSequence bumps and returns the sequence counter of (owner, category).
// The counter is seeded from existing entries on first use and never moves
// back, so numbers freed by deleted entries are not handed out again.
func (r *PostgresRepository) NextSequence(ctx context.Context, ownerID string, category models.Category) (int64, error) {
	query := `
		INSERT INTO entry_sequences (owner_id, category, last_no)
		VALUES ($1, $2, (SELECT COALESCE(MAX(sequence_no), 0) + 1 FROM entries WHERE owner_id = $1 AND category = $2))
		ON CONFLICT (owner_id, category) DO UPDATE SET last_no = entry_sequences.last_no + 1
		RETURNING last_no`

	var next int64
	if err := r.db.QueryRowContext(ctx, query, ownerID, string(category)).Scan(&next); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return next, nil
}

// Create inserts a new entry. A sequence clash surfaces as ErrStaleState.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	query := `
		INSERT INTO entries (id, owner_id, category, sequence_no, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + entryColumns

	row := r.db.QueryRowContext(ctx, query,
		entry.ID, entry.OwnerID, string(entry.Category), entry.SequenceNo, string(entry.Status),
		string(entry.Payload), entry.CreatedAt, entry.UpdatedAt)

	created, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("sequence %d already used: %w", entry.SequenceNo, common.ErrStaleState)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// GetByID returns the entry or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// FindMany lists entries matching filter ordered by owner, category and
// sequence. An owner-restricted filter with no owners returns nothing
// without touching the database.
func (r *PostgresRepository) FindMany(ctx context.Context, f models.EntryFilter) ([]*models.Entry, error) {
	if !f.AllOwners && len(f.OwnerIDs) == 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	in := func(column, op string, values []any) {
		where = append(where, fmt.Sprintf("%s %s (%s)", column, op, dbx.Placeholders(len(args)+1, len(values))))
		args = append(args, values...)
	}

	if !f.AllOwners {
		in("owner_id", "IN", dbx.Args(f.OwnerIDs))
	}
	if len(f.IDs) > 0 {
		in("id", "IN", dbx.Args(f.IDs))
	}
	if f.Category != "" {
		args = append(args, string(f.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		in("status", "IN", dbx.Args(f.Statuses))
	}
	if len(f.ExcludeStatuses) > 0 {
		in("status", "NOT IN", dbx.Args(f.ExcludeStatuses))
	}

	query := `SELECT ` + entryColumns + ` FROM entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY owner_id, category, sequence_no`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	return collect(rows)
}

// Transition applies t as a single compare-and-swap. When the row is not in
// an expected state (or not owned by t.OwnerID) ErrStaleState is returned
// and nothing changes.
func (r *PostgresRepository) Transition(ctx context.Context, t Transition) (*models.Entry, error) {
	args := []any{string(t.To), t.At}
	set := "status = $1, updated_at = $2"
	if t.SetRemark {
		args = append(args, t.Remark)
		set += fmt.Sprintf(", reviewer_remark = $%d", len(args))
	}

	args = append(args, t.ID)
	where := fmt.Sprintf("id = $%d", len(args))
	where += fmt.Sprintf(" AND status IN (%s)", dbx.Placeholders(len(args)+1, len(t.From)))
	args = append(args, dbx.Args(t.From)...)
	if t.OwnerID != "" {
		args = append(args, t.OwnerID)
		where += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}

	query := `UPDATE entries SET ` + set + ` WHERE ` + where + ` RETURNING ` + entryColumns

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrStaleState
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// TransitionMany moves every matching row in one statement and returns the
// rows it actually changed. Rows not in t.From are left untouched.
func (r *PostgresRepository) TransitionMany(ctx context.Context, t BulkTransition) ([]*models.Entry, error) {
	if len(t.IDs) == 0 || (!t.AllOwners && len(t.OwnerIDs) == 0) {
		return nil, nil
	}

	args := []any{string(t.To), t.At, string(t.From)}
	where := fmt.Sprintf("status = $3 AND id IN (%s)", dbx.Placeholders(4, len(t.IDs)))
	args = append(args, dbx.Args(t.IDs)...)
	if !t.AllOwners {
		where += fmt.Sprintf(" AND owner_id IN (%s)", dbx.Placeholders(len(args)+1, len(t.OwnerIDs)))
		args = append(args, dbx.Args(t.OwnerIDs)...)
	}

	query := `UPDATE entries SET status = $1, updated_at = $2, reviewer_remark = NULL WHERE ` + where +
		` RETURNING ` + entryColumns

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collect(rows)
}

// UpdatePayload replaces the payload of an owner's editable entry, returning
// it to DRAFT and clearing the reviewer remark.
func (r *PostgresRepository) UpdatePayload(ctx context.Context, u PayloadUpdate) (*models.Entry, error) {
	query := fmt.Sprintf(`UPDATE entries SET payload = $1, status = $2, reviewer_remark = NULL, updated_at = $3
		WHERE id = $4 AND owner_id = $5 AND status IN (%s)
		RETURNING %s`, dbx.Placeholders(6, len(u.From)), entryColumns)

	args := append([]any{string(u.Payload), string(models.StatusDraft), u.At, u.ID, u.OwnerID}, dbx.Args(u.From)...)

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrStaleState
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// SetAttachment records the object-storage key of the entry's evidence file.
func (r *PostgresRepository) SetAttachment(ctx context.Context, id, ownerID string, from []models.Status, key string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE entries SET attachment_key = $1, updated_at = $2
		WHERE id = $3 AND owner_id = $4 AND status IN (%s)`, dbx.Placeholders(5, len(from)))

	args := append([]any{key, at, id, ownerID}, dbx.Args(from)...)
	res, err := r.db.ExecContext(ctx, query, args...)
	return expectOne(res, err)
}

// Delete physically removes an owner's entry while it is in one of from.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string, from []models.Status) error {
	query := fmt.Sprintf(`DELETE FROM entries WHERE id = $1 AND owner_id = $2 AND status IN (%s)`,
		dbx.Placeholders(3, len(from)))

	args := append([]any{id, ownerID}, dbx.Args(from)...)
	res, err := r.db.ExecContext(ctx, query, args...)
	return expectOne(res, err)
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrStaleState
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
