package signatures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const signatureColumns = `id, signer_id, entity_type, entity_id, remark, payload_digest, created_at`

// PostgresRepository implements the signature log over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts one signature. A second signature for the same entry is
// rejected by the unique index and reported as common.ErrAlreadySigned.
func (r *PostgresRepository) Append(ctx context.Context, sig *models.DigitalSignature) error {
	query := `
		INSERT INTO digital_signatures (id, signer_id, entity_type, entity_id, remark, payload_digest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		sig.ID, sig.SignerID, string(sig.EntityType), sig.EntityID, sig.Remark, sig.PayloadDigest, sig.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrAlreadySigned
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByEntity returns the signatures of one entry, oldest first.
func (r *PostgresRepository) ListByEntity(ctx context.Context, entityID string) ([]*models.DigitalSignature, error) {
	query := `SELECT ` + signatureColumns + ` FROM digital_signatures WHERE entity_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to select signatures: %w", err)
	}
	return collect(rows)
}

// CountByEntity returns how many signatures reference entityID.
func (r *PostgresRepository) CountByEntity(ctx context.Context, entityID string) (int, error) {
	query := `SELECT COUNT(*) FROM digital_signatures WHERE entity_id = $1`

	var n int
	if err := r.db.QueryRowContext(ctx, query, entityID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// ListBySigner returns the most recent signatures made by signerID.
func (r *PostgresRepository) ListBySigner(ctx context.Context, signerID string, limit int) ([]*models.DigitalSignature, error) {
	query := `SELECT ` + signatureColumns + ` FROM digital_signatures
		WHERE signer_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, signerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select signatures: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*models.DigitalSignature, error) {
	defer rows.Close()

	var result []*models.DigitalSignature
	for rows.Next() {
		var (
			item       models.DigitalSignature
			entityType string
			remark     sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.SignerID, &entityType, &item.EntityID, &remark,
			&item.PayloadDigest, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.EntityType = models.Category(entityType)
		if remark.Valid {
			item.Remark = &remark.String
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
