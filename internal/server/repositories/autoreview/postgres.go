package autoreview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetAll returns every stored setting. Categories never configured have no row.
func (r *PostgresRepository) GetAll(ctx context.Context) ([]*models.AutoReviewSetting, error) {
	query := `SELECT category, enabled, updated_by, updated_at FROM auto_review_settings ORDER BY category`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select auto review settings: %w", err)
	}
	defer rows.Close()

	var result []*models.AutoReviewSetting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns the setting for category or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, category models.Category) (*models.AutoReviewSetting, error) {
	query := `SELECT category, enabled, updated_by, updated_at FROM auto_review_settings WHERE category = $1`

	s, err := scanSetting(r.db.QueryRowContext(ctx, query, string(category)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.AutoReviewSetting) error {
	query := `
		INSERT INTO auto_review_settings (category, enabled, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (category)
		DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, string(s.Category), s.Enabled, s.UpdatedBy, s.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanSetting(row interface{ Scan(dest ...any) error }) (*models.AutoReviewSetting, error) {
	var (
		s        models.AutoReviewSetting
		category string
	)
	if err := row.Scan(&category, &s.Enabled, &s.UpdatedBy, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Category = models.Category(category)
	return &s, nil
}
