package actors

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

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Actor, error) {
	query :=
		`SELECT id, name, role, banned, created_at FROM actors
		 WHERE id = $1
		 `

	var (
		actor models.Actor
		role  string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&actor.ID, &actor.Name, &role, &actor.Banned, &actor.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	actor.Role = models.Role(role)

	return &actor, nil
}

// Upsert creates the actor or refreshes its name, role and ban flag.
func (r *PostgresRepository) Upsert(ctx context.Context, actor *models.Actor) error {
	query :=
		`INSERT INTO actors (id, name, role, banned)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			banned = EXCLUDED.banned
		 `

	if _, err := r.db.ExecContext(ctx, query, actor.ID, actor.Name, string(actor.Role), actor.Banned); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
