// Package repomanager provides a Postgres-backed RepositoryManager that
// constructs per-handle repositories and applies embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/server/migrations"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/actors"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/assignments"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/autoreview"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/entries"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/signatures"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var gooseUpContext = goose.UpContext

type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Actors(db dbx.DBTX) actors.Repository {
	return actors.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Assignments(db dbx.DBTX) assignments.Repository {
	return assignments.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Entries(db dbx.DBTX) entries.Repository {
	return entries.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Signatures(db dbx.DBTX) signatures.Repository {
	return signatures.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AutoReview(db dbx.DBTX) autoreview.Repository {
	return autoreview.NewPostgresRepository(db)
}

// RunMigrations applies all embedded migrations with goose.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return gooseUpContext(ctx, db, ".")
}
