package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/actors"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/assignments"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/autoreview"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/entries"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/signatures"
)

// RepositoryManager hands out repositories bound to a specific handle, so
// services can run several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Actors(db dbx.DBTX) actors.Repository
	Assignments(db dbx.DBTX) assignments.Repository
	Entries(db dbx.DBTX) entries.Repository
	Signatures(db dbx.DBTX) signatures.Repository
	AutoReview(db dbx.DBTX) autoreview.Repository
}
