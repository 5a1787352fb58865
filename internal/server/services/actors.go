package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/logging"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
)

// ActorService resolves authenticated identities and maintains the roster
// that scope is derived from.
type ActorService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewActorService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *ActorService {
	return &ActorService{db: db, repomanager: m, log: log.With("module", "actors")}
}

// Get returns the active actor with id. Unknown actors are
// common.ErrorUnauthorized and banned ones common.ErrForbidden.
func (s *ActorService) Get(ctx context.Context, id string) (*models.Actor, error) {
	actor, err := s.repomanager.Actors(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	if actor.Banned {
		return nil, common.ErrForbidden
	}
	if !actor.Role.Valid() {
		return nil, common.ErrorUnauthorized
	}
	return actor, nil
}

// ImportRoster upserts every actor, batch and assignment of r in one
// transaction. Existing assignments not named in r are left as they are.
func (s *ActorService) ImportRoster(ctx context.Context, r *models.Roster) error {
	if err := validateRoster(r); err != nil {
		return err
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		actors := s.repomanager.Actors(tx)
		for _, a := range r.Actors {
			if err := actors.Upsert(ctx, &models.Actor{ID: a.ID, Name: a.Name, Role: a.Role, Banned: a.Banned}); err != nil {
				return fmt.Errorf("actor %s: %w", a.ID, err)
			}
		}

		assignments := s.repomanager.Assignments(tx)
		for _, b := range r.Batches {
			if err := assignments.UpsertBatch(ctx, b.ID, b.Name); err != nil {
				return fmt.Errorf("batch %s: %w", b.ID, err)
			}
			for _, st := range b.Students {
				if err := assignments.AddBatchStudent(ctx, b.ID, st, true); err != nil {
					return fmt.Errorf("batch %s student %s: %w", b.ID, st, err)
				}
			}
			for _, st := range b.Inactive {
				if err := assignments.AddBatchStudent(ctx, b.ID, st, false); err != nil {
					return fmt.Errorf("batch %s student %s: %w", b.ID, st, err)
				}
			}
			for _, f := range b.Faculty {
				if err := assignments.AssignFacultyBatch(ctx, f, b.ID); err != nil {
					return fmt.Errorf("batch %s faculty %s: %w", b.ID, f, err)
				}
			}
		}

		for f, students := range r.FacultyStudents {
			for _, st := range students {
				if err := assignments.AssignFacultyStudent(ctx, f, st); err != nil {
					return fmt.Errorf("faculty %s student %s: %w", f, st, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "roster imported", "actors", len(r.Actors), "batches", len(r.Batches))
	return nil
}

func validateRoster(r *models.Roster) error {
	if r == nil {
		return fmt.Errorf("%w: empty roster", common.ErrValidation)
	}
	for _, a := range r.Actors {
		if a.ID == "" {
			return fmt.Errorf("%w: actor without id", common.ErrValidation)
		}
		if a.ID == common.AutoReviewSignerID {
			return fmt.Errorf("%w: %q is reserved", common.ErrValidation, a.ID)
		}
		if !a.Role.Valid() {
			return fmt.Errorf("%w: actor %s has unknown role %q", common.ErrValidation, a.ID, a.Role)
		}
	}
	for _, b := range r.Batches {
		if b.ID == "" {
			return fmt.Errorf("%w: batch without id", common.ErrValidation)
		}
	}
	return nil
}
