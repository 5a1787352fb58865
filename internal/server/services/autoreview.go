package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/logging"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/dmitrijs2005/medlogbook/internal/server/notify"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
)

// AutoReviewPolicy answers whether submissions in a category bypass review.
type AutoReviewPolicy interface {
	IsEnabled(ctx context.Context, db dbx.DBTX, category models.Category) (bool, error)
}

// AutoReviewService manages the per-category auto-review flags.
type AutoReviewService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    notify.Notifier
	log         logging.Logger
	now         func() time.Time
}

func NewAutoReviewService(db *sql.DB, m repomanager.RepositoryManager, n notify.Notifier, log logging.Logger) *AutoReviewService {
	return &AutoReviewService{
		db:          db,
		repomanager: m,
		notifier:    n,
		log:         log.With("module", "autoreview"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetAll reports the flag of every known category; categories without a
// stored setting are false. Only reviewers may read the settings.
func (s *AutoReviewService) GetAll(ctx context.Context, actor *models.Actor) (map[models.Category]bool, error) {
	if actor == nil || !actor.Role.IsReviewer() {
		return nil, common.ErrForbidden
	}

	stored, err := s.repomanager.AutoReview(s.db).GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load auto review settings: %w", err)
	}

	result := make(map[models.Category]bool, len(models.Categories))
	for _, c := range models.Categories {
		result[c] = false
	}
	for _, st := range stored {
		if st.Category.Known() {
			result[st.Category] = st.Enabled
		}
	}
	return result, nil
}

// Set upserts one flag. HOD only; last writer wins. Refusals come back in
// the envelope with a nil error, like the workflow operations.
func (s *AutoReviewService) Set(ctx context.Context, actor *models.Actor, category models.Category, enabled bool) (models.Result, error) {
	err := func() error {
		if actor == nil || actor.Role != models.RoleHOD {
			return common.ErrForbidden
		}
		if !category.Known() {
			return fmt.Errorf("%w: unknown category %q", common.ErrValidation, category)
		}

		err := s.repomanager.AutoReview(s.db).Upsert(ctx, &models.AutoReviewSetting{
			Category:  category,
			Enabled:   enabled,
			UpdatedBy: actor.ID,
			UpdatedAt: s.now(),
		})
		if err != nil {
			return fmt.Errorf("store auto review setting: %w", err)
		}
		return nil
	}()

	switch {
	case err == nil:
		s.log.Info(ctx, "auto review updated", "category", category, "enabled", enabled, "actor_id", actor.ID)
		s.notifier.Notify(ctx, notify.ViewAutoReview)
		return models.NewResult(nil, -1, nil), nil
	case common.IsDomain(err):
		s.log.Debug(ctx, "auto review update refused", "category", category, "kind", common.KindOf(err))
		return models.NewResult(nil, -1, err), nil
	default:
		s.log.Error(ctx, "auto review update failed", "category", category, "error", err)
		return models.NewResult(nil, -1, err), err
	}
}

// IsEnabled is false when no setting is stored for category.
func (s *AutoReviewService) IsEnabled(ctx context.Context, db dbx.DBTX, category models.Category) (bool, error) {
	st, err := s.repomanager.AutoReview(db).Get(ctx, category)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load auto review setting: %w", err)
	}
	return st.Enabled, nil
}
