// Package services contains the server-side business logic. This file
// implements WorkflowService, the single review-lifecycle engine shared by
// every logbook category.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/dbx"
	"github.com/dmitrijs2005/medlogbook/internal/logging"
	"github.com/dmitrijs2005/medlogbook/internal/server/config"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"github.com/dmitrijs2005/medlogbook/internal/server/notify"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/entries"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var (
	editableStatuses    = []models.Status{models.StatusDraft, models.StatusNeedsRevision}
	submittableStatuses = []models.Status{models.StatusDraft, models.StatusNeedsRevision}
	reviewableStatuses  = []models.Status{models.StatusSubmitted}
)

// WorkflowService runs every lifecycle operation. Mutations execute in one
// transaction each; every status precondition is a conditional write, and
// signatures are appended in the same transaction as the status change they
// document. Views are notified only after a successful commit.
//
// Mutating operations return a models.Result. Workflow failures (see
// common.KindOf) are reported inside the result with a nil error; storage
// and other unexpected failures are also returned as the error.
type WorkflowService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	scopes      *ScopeResolver
	policy      AutoReviewPolicy
	validator   PayloadValidator
	notifier    notify.Notifier
	log         logging.Logger

	deletable []models.Status
	now       func() time.Time
	newID     func() string
}

func NewWorkflowService(db *sql.DB, m repomanager.RepositoryManager, policy AutoReviewPolicy,
	validator PayloadValidator, n notify.Notifier, log logging.Logger, cfg *config.Config) *WorkflowService {

	deletable := []models.Status{models.StatusDraft}
	if cfg.AllowDeleteNeedsRevision {
		deletable = append(deletable, models.StatusNeedsRevision)
	}

	return &WorkflowService{
		db:          db,
		repomanager: m,
		scopes:      NewScopeResolver(m),
		policy:      policy,
		validator:   validator,
		notifier:    n,
		log:         log.With("module", "workflow"),
		deletable:   deletable,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// Create stores a new DRAFT entry owned by actor with the next sequence
// number of its category.
func (s *WorkflowService) Create(ctx context.Context, actor *models.Actor, category models.Category, payload json.RawMessage) (models.Result, error) {
	var created *models.Entry

	err := func() error {
		if actor == nil || actor.Role != models.RoleStudent {
			return common.ErrForbidden
		}
		if !category.Known() {
			return fmt.Errorf("%w: unknown category %q", common.ErrValidation, category)
		}
		if err := s.validator.Validate(category, payload); err != nil {
			return err
		}

		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Entries(tx)

			if err := repo.LockSequence(ctx, actor.ID, category); err != nil {
				return err
			}
			seq, err := repo.NextSequence(ctx, actor.ID, category)
			if err != nil {
				return err
			}

			now := s.now()
			created, err = repo.Create(ctx, &models.Entry{
				ID:         s.newID(),
				OwnerID:    actor.ID,
				Category:   category,
				SequenceNo: seq,
				Status:     models.StatusDraft,
				Payload:    payload,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			return err
		})
	}()

	return s.finish(ctx, "create", actor, created, -1, err, notify.EntryViews)
}

// Edit replaces the payload of an owner's DRAFT or NEEDS_REVISION entry.
// The entry returns to DRAFT and any reviewer remark is cleared.
func (s *WorkflowService) Edit(ctx context.Context, actor *models.Actor, id string, payload json.RawMessage) (models.Result, error) {
	var edited *models.Entry

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		entry, err := s.loadOwned(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if !models.CanTransition(entry.Status, models.StatusDraft) {
			return common.ErrInvalidStateTransition
		}
		if err := s.validator.Validate(entry.Category, payload); err != nil {
			return err
		}

		edited, err = repo.UpdatePayload(ctx, entries.PayloadUpdate{
			ID:      entry.ID,
			OwnerID: actor.ID,
			From:    editableStatuses,
			Payload: payload,
			At:      s.now(),
		})
		return transitionErr(err)
	})

	return s.finish(ctx, "edit", actor, edited, -1, err, notify.EntryViews)
}

// Delete removes an owner's entry while it is still deletable. Entries
// that have been submitted are never removed.
func (s *WorkflowService) Delete(ctx context.Context, actor *models.Actor, id string) (models.Result, error) {
	var deleted *models.Entry

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		entry, err := s.loadOwned(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if err := transitionErr(repo.Delete(ctx, entry.ID, actor.ID, s.deletable)); err != nil {
			return err
		}
		deleted = entry
		return nil
	})

	return s.finish(ctx, "delete", actor, deleted, -1, err, notify.EntryViews)
}

// Submit sends an owner's entry to review. When auto-review is enabled for
// the entry's category the entry is signed straight away by the
// auto-review signer.
func (s *WorkflowService) Submit(ctx context.Context, actor *models.Actor, id string) (models.Result, error) {
	var (
		submitted *models.Entry
		views     = notify.EntryViews
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		entry, err := s.loadOwned(ctx, repo, actor, id)
		if err != nil {
			return err
		}

		auto, err := s.policy.IsEnabled(ctx, tx, entry.Category)
		if err != nil {
			return err
		}

		if !auto {
			submitted, err = repo.Transition(ctx, entries.Transition{
				ID:      entry.ID,
				OwnerID: actor.ID,
				From:    submittableStatuses,
				To:      models.StatusSubmitted,
				At:      s.now(),
			})
			return transitionErr(err)
		}

		remark := common.AutoReviewRemark
		submitted, err = repo.Transition(ctx, entries.Transition{
			ID:        entry.ID,
			OwnerID:   actor.ID,
			From:      submittableStatuses,
			To:        models.StatusSigned,
			SetRemark: true,
			Remark:    &remark,
			At:        s.now(),
		})
		if err = transitionErr(err); err != nil {
			return err
		}

		views = notify.SignedViews
		return s.appendSignature(ctx, tx, submitted, common.AutoReviewSignerID, &remark)
	})

	return s.finish(ctx, "submit", actor, submitted, -1, err, views)
}

// Sign approves a SUBMITTED entry inside the reviewer's scope. A non-blank
// remark is stored on the entry and on the signature; otherwise the entry
// remark is cleared.
func (s *WorkflowService) Sign(ctx context.Context, actor *models.Actor, id string, remark *string) (models.Result, error) {
	var signed *models.Entry
	remark = normalizeRemark(remark)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		entry, err := s.loadInScope(ctx, tx, repo, actor, id)
		if err != nil {
			return err
		}

		signed, err = repo.Transition(ctx, entries.Transition{
			ID:        entry.ID,
			From:      reviewableStatuses,
			To:        models.StatusSigned,
			SetRemark: true,
			Remark:    remark,
			At:        s.now(),
		})
		if err = transitionErr(err); err != nil {
			return err
		}

		return s.appendSignature(ctx, tx, signed, actor.ID, remark)
	})

	return s.finish(ctx, "sign", actor, signed, -1, err, notify.SignedViews)
}

// Reject sends a SUBMITTED entry back to its owner with a mandatory remark.
// No signature is written.
func (s *WorkflowService) Reject(ctx context.Context, actor *models.Actor, id string, remark string) (models.Result, error) {
	var rejected *models.Entry

	err := func() error {
		r := normalizeRemark(&remark)
		if r == nil {
			return fmt.Errorf("%w: a remark is required to request revision", common.ErrValidation)
		}

		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Entries(tx)

			entry, err := s.loadInScope(ctx, tx, repo, actor, id)
			if err != nil {
				return err
			}

			rejected, err = repo.Transition(ctx, entries.Transition{
				ID:        entry.ID,
				From:      reviewableStatuses,
				To:        models.StatusNeedsRevision,
				SetRemark: true,
				Remark:    r,
				At:        s.now(),
			})
			return transitionErr(err)
		})
	}()

	return s.finish(ctx, "reject", actor, rejected, -1, err, notify.EntryViews)
}

// BulkSign signs every listed entry that is SUBMITTED and inside the
// reviewer's scope, all or nothing. Other ids are dropped silently; when
// none remain the call fails with common.ErrEmptyBulkSelection.
func (s *WorkflowService) BulkSign(ctx context.Context, actor *models.Actor, ids []string) (models.Result, error) {
	signedCount := -1

	err := func() error {
		ids = uniqueEntryIDs(ids)
		if len(ids) == 0 {
			return common.ErrEmptyBulkSelection
		}

		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			scope, err := s.scopes.Resolve(ctx, tx, actor)
			if err != nil {
				return err
			}
			if scope.Empty() {
				return common.ErrEmptyBulkSelection
			}

			filter := scope.Apply(models.EntryFilter{})
			signed, err := s.repomanager.Entries(tx).TransitionMany(ctx, entries.BulkTransition{
				IDs:       ids,
				OwnerIDs:  filter.OwnerIDs,
				AllOwners: filter.AllOwners,
				From:      models.StatusSubmitted,
				To:        models.StatusSigned,
				At:        s.now(),
			})
			if err != nil {
				return err
			}
			if len(signed) == 0 {
				return common.ErrEmptyBulkSelection
			}

			for _, e := range signed {
				if err := s.appendSignature(ctx, tx, e, actor.ID, nil); err != nil {
					return err
				}
			}
			signedCount = len(signed)
			return nil
		})
	}()

	return s.finish(ctx, "bulk_sign", actor, nil, signedCount, err, notify.SignedViews)
}

// Get returns an entry visible to actor: its owner, or a reviewer whose
// scope includes the owner.
func (s *WorkflowService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Entry, error) {
	return s.loadVisible(ctx, s.db, actor, id)
}

// ListOwn lists actor's own entries, optionally restricted to one category.
func (s *WorkflowService) ListOwn(ctx context.Context, actor *models.Actor, category models.Category) ([]*models.Entry, error) {
	if actor == nil {
		return nil, common.ErrForbidden
	}
	return s.repomanager.Entries(s.db).FindMany(ctx, models.EntryFilter{
		OwnerIDs: []string{actor.ID},
		Category: category,
	})
}

// ListForReview lists every non-DRAFT entry inside actor's scope. An empty
// scope yields an empty list.
func (s *WorkflowService) ListForReview(ctx context.Context, actor *models.Actor, category models.Category) ([]*models.Entry, error) {
	return s.listInScope(ctx, actor, models.EntryFilter{
		Category:        category,
		ExcludeStatuses: []models.Status{models.StatusDraft},
	})
}

// BulkSignCandidates lists the SUBMITTED entries inside actor's scope.
func (s *WorkflowService) BulkSignCandidates(ctx context.Context, actor *models.Actor, category models.Category) ([]*models.Entry, error) {
	return s.listInScope(ctx, actor, models.EntryFilter{
		Category: category,
		Statuses: []models.Status{models.StatusSubmitted},
	})
}

func (s *WorkflowService) listInScope(ctx context.Context, actor *models.Actor, f models.EntryFilter) ([]*models.Entry, error) {
	scope, err := s.scopes.Resolve(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []*models.Entry{}, nil
	}
	return s.repomanager.Entries(s.db).FindMany(ctx, scope.Apply(f))
}

// loadOwned fetches id and checks direct ownership. Absence and foreign
// ownership are the same error.
func (s *WorkflowService) loadOwned(ctx context.Context, repo entries.Repository, actor *models.Actor, id string) (*models.Entry, error) {
	if actor == nil || !validEntryID(id) {
		return nil, common.ErrNotFoundOrUnauthorized
	}
	entry, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotFoundOrUnauthorized
		}
		return nil, err
	}
	if entry.OwnerID != actor.ID {
		return nil, common.ErrNotFoundOrUnauthorized
	}
	return entry, nil
}

// loadInScope fetches id and checks that the owner is inside actor's
// review scope.
func (s *WorkflowService) loadInScope(ctx context.Context, db dbx.DBTX, repo entries.Repository, actor *models.Actor, id string) (*models.Entry, error) {
	if actor == nil || !actor.Role.IsReviewer() || !validEntryID(id) {
		return nil, common.ErrNotFoundOrUnauthorized
	}
	entry, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotFoundOrUnauthorized
		}
		return nil, err
	}
	scope, err := s.scopes.Resolve(ctx, db, actor)
	if err != nil {
		return nil, err
	}
	if !scope.Contains(entry.OwnerID) {
		return nil, common.ErrNotFoundOrUnauthorized
	}
	return entry, nil
}

// loadVisible accepts either predicate: ownership or review scope.
func (s *WorkflowService) loadVisible(ctx context.Context, db dbx.DBTX, actor *models.Actor, id string) (*models.Entry, error) {
	repo := s.repomanager.Entries(db)

	entry, err := s.loadOwned(ctx, repo, actor, id)
	if err == nil || !errors.Is(err, common.ErrNotFoundOrUnauthorized) || actor == nil || !actor.Role.IsReviewer() {
		return entry, err
	}
	return s.loadInScope(ctx, db, repo, actor, id)
}

func (s *WorkflowService) appendSignature(ctx context.Context, tx dbx.DBTX, entry *models.Entry, signerID string, remark *string) error {
	err := s.repomanager.Signatures(tx).Append(ctx, &models.DigitalSignature{
		ID:            s.newID(),
		SignerID:      signerID,
		EntityType:    entry.Category,
		EntityID:      entry.ID,
		Remark:        remark,
		PayloadDigest: PayloadDigest(entry),
		CreatedAt:     s.now(),
	})
	if errors.Is(err, common.ErrAlreadySigned) {
		return common.ErrInvalidStateTransition
	}
	return err
}

// finish converts an operation outcome into the result envelope, logs it and
// notifies views after a successful commit.
func (s *WorkflowService) finish(ctx context.Context, op string, actor *models.Actor, entry *models.Entry,
	signedCount int, err error, views []notify.View) (models.Result, error) {

	log := s.log.With("op", op)
	if actor != nil {
		log = log.With("actor_id", actor.ID)
	}

	switch {
	case err == nil:
		if entry != nil {
			log.Info(ctx, "workflow operation succeeded", "entry_id", entry.ID, "status", entry.Status)
		} else {
			log.Info(ctx, "workflow operation succeeded", "signed_count", signedCount)
		}
		s.notifier.Notify(ctx, views...)
		return models.NewResult(entry, signedCount, nil), nil
	case common.IsDomain(err):
		log.Debug(ctx, "workflow operation refused", "kind", common.KindOf(err), "error", err)
		return models.NewResult(nil, -1, err), nil
	default:
		log.Error(ctx, "workflow operation failed", "error", err)
		return models.NewResult(nil, -1, err), err
	}
}

// transitionErr maps a conditional-write miss to InvalidStateTransition.
func transitionErr(err error) error {
	if errors.Is(err, common.ErrStaleState) {
		return common.ErrInvalidStateTransition
	}
	return err
}

func normalizeRemark(remark *string) *string {
	if remark == nil {
		return nil
	}
	r := strings.TrimSpace(*remark)
	if r == "" {
		return nil
	}
	return &r
}

func validEntryID(id string) bool {
	return uuid.Validate(id) == nil
}

// uniqueEntryIDs drops duplicates and ids that cannot name an entry.
func uniqueEntryIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !validEntryID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
