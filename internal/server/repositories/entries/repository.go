package entries

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/medlogbook/internal/server/models"
)

// Transition is a conditional status change: it applies only while the row
// is still in one of From (and owned by OwnerID, when set).
type Transition struct {
	ID      string
	OwnerID string
	From    []models.Status
	To      models.Status
	// SetRemark overwrites reviewer_remark with Remark (nil clears it).
	SetRemark bool
	Remark    *string
	At        time.Time
}

// BulkTransition moves every listed entry that is in From and owned by one
// of OwnerIDs (or anyone, with AllOwners) to To.
type BulkTransition struct {
	IDs       []string
	OwnerIDs  []string
	AllOwners bool
	From      models.Status
	To        models.Status
	At        time.Time
}

// PayloadUpdate is an owner edit; it resets the entry to DRAFT and clears
// any reviewer remark.
type PayloadUpdate struct {
	ID      string
	OwnerID string
	From    []models.Status
	Payload json.RawMessage
	At      time.Time
}

type Repository interface {
	LockSequence(ctx context.Context, ownerID string, category models.Category) error
	NextSequence(ctx context.Context, ownerID string, category models.Category) (int64, error)
	Create(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	GetByID(ctx context.Context, id string) (*models.Entry, error)
	FindMany(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error)
	Transition(ctx context.Context, t Transition) (*models.Entry, error)
	TransitionMany(ctx context.Context, t BulkTransition) ([]*models.Entry, error)
	UpdatePayload(ctx context.Context, u PayloadUpdate) (*models.Entry, error)
	SetAttachment(ctx context.Context, id, ownerID string, from []models.Status, key string, at time.Time) error
	Delete(ctx context.Context, id, ownerID string, from []models.Status) error
}
