package signatures

import (
	"context"

	"github.com/dmitrijs2005/medlogbook/internal/server/models"
)

// Repository is the append-only signature log: rows are never updated or
// deleted.
type Repository interface {
	Append(ctx context.Context, sig *models.DigitalSignature) error
	ListByEntity(ctx context.Context, entityID string) ([]*models.DigitalSignature, error)
	CountByEntity(ctx context.Context, entityID string) (int, error)
	ListBySigner(ctx context.Context, signerID string, limit int) ([]*models.DigitalSignature, error)
}
