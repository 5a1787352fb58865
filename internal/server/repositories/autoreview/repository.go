package autoreview

import (
	"context"

	"github.com/dmitrijs2005/medlogbook/internal/server/models"
)

type Repository interface {
	GetAll(ctx context.Context) ([]*models.AutoReviewSetting, error)
	Get(ctx context.Context, category models.Category) (*models.AutoReviewSetting, error)
	Upsert(ctx context.Context, setting *models.AutoReviewSetting) error
}
