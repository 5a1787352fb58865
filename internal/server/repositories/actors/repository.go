package actors

import (
	"context"

	"github.com/dmitrijs2005/medlogbook/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Actor, error)
	Upsert(ctx context.Context, actor *models.Actor) error
}
