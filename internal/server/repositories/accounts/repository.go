package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophidentity/internal/server/models"
)

// Repository is the credential store. Lookups of absent rows return
// common.ErrorNotFound; unique collisions return a *common.Error of kind
// conflict naming the field ("handle" or "email").
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByHandle(ctx context.Context, handle string) (*models.Account, error)
	UpdateFields(ctx context.Context, id string, patch models.AccountPatch) (*models.Account, error)
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) (models.RoleCounts, error)
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	Ping(ctx context.Context) error
}
