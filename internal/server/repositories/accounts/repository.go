// Package accounts declares and implements storage of marketplace accounts.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/filetrade/internal/server/models"
)

type Repository interface {
	// Create stores a new account. A taken name yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByName(ctx context.Context, name string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
}
