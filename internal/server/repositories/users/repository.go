// Package users persists user identities and credentials.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores users. Lookups return common.ErrorNotFound when no row
// matches; Create returns common.ErrorAlreadyExists for a taken username.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateEmail(ctx context.Context, id string, email *cryptox.EncryptedField) error
}
