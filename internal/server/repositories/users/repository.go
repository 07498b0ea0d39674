// Package users declares the server-side repository contract for user
// accounts.
package users

import (
	"context"

	"github.com/centavo-app/centavo/internal/server/models"
)

type Repository interface {
	// Create stores a new user and returns it with the assigned id.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns a user by username, or common.ErrorNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
