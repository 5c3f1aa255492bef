// Package users declares the repository contract for persisted user
// accounts.
package users

import (
	"context"

	"github.com/dpolyakov/minimart/internal/server/models"
)

// Repository defines the credential-store operations the auth core depends
// on.
type Repository interface {
	// Create inserts a new user and returns it with its store-assigned id
	// and timestamps. A duplicate email yields common.ErrEmailTaken; the
	// store's unique constraint is the authoritative guard, not the
	// ExistsByEmail fast path.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given email, or
	// common.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with the given id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// ExistsByEmail reports whether a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
