// Package refreshtokens declares the repository contract for persisted
// refresh tokens.
package refreshtokens

import (
	"context"

	"github.com/dpolyakov/minimart/internal/server/models"
)

// Repository defines operations for storing, retrieving, and deleting
// refresh tokens. Rows are never pruned on expiry: an expired token fails
// verification by signature, not by absence.
type Repository interface {
	// Create stores a new refresh token owned by userID.
	Create(ctx context.Context, userID string, token string) error

	// Find looks up a refresh token by its opaque token string and returns
	// the stored record, or common.ErrNotFound when absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token. Deleting an absent token is not an
	// error.
	Delete(ctx context.Context, token string) error
}
