// Package products declares the repository contract for catalog items.
package products

import (
	"context"

	"github.com/dpolyakov/minimart/internal/server/models"
)

type Repository interface {
	// Create inserts a product and returns it with its store-assigned id
	// and timestamps.
	Create(ctx context.Context, product *models.Product) (*models.Product, error)

	// List returns all products, newest first.
	List(ctx context.Context) ([]*models.Product, error)

	// Get returns the product with the given id, or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Product, error)
}
