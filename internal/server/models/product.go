package models

import "time"

// Product is a catalog item. PriceCents avoids floating point money.
// ImageKey is the object-storage key of the product image, empty when no
// image was uploaded.
type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	ImageKey    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
