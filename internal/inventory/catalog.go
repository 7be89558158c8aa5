package inventory

import (
	"context"
	"errors"

	"order-engine/internal/models"
)

// Catalog reads products and bundle offers. Lookups return an error wrapping
// models.ErrNotFound when the row does not exist.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetBundleOffer(ctx context.Context, id int64) (*models.BundleOffer, error)
}

// CounterStore applies atomic counter changes to the catalog
type CounterStore interface {
	// AdjustProductCounters adds stockDelta to stock_quantity and salesDelta to
	// sales_count in one statement and returns the row as written.
	AdjustProductCounters(ctx context.Context, productID int64, stockDelta, salesDelta int) (*models.Product, error)
	SetProductInStock(ctx context.Context, productID int64, inStock bool) error
	// AdjustOfferSoldCount adds delta to sold_count and returns the new value.
	AdjustOfferSoldCount(ctx context.Context, offerID int64, delta int) (int, error)
}

// findProduct returns nil without error when the product no longer exists.
// Historical orders may reference deleted catalog rows; callers skip them
// instead of failing the whole order. Do not turn this into a hard error.
func findProduct(ctx context.Context, catalog Catalog, id int64) (*models.Product, error) {
	product, err := catalog.GetProduct(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// findBundleOffer follows the same skip rule as findProduct
func findBundleOffer(ctx context.Context, catalog Catalog, id int64) (*models.BundleOffer, error) {
	offer, err := catalog.GetBundleOffer(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return offer, nil
}
