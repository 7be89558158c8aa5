package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"order-engine/internal/models"

	"github.com/jmoiron/sqlx"
)

const productColumns = "id, sku, name, stock_status, stock_quantity, in_stock, sales_count, updated_at"

// GetProduct retrieves a product by ID
func (c conn) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, c.ext, &product,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (c conn) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := sqlx.SelectContext(ctx, c.ext, &products,
		"SELECT "+productColumns+" FROM products ORDER BY id")
	return products, err
}

// GetBundleOffer retrieves a bundle offer with its items in display order
func (c conn) GetBundleOffer(ctx context.Context, id int64) (*models.BundleOffer, error) {
	var offer models.BundleOffer
	err := sqlx.GetContext(ctx, c.ext, &offer,
		"SELECT id, name, sold_count FROM bundle_offers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bundle offer %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	err = sqlx.SelectContext(ctx, c.ext, &offer.BundleItems,
		"SELECT product_id, quantity FROM bundle_offer_items WHERE offer_id = $1 ORDER BY position, id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle items: %w", err)
	}
	return &offer, nil
}

// LockProducts takes row locks on the given products in ascending id order.
// Missing ids are ignored.
func (c conn) LockProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	query, args, err := sqlx.In("SELECT id FROM products WHERE id IN (?) ORDER BY id FOR UPDATE", sorted)
	if err != nil {
		return err
	}
	query = c.ext.Rebind(query)

	var locked []int64
	if err := sqlx.SelectContext(ctx, c.ext, &locked, query, args...); err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}
	return nil
}

// AdjustProductCounters atomically moves stock_quantity and sales_count
func (c conn) AdjustProductCounters(ctx context.Context, productID int64, stockDelta, salesDelta int) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, c.ext, &product, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, sales_count = sales_count + $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+productColumns,
		stockDelta, salesDelta, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SetProductInStock writes the derived in_stock flag
func (c conn) SetProductInStock(ctx context.Context, productID int64, inStock bool) error {
	_, err := c.ext.ExecContext(ctx,
		"UPDATE products SET in_stock = $1, updated_at = NOW() WHERE id = $2",
		inStock, productID)
	return err
}

// AdjustOfferSoldCount atomically moves a bundle offer's sold_count
func (c conn) AdjustOfferSoldCount(ctx context.Context, offerID int64, delta int) (int, error) {
	var sold int
	err := sqlx.GetContext(ctx, c.ext, &sold,
		"UPDATE bundle_offers SET sold_count = sold_count + $1 WHERE id = $2 RETURNING sold_count",
		delta, offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("bundle offer %d: %w", offerID, models.ErrNotFound)
	}
	return sold, err
}
