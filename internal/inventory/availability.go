package inventory

import (
	"context"

	"order-engine/internal/models"
	"order-engine/internal/util"
)

// IsAvailable reports whether product can satisfy quantity under its stock mode.
// in_stock and on_backorder never compare against stock_quantity, which may go
// negative. Unknown modes are not available.
func IsAvailable(product *models.Product, quantity int) bool {
	switch product.StockStatus {
	case models.StockStatusOutOfStock:
		return false
	case models.StockStatusInStock, models.StockStatusOnBackorder:
		return true
	case models.StockStatusStockBased:
		return product.StockQuantity >= quantity
	default:
		return false
	}
}

// CheckResult is the outcome of an availability scan
type CheckResult struct {
	Available       bool
	BlockingProduct string
}

// Checker evaluates order items against the availability rule
type Checker struct {
	expander *Expander
}

// NewChecker creates a new availability checker
func NewChecker(catalog Catalog) *Checker {
	return &Checker{expander: NewExpander(catalog)}
}

// Check scans items in order and stops at the first product that cannot
// satisfy its required quantity. Missing products and offers are skipped.
func (c *Checker) Check(ctx context.Context, items []models.OrderItem) (CheckResult, error) {
	ctx, span := util.StartSpan(ctx, "Checker.Check")
	defer span.End()

	for i := range items {
		resolved, ok, err := c.expander.Resolve(ctx, &items[i])
		if err != nil {
			return CheckResult{}, err
		}
		if !ok {
			continue
		}
		for _, req := range resolved.Requirements {
			if !IsAvailable(req.Product, req.Quantity) {
				return CheckResult{Available: false, BlockingProduct: req.Product.Name}, nil
			}
		}
	}

	return CheckResult{Available: true}, nil
}
