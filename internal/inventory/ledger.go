package inventory

import (
	"context"
	"fmt"

	"order-engine/internal/models"
)

// Ledger applies restore and deduct movements to product and offer counters.
// Each call must happen exactly once per order crossing of the cancelled boundary.
type Ledger struct {
	counters CounterStore
}

// NewLedger creates a new inventory ledger
func NewLedger(counters CounterStore) *Ledger {
	return &Ledger{counters: counters}
}

// Restore returns qty units of product to stock and removes them from sales
func (l *Ledger) Restore(ctx context.Context, product *models.Product, qty int) (models.StockSnapshot, error) {
	return l.apply(ctx, product, qty)
}

// Deduct takes qty units of product from stock and adds them to sales
func (l *Ledger) Deduct(ctx context.Context, product *models.Product, qty int) (models.StockSnapshot, error) {
	return l.apply(ctx, product, -qty)
}

// apply moves stock by delta and sales by -delta. sales_count is not floored at zero.
func (l *Ledger) apply(ctx context.Context, product *models.Product, delta int) (models.StockSnapshot, error) {
	updated, err := l.counters.AdjustProductCounters(ctx, product.ID, delta, -delta)
	if err != nil {
		return models.StockSnapshot{}, fmt.Errorf("failed to adjust stock for product %d: %w", product.ID, err)
	}

	inStock := updated.InStock
	if updated.IsStockBased() {
		inStock = updated.StockQuantity > 0
		if inStock != updated.InStock {
			if err := l.counters.SetProductInStock(ctx, product.ID, inStock); err != nil {
				return models.StockSnapshot{}, fmt.Errorf("failed to sync in_stock for product %d: %w", product.ID, err)
			}
		}
	}

	return models.StockSnapshot{
		ProductID:     product.ID,
		Delta:         delta,
		StockQuantity: updated.StockQuantity,
		InStock:       inStock,
		SalesCount:    updated.SalesCount,
	}, nil
}

// RestoreOffer removes lineQty bundle units from the offer's sold_count
func (l *Ledger) RestoreOffer(ctx context.Context, offer *models.BundleOffer, lineQty int) (models.OfferSnapshot, error) {
	return l.applyOffer(ctx, offer, -lineQty)
}

// DeductOffer adds lineQty bundle units to the offer's sold_count
func (l *Ledger) DeductOffer(ctx context.Context, offer *models.BundleOffer, lineQty int) (models.OfferSnapshot, error) {
	return l.applyOffer(ctx, offer, lineQty)
}

func (l *Ledger) applyOffer(ctx context.Context, offer *models.BundleOffer, delta int) (models.OfferSnapshot, error) {
	sold, err := l.counters.AdjustOfferSoldCount(ctx, offer.ID, delta)
	if err != nil {
		return models.OfferSnapshot{}, fmt.Errorf("failed to adjust sold count for offer %d: %w", offer.ID, err)
	}
	return models.OfferSnapshot{OfferID: offer.ID, Delta: delta, SoldCount: sold}, nil
}
