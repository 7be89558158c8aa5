package inventory

import (
	"context"
	"errors"
	"fmt"

	"order-engine/internal/models"
)

type fakeCatalog struct {
	products      map[int64]*models.Product
	offers        map[int64]*models.BundleOffer
	failOn        int64
	inStockWrites int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: make(map[int64]*models.Product),
		offers:   make(map[int64]*models.BundleOffer),
	}
}

func (f *fakeCatalog) addProduct(p models.Product) *models.Product {
	f.products[p.ID] = &p
	return &p
}

func (f *fakeCatalog) addOffer(o models.BundleOffer) {
	f.offers[o.ID] = &o
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if id == f.failOn {
		return nil, errors.New("connection reset")
	}
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) GetBundleOffer(ctx context.Context, id int64) (*models.BundleOffer, error) {
	o, ok := f.offers[id]
	if !ok {
		return nil, fmt.Errorf("bundle offer %d: %w", id, models.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeCatalog) AdjustProductCounters(ctx context.Context, productID int64, stockDelta, salesDelta int) (*models.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	p.StockQuantity += stockDelta
	p.SalesCount += salesDelta
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) SetProductInStock(ctx context.Context, productID int64, inStock bool) error {
	f.inStockWrites++
	f.products[productID].InStock = inStock
	return nil
}

func (f *fakeCatalog) AdjustOfferSoldCount(ctx context.Context, offerID int64, delta int) (int, error) {
	o, ok := f.offers[offerID]
	if !ok {
		return 0, fmt.Errorf("bundle offer %d: %w", offerID, models.ErrNotFound)
	}
	o.SoldCount += delta
	return o.SoldCount, nil
}

func productItem(productID int64, qty int) models.OrderItem {
	id := productID
	return models.OrderItem{Kind: models.LineKindProduct, ProductID: &id, Quantity: qty}
}

func bundleItem(offerID int64, qty int) models.OrderItem {
	id := offerID
	return models.OrderItem{Kind: models.LineKindBundle, BundleOfferID: &id, ProductSKU: models.BundleSKU(offerID), Quantity: qty}
}
