package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"order-engine/internal/models"
	"order-engine/internal/redisclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducts struct {
	products map[int64]models.Product
	listErr  error
}

func (f *fakeProducts) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeProducts) GetProducts(ctx context.Context) ([]models.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

type fakeCache struct {
	entries map[int64]redisclient.Availability
	writes  int
	failOn  int64
}

func (f *fakeCache) SetAvailability(ctx context.Context, a redisclient.Availability) error {
	if a.ProductID == f.failOn {
		return errors.New("READONLY You can't write against a read only replica")
	}
	if f.entries == nil {
		f.entries = make(map[int64]redisclient.Availability)
	}
	f.entries[a.ProductID] = a
	f.writes++
	return nil
}

func TestHandleStockAdjusted_ReadsCurrentCounters(t *testing.T) {
	products := &fakeProducts{products: map[int64]models.Product{
		1: {ID: 1, StockQuantity: 4, InStock: true},
		2: {ID: 2, StockQuantity: 0, InStock: false},
	}}
	cache := &fakeCache{}
	w := NewAvailabilityWorker(nil, products, cache)

	err := w.HandleStockAdjusted(context.Background(), &models.StockAdjustedEvent{
		OrderID: 1,
		Products: []models.StockSnapshot{
			{ProductID: 1, StockQuantity: 9, InStock: true},
			{ProductID: 1, StockQuantity: 10, InStock: true},
			{ProductID: 2},
			{ProductID: 99},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cache.writes)
	assert.Equal(t, 4, cache.entries[1].StockQuantity)
	assert.False(t, cache.entries[2].InStock)
}

func TestHandleStockAdjusted_CacheErrorIsReturned(t *testing.T) {
	products := &fakeProducts{products: map[int64]models.Product{3: {ID: 3}}}
	w := NewAvailabilityWorker(nil, products, &fakeCache{failOn: 3})

	err := w.HandleStockAdjusted(context.Background(), &models.StockAdjustedEvent{
		Products: []models.StockSnapshot{{ProductID: 3}},
	})
	assert.ErrorContains(t, err, "READONLY")
}

func TestSyncAvailability(t *testing.T) {
	products := &fakeProducts{products: map[int64]models.Product{
		1: {ID: 1, StockQuantity: 4, InStock: true},
		2: {ID: 2, StockQuantity: -3},
		3: {ID: 3, StockQuantity: 1, InStock: true},
	}}
	cache := &fakeCache{failOn: 3}
	w := NewAvailabilityWorker(nil, products, cache)

	require.NoError(t, w.SyncAvailability(context.Background()))
	assert.Equal(t, 2, cache.writes)
	assert.Equal(t, -3, cache.entries[2].StockQuantity)

	products.listErr = errors.New("connection refused")
	assert.Error(t, w.SyncAvailability(context.Background()))
}
