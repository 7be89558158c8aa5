package worker

import (
	"context"
	"errors"
	"fmt"

	"order-engine/internal/broker"
	"order-engine/internal/models"
	"order-engine/internal/redisclient"
	"order-engine/internal/util"

	"go.uber.org/zap"
)

// ProductSource reads current product counters
type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// AvailabilityCache stores per-product stock views
type AvailabilityCache interface {
	SetAvailability(ctx context.Context, a redisclient.Availability) error
}

// AvailabilityWorker keeps the Redis availability cache in step with the
// product table
type AvailabilityWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	products     ProductSource
	cache        AvailabilityCache
	logger       *zap.Logger
}

// NewAvailabilityWorker creates a new availability worker. consumer may be
// nil when only SyncAvailability is needed.
func NewAvailabilityWorker(consumer *broker.Consumer, products ProductSource, cache AvailabilityCache) *AvailabilityWorker {
	w := &AvailabilityWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		products:     products,
		cache:        cache,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnStockAdjusted(w.HandleStockAdjusted)
	return w
}

// Start starts the worker
func (w *AvailabilityWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting availability worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AvailabilityWorker) Stop() error {
	w.logger.Info("Stopping availability worker")
	return w.consumer.Close()
}

// HandleStockAdjusted refreshes every product the event touched. Counters are
// re-read from the store because events of different orders may arrive out of
// order.
func (w *AvailabilityWorker) HandleStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	seen := make(map[int64]bool, len(event.Products))
	for _, snap := range event.Products {
		if seen[snap.ProductID] {
			continue
		}
		seen[snap.ProductID] = true

		product, err := w.products.GetProduct(ctx, snap.ProductID)
		if errors.Is(err, models.ErrNotFound) {
			w.logger.Debug("Product gone, skipping cache refresh", zap.Int64("product_id", snap.ProductID))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load product %d: %w", snap.ProductID, err)
		}

		if err := w.cache.SetAvailability(ctx, availabilityOf(product)); err != nil {
			return fmt.Errorf("failed to cache availability for product %d: %w", snap.ProductID, err)
		}
		util.AvailabilityCacheUpdatesTotal.WithLabelValues("event").Inc()
	}

	w.logger.Debug("Availability refreshed",
		zap.Int64("order_id", event.OrderID),
		zap.String("effect", event.Effect),
		zap.Int("products", len(seen)))
	return nil
}

// SyncAvailability seeds the cache from every product in the store
func (w *AvailabilityWorker) SyncAvailability(ctx context.Context) error {
	w.logger.Info("Starting availability sync to Redis")

	products, err := w.products.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	synced := 0
	for i := range products {
		if err := w.cache.SetAvailability(ctx, availabilityOf(&products[i])); err != nil {
			w.logger.Error("Failed to cache availability",
				zap.Int64("product_id", products[i].ID),
				zap.Error(err))
			continue
		}
		synced++
	}
	util.AvailabilityCacheUpdatesTotal.WithLabelValues("sync").Add(float64(synced))

	w.logger.Info("Availability sync completed",
		zap.Int("synced", synced),
		zap.Int("total", len(products)))
	return nil
}

func availabilityOf(p *models.Product) redisclient.Availability {
	return redisclient.Availability{
		ProductID:     p.ID,
		StockQuantity: p.StockQuantity,
		InStock:       p.InStock,
	}
}
