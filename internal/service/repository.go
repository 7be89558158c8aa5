package service

import (
	"context"
	"time"

	"order-engine/internal/inventory"
	"order-engine/internal/models"
	"order-engine/internal/store"
)

// UnitOfWork is the transactional view of the catalog and orders used by a
// single mutation. Everything written through it commits or rolls back together.
type UnitOfWork interface {
	inventory.Catalog
	inventory.CounterStore
	LockProducts(ctx context.Context, ids []int64) error
	GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderFields(ctx context.Context, order *models.Order) error
	DeleteOrderItems(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

// Repository opens units of work and serves plain reads
type Repository interface {
	InTx(ctx context.Context, fn func(UnitOfWork) error) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// OrderLocker serializes mutations of one order across service instances
type OrderLocker interface {
	AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (token string, acquired bool, err error)
	ReleaseOrderLock(ctx context.Context, orderID int64, token string) error
}

// EventPublisher publishes order lifecycle events after commit
type EventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error
	PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error
}

type storeRepository struct {
	*store.Store
}

// NewStoreRepository adapts the Postgres store to Repository
func NewStoreRepository(s *store.Store) Repository {
	return storeRepository{Store: s}
}

func (r storeRepository) InTx(ctx context.Context, fn func(UnitOfWork) error) error {
	return r.WithTx(ctx, func(tx *store.Tx) error {
		return fn(tx)
	})
}
