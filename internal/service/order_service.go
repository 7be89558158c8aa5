package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"order-engine/internal/models"
	"order-engine/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// OrderService runs order status updates and deletions as single transactions
type OrderService struct {
	repo       Repository
	locker     OrderLocker
	publisher  EventPublisher
	reconciler *Reconciler
	lockTTL    time.Duration
	reads      singleflight.Group
	logger     *zap.Logger
}

// NewOrderService creates a new order service. locker and publisher may be nil.
func NewOrderService(
	repo Repository,
	locker OrderLocker,
	publisher EventPublisher,
	lockTTL time.Duration,
) *OrderService {
	return &OrderService{
		repo:       repo,
		locker:     locker,
		publisher:  publisher,
		reconciler: NewReconciler(),
		lockTTL:    lockTTL,
		logger:     util.GetLogger(),
	}
}

// UpdateOrderStatusRequest carries the optional fields of a status update
type UpdateOrderStatusRequest struct {
	OrderStatus   *string `json:"order_status"`
	PaymentStatus *string `json:"payment_status"`
	Notes         *string `json:"notes"`
}

func (r *UpdateOrderStatusRequest) validate() error {
	if r.OrderStatus != nil && !models.IsValidOrderStatus(*r.OrderStatus) {
		return fmt.Errorf("%w: order_status %q", ErrInvalidStatus, *r.OrderStatus)
	}
	if r.PaymentStatus != nil && !models.IsValidPaymentStatus(*r.PaymentStatus) {
		return fmt.Errorf("%w: payment_status %q", ErrInvalidStatus, *r.PaymentStatus)
	}
	return nil
}

// UpdateOrderStatus applies the requested fields and the stock effect of the
// status change in one transaction. A rejected revival leaves the order and
// all stock counters untouched.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, req *UpdateOrderStatusRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus", util.OrderIDAttr(orderID))
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	release, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	defer func() {
		util.OrderMutationLatency.WithLabelValues("update_status").Observe(time.Since(start).Seconds())
	}()

	var (
		updated   *models.Order
		oldStatus string
		adj       *Adjustment
	)

	err = s.repo.InTx(ctx, func(uow UnitOfWork) error {
		order, err := uow.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "failed to load order")
		}
		items, err := uow.GetOrderItemsByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}

		oldStatus = order.OrderStatus
		newStatus := order.OrderStatus
		if req.OrderStatus != nil {
			newStatus = *req.OrderStatus
		}

		adj, err = s.reconciler.Reconcile(ctx, uow, order, items, newStatus)
		if err != nil {
			return err
		}

		order.OrderStatus = newStatus
		if req.PaymentStatus != nil {
			order.PaymentStatus = *req.PaymentStatus
		}
		if req.Notes != nil {
			order.Notes = *req.Notes
		}
		if err := uow.UpdateOrderFields(ctx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		order.Items = items
		updated = order
		return nil
	})
	if err != nil {
		if !IsInsufficientStock(err) && !errors.Is(err, ErrOrderNotFound) {
			util.OrderMutationsFailedTotal.WithLabelValues("update_status").Inc()
			s.logger.Error("Order status update failed",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
		return nil, err
	}

	util.ReconciliationsTotal.WithLabelValues(adj.Effect.String()).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", updated.OrderStatus),
		zap.String("stock_effect", adj.Effect.String()))

	s.publishStatusChanged(ctx, updated, oldStatus, adj)
	return updated, nil
}

// DeleteOrder restores the stock of a non-cancelled order, then removes its
// items and the order row. A failure at any step rolls everything back.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder", util.OrderIDAttr(orderID))
	defer span.End()

	release, err := s.lockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() {
		util.OrderMutationLatency.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	}()

	var (
		lastStatus string
		adj        *Adjustment
	)

	err = s.repo.InTx(ctx, func(uow UnitOfWork) error {
		order, err := uow.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "failed to load order")
		}
		lastStatus = order.OrderStatus

		items, err := uow.GetOrderItemsByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}

		if !order.IsCancelled() {
			adj, err = s.reconciler.Restore(ctx, uow, orderID, items)
			if err != nil {
				return fmt.Errorf("failed to restore stock: %w", err)
			}
		}

		if err := uow.DeleteOrderItems(ctx, orderID); err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		if err := uow.DeleteOrder(ctx, orderID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			util.OrderMutationsFailedTotal.WithLabelValues("delete").Inc()
			s.logger.Error("Order deletion failed",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
		return err
	}

	util.OrdersDeletedTotal.Inc()
	s.logger.Info("Order deleted",
		zap.Int64("order_id", orderID),
		zap.String("last_status", lastStatus),
		zap.Bool("stock_restored", adj != nil))

	s.publishDeleted(ctx, orderID, lastStatus, adj)
	return nil
}

// GetOrder retrieves an order with its items. Concurrent reads of the same
// order share one database round trip, which runs detached from any single
// caller's cancellation; each caller still stops waiting when its own ctx ends.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", util.OrderIDAttr(orderID))
	defer span.End()

	loadCtx := context.WithoutCancel(ctx)
	ch := s.reads.DoChan(strconv.FormatInt(orderID, 10), func() (interface{}, error) {
		order, err := s.repo.GetOrderByID(loadCtx, orderID)
		if err != nil {
			return nil, notFoundOr(err, "failed to load order")
		}
		items, err := s.repo.GetOrderItemsByOrderID(loadCtx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load order items: %w", err)
		}
		order.Items = items
		return order, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.(*models.Order)
		order := *shared
		order.Items = append([]models.OrderItem(nil), shared.Items...)
		return &order, nil
	}
}

// lockOrder takes the distributed order lock. Redis failures degrade to the
// database row locks alone.
func (s *OrderService) lockOrder(ctx context.Context, orderID int64) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	token, acquired, err := s.locker.AcquireOrderLock(ctx, orderID, s.lockTTL)
	if err != nil {
		s.logger.Warn("Order lock unavailable, relying on row locks",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return noop, nil
	}
	if !acquired {
		return nil, ErrOrderBusy
	}

	return func() {
		if err := s.locker.ReleaseOrderLock(context.Background(), orderID, token); err != nil {
			s.logger.Warn("Failed to release order lock",
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
	}, nil
}

func (s *OrderService) publishStatusChanged(ctx context.Context, order *models.Order, oldStatus string, adj *Adjustment) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:       order.ID,
		OldStatus:     oldStatus,
		NewStatus:     order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		StockEffect:   adj.Effect.String(),
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	s.publishStockAdjusted(ctx, order.ID, adj)
}

func (s *OrderService) publishDeleted(ctx context.Context, orderID int64, lastStatus string, adj *Adjustment) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderDeletedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderDeleted),
		OrderID:       orderID,
		LastStatus:    lastStatus,
		StockRestored: adj != nil,
	}
	if err := s.publisher.PublishOrderDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderDeleted event", zap.Error(err))
	}

	s.publishStockAdjusted(ctx, orderID, adj)
}

func (s *OrderService) publishStockAdjusted(ctx context.Context, orderID int64, adj *Adjustment) {
	if adj == nil || adj.Effect == models.EffectNone {
		return
	}

	event := &models.StockAdjustedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockAdjusted),
		OrderID:   orderID,
		Effect:    adj.Effect.String(),
		Products:  adj.Products,
		Offers:    adj.Offers,
	}
	if err := s.publisher.PublishStockAdjusted(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, models.ErrNotFound) {
		return ErrOrderNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
