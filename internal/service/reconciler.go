package service

import (
	"context"
	"fmt"

	"order-engine/internal/inventory"
	"order-engine/internal/models"
	"order-engine/internal/util"

	"go.uber.org/zap"
)

// Adjustment records the counters a reconciliation left behind
type Adjustment struct {
	Effect   models.StockEffect
	Products []models.StockSnapshot
	Offers   []models.OfferSnapshot
}

// Reconciler keeps stock counters in step with an order crossing the cancelled boundary
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler creates a new order stock reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{logger: util.GetLogger()}
}

// Reconcile applies the stock effect of moving order to newStatus. A revival
// whose availability check fails returns *InsufficientStockError before any write.
func (r *Reconciler) Reconcile(ctx context.Context, uow UnitOfWork, order *models.Order, items []models.OrderItem, newStatus string) (*Adjustment, error) {
	effect := models.StockEffectFor(order.OrderStatus, newStatus)

	switch effect {
	case models.EffectRestore:
		return r.Restore(ctx, uow, order.ID, items)
	case models.EffectDeduct:
		return r.Deduct(ctx, uow, order.ID, items)
	default:
		return &Adjustment{Effect: models.EffectNone}, nil
	}
}

// Restore returns every line of the order to stock unconditionally
func (r *Reconciler) Restore(ctx context.Context, uow UnitOfWork, orderID int64, items []models.OrderItem) (*Adjustment, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.Restore", util.OrderIDAttr(orderID))
	defer span.End()

	if err := r.lockAffected(ctx, uow, items); err != nil {
		return nil, err
	}

	adj, err := r.apply(ctx, uow, items, models.EffectRestore)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(util.ProductCountAttr(len(adj.Products)))

	r.logger.Info("Stock restored for order",
		zap.Int64("order_id", orderID),
		zap.Int("products", len(adj.Products)),
		zap.Int("offers", len(adj.Offers)))
	return adj, nil
}

// Deduct checks availability of every line under row locks and, if all pass,
// takes the order's stock again
func (r *Reconciler) Deduct(ctx context.Context, uow UnitOfWork, orderID int64, items []models.OrderItem) (*Adjustment, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.Deduct", util.OrderIDAttr(orderID))
	defer span.End()

	if err := r.lockAffected(ctx, uow, items); err != nil {
		return nil, err
	}

	result, err := inventory.NewChecker(uow).Check(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if !result.Available {
		util.RevivalsRejectedTotal.Inc()
		r.logger.Warn("Order revival rejected",
			zap.Int64("order_id", orderID),
			zap.String("product", result.BlockingProduct))
		return nil, &InsufficientStockError{ProductName: result.BlockingProduct}
	}

	adj, err := r.apply(ctx, uow, items, models.EffectDeduct)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(util.ProductCountAttr(len(adj.Products)))

	r.logger.Info("Stock deducted for revived order",
		zap.Int64("order_id", orderID),
		zap.Int("products", len(adj.Products)),
		zap.Int("offers", len(adj.Offers)))
	return adj, nil
}

// lockAffected locks every product row the items touch so that the check,
// the counter writes and the in_stock sync see no concurrent movement
func (r *Reconciler) lockAffected(ctx context.Context, uow UnitOfWork, items []models.OrderItem) error {
	ids, err := inventory.NewExpander(uow).ProductIDs(ctx, items)
	if err != nil {
		return err
	}
	return uow.LockProducts(ctx, ids)
}

func (r *Reconciler) apply(ctx context.Context, uow UnitOfWork, items []models.OrderItem, effect models.StockEffect) (*Adjustment, error) {
	expander := inventory.NewExpander(uow)
	ledger := inventory.NewLedger(uow)
	adj := &Adjustment{Effect: effect}

	for i := range items {
		resolved, ok, err := expander.Resolve(ctx, &items[i])
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		for _, req := range resolved.Requirements {
			var snap models.StockSnapshot
			if effect == models.EffectRestore {
				snap, err = ledger.Restore(ctx, req.Product, req.Quantity)
			} else {
				snap, err = ledger.Deduct(ctx, req.Product, req.Quantity)
			}
			if err != nil {
				return nil, err
			}
			adj.Products = append(adj.Products, snap)
			util.StockUnitsAdjustedTotal.WithLabelValues(effect.String()).Add(float64(req.Quantity))
		}

		if resolved.Offer == nil {
			continue
		}
		var snap models.OfferSnapshot
		if effect == models.EffectRestore {
			snap, err = ledger.RestoreOffer(ctx, resolved.Offer, resolved.Line.Quantity)
		} else {
			snap, err = ledger.DeductOffer(ctx, resolved.Offer, resolved.Line.Quantity)
		}
		if err != nil {
			return nil, err
		}
		adj.Offers = append(adj.Offers, snap)
	}

	return adj, nil
}
