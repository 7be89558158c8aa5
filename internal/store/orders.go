package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"order-engine/internal/models"

	"github.com/jmoiron/sqlx"
)

const (
	orderColumns     = "id, order_status, payment_status, notes, total_amount, created_at, updated_at"
	orderItemColumns = "id, order_id, item_kind, product_id, bundle_offer_id, product_sku, quantity, price, total"
)

// GetOrderByID retrieves an order by ID
func (c conn) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	return c.getOrder(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

// GetOrderForUpdate retrieves an order and locks its row until the transaction ends
func (t *Tx) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return t.getOrder(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
}

func (c conn) getOrder(ctx context.Context, query string, id int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, c.ext, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (c conn) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := sqlx.SelectContext(ctx, c.ext, &items,
		"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderFields persists status, payment status and notes
func (c conn) UpdateOrderFields(ctx context.Context, order *models.Order) error {
	return sqlx.GetContext(ctx, c.ext, &order.UpdatedAt, `
		UPDATE orders
		SET order_status = $1, payment_status = $2, notes = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`,
		order.OrderStatus, order.PaymentStatus, order.Notes, order.ID)
}

// DeleteOrderItems removes every item of an order
func (c conn) DeleteOrderItems(ctx context.Context, orderID int64) error {
	_, err := c.ext.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", orderID)
	return err
}

// DeleteOrder removes the order row
func (c conn) DeleteOrder(ctx context.Context, orderID int64) error {
	res, err := c.ext.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	return nil
}
