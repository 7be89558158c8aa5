package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-engine/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "sku", "name", "stock_status", "stock_quantity", "in_stock", "sales_count", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestAdjustProductCounters(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE products\s+SET stock_quantity = stock_quantity \+ \$1, sales_count = sales_count \+ \$2`).
		WithArgs(5, -5, int64(1)).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(1, "KET-1", "Kettle", models.StockStatusStockBased, 10, false, 15, time.Now()))

	p, err := s.AdjustProductCounters(context.Background(), 1, 5, -5)
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockQuantity)
	assert.Equal(t, 15, p.SalesCount)
	assert.True(t, p.IsStockBased())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustProductCounters_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE products`).
		WithArgs(1, -1, int64(42)).
		WillReturnRows(sqlmock.NewRows(productCols))

	_, err := s.AdjustProductCounters(context.Background(), 42, 1, -1)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBundleOffer(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, name, sold_count FROM bundle_offers WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sold_count"}).AddRow(7, "Brew kit", 12))
	mock.ExpectQuery(`SELECT product_id, quantity FROM bundle_offer_items WHERE offer_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(1, 2).AddRow(2, 1))

	offer, err := s.GetBundleOffer(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 12, offer.SoldCount)
	assert.Equal(t, []models.BundleItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, offer.BundleItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBundleOffer_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM bundle_offers`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sold_count"}))

	_, err := s.GetBundleOffer(context.Background(), 7)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestLockProducts_LocksInAscendingOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id FROM products WHERE id IN \(.+\) ORDER BY id FOR UPDATE`).
		WithArgs(int64(1), int64(4), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(4).AddRow(9))

	ids := []int64{9, 1, 4}
	require.NoError(t, s.LockProducts(context.Background(), ids))
	assert.Equal(t, []int64{9, 1, 4}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockProducts_NoIDs(t *testing.T) {
	s, mock := newMockStore(t)
	require.NoError(t, s.LockProducts(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_Commits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM order_items WHERE order_id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM orders WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		if err := tx.DeleteOrderItems(context.Background(), 3); err != nil {
			return err
		}
		return tx.DeleteOrder(context.Background(), 3)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM order_items`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM orders`).
		WithArgs(int64(3)).
		WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx *Tx) error {
		if err := tx.DeleteOrderItems(context.Background(), 3); err != nil {
			return err
		}
		return tx.DeleteOrder(context.Background(), 3)
	})
	assert.EqualError(t, err, "foreign key violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrder_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM orders`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteOrder(context.Background(), 5)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestGetOrderItemsByOrderID(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{"id", "order_id", "item_kind", "product_id", "bundle_offer_id", "product_sku", "quantity", "price", "total"}
	mock.ExpectQuery(`FROM order_items WHERE order_id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 3, models.LineKindProduct, 4, nil, "MUG-01", 2, "12.50", "25.00").
			AddRow(2, 3, "", nil, nil, "BUNDLE-7", 1, "30.00", "30.00"))

	items, err := s.GetOrderItemsByOrderID(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, int64(4), *items[0].ProductID)
	assert.Nil(t, items[1].ProductID)

	line, ok := items[1].Line()
	assert.True(t, ok)
	assert.True(t, line.IsBundle())
	assert.Equal(t, int64(7), line.RefID)
}
