package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"order-engine/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memRepo is an in-memory Repository whose transactions roll back by
// restoring a snapshot taken at InTx entry
type memRepo struct {
	mu       sync.Mutex
	products map[int64]models.Product
	offers   map[int64]models.BundleOffer
	orders   map[int64]models.Order
	items    map[int64][]models.OrderItem

	failDeleteOrder error
	failAdjust      map[int64]error
	locked          [][]int64
}

type memSnapshot struct {
	products map[int64]models.Product
	offers   map[int64]models.BundleOffer
	orders   map[int64]models.Order
	items    map[int64][]models.OrderItem
}

func newMemRepo() *memRepo {
	return &memRepo{
		products:   make(map[int64]models.Product),
		offers:     make(map[int64]models.BundleOffer),
		orders:     make(map[int64]models.Order),
		items:      make(map[int64][]models.OrderItem),
		failAdjust: make(map[int64]error),
	}
}

func (r *memRepo) addProduct(p models.Product) {
	r.products[p.ID] = p
}

func (r *memRepo) addOffer(o models.BundleOffer) {
	r.offers[o.ID] = o
}

func (r *memRepo) addOrder(id int64, status string, items ...models.OrderItem) {
	r.orders[id] = models.Order{ID: id, OrderStatus: status, PaymentStatus: models.PaymentStatusPaid}
	for i := range items {
		items[i].ID = id*100 + int64(i)
		items[i].OrderID = id
	}
	r.items[id] = items
}

func (r *memRepo) product(id int64) models.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id]
}

func (r *memRepo) offer(id int64) models.BundleOffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offers[id]
}

func (r *memRepo) order(id int64) (models.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	return o, ok
}

func (r *memRepo) snapshot() memSnapshot {
	s := memSnapshot{
		products: make(map[int64]models.Product, len(r.products)),
		offers:   make(map[int64]models.BundleOffer, len(r.offers)),
		orders:   make(map[int64]models.Order, len(r.orders)),
		items:    make(map[int64][]models.OrderItem, len(r.items)),
	}
	for k, v := range r.products {
		s.products[k] = v
	}
	for k, v := range r.offers {
		s.offers[k] = v
	}
	for k, v := range r.orders {
		s.orders[k] = v
	}
	for k, v := range r.items {
		s.items[k] = append([]models.OrderItem(nil), v...)
	}
	return s
}

func (r *memRepo) restore(s memSnapshot) {
	r.products, r.offers, r.orders, r.items = s.products, s.offers, s.orders, s.items
}

func (r *memRepo) InTx(ctx context.Context, fn func(UnitOfWork) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.snapshot()
	if err := fn(&memTx{r: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (&memTx{r: r}).GetOrderForUpdate(ctx, id)
}

func (r *memRepo) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (&memTx{r: r}).GetOrderItemsByOrderID(ctx, orderID)
}

// memTx runs with memRepo.mu held
type memTx struct {
	r *memRepo
}

func (t *memTx) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := t.r.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (t *memTx) GetBundleOffer(ctx context.Context, id int64) (*models.BundleOffer, error) {
	o, ok := t.r.offers[id]
	if !ok {
		return nil, fmt.Errorf("bundle offer %d: %w", id, models.ErrNotFound)
	}
	o.BundleItems = append([]models.BundleItem(nil), o.BundleItems...)
	return &o, nil
}

func (t *memTx) AdjustProductCounters(ctx context.Context, productID int64, stockDelta, salesDelta int) (*models.Product, error) {
	if err := t.r.failAdjust[productID]; err != nil {
		return nil, err
	}
	p, ok := t.r.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	p.StockQuantity += stockDelta
	p.SalesCount += salesDelta
	t.r.products[productID] = p
	return &p, nil
}

func (t *memTx) SetProductInStock(ctx context.Context, productID int64, inStock bool) error {
	p := t.r.products[productID]
	p.InStock = inStock
	t.r.products[productID] = p
	return nil
}

func (t *memTx) AdjustOfferSoldCount(ctx context.Context, offerID int64, delta int) (int, error) {
	o, ok := t.r.offers[offerID]
	if !ok {
		return 0, fmt.Errorf("bundle offer %d: %w", offerID, models.ErrNotFound)
	}
	o.SoldCount += delta
	t.r.offers[offerID] = o
	return o.SoldCount, nil
}

func (t *memTx) LockProducts(ctx context.Context, ids []int64) error {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	t.r.locked = append(t.r.locked, sorted)
	return nil
}

func (t *memTx) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	o, ok := t.r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	return &o, nil
}

func (t *memTx) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return append([]models.OrderItem{}, t.r.items[orderID]...), nil
}

func (t *memTx) UpdateOrderFields(ctx context.Context, order *models.Order) error {
	stored := t.r.orders[order.ID]
	stored.OrderStatus = order.OrderStatus
	stored.PaymentStatus = order.PaymentStatus
	stored.Notes = order.Notes
	stored.UpdatedAt = time.Now()
	t.r.orders[order.ID] = stored
	order.UpdatedAt = stored.UpdatedAt
	return nil
}

func (t *memTx) DeleteOrderItems(ctx context.Context, orderID int64) error {
	delete(t.r.items, orderID)
	return nil
}

func (t *memTx) DeleteOrder(ctx context.Context, orderID int64) error {
	if t.r.failDeleteOrder != nil {
		return t.r.failDeleteOrder
	}
	if _, ok := t.r.orders[orderID]; !ok {
		return fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	delete(t.r.orders, orderID)
	return nil
}

type recordingPublisher struct {
	statusChanged []*models.OrderStatusChangedEvent
	deleted       []*models.OrderDeletedEvent
	adjusted      []*models.StockAdjustedEvent
	err           error
}

func (p *recordingPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	p.statusChanged = append(p.statusChanged, event)
	return p.err
}

func (p *recordingPublisher) PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error {
	p.deleted = append(p.deleted, event)
	return p.err
}

func (p *recordingPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	p.adjusted = append(p.adjusted, event)
	return p.err
}

type MockOrderLocker struct {
	mock.Mock
}

func (m *MockOrderLocker) AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, orderID, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockOrderLocker) ReleaseOrderLock(ctx context.Context, orderID int64, token string) error {
	args := m.Called(ctx, orderID, token)
	return args.Error(0)
}

func productLine(productID int64, qty int) models.OrderItem {
	return models.NewProductLine(productID, fmt.Sprintf("SKU-%d", productID), qty, decimal.NewFromInt(10))
}

func bundleLine(offerID int64, qty int) models.OrderItem {
	return models.NewBundleLine(offerID, qty, decimal.NewFromInt(25))
}

func strPtr(s string) *string {
	return &s
}
