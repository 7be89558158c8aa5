package models

import "time"

// Event types
const (
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderDeleted       = "ORDER_DELETED"
	EventTypeStockAdjusted      = "STOCK_ADJUSTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent published after a status update commits
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	PaymentStatus string `json:"payment_status"`
	StockEffect   string `json:"stock_effect"`
}

// OrderDeletedEvent published after an order deletion commits
type OrderDeletedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	LastStatus    string `json:"last_status"`
	StockRestored bool   `json:"stock_restored"`
}

// StockAdjustedEvent carries the product counters left by a reconciliation
type StockAdjustedEvent struct {
	BaseEvent
	OrderID  int64           `json:"order_id"`
	Effect   string          `json:"effect"`
	Products []StockSnapshot `json:"products"`
	Offers   []OfferSnapshot `json:"offers,omitempty"`
}

// StockSnapshot is a product's counters after a ledger write
type StockSnapshot struct {
	ProductID     int64 `json:"product_id"`
	Delta         int   `json:"delta"`
	StockQuantity int   `json:"stock_quantity"`
	InStock       bool  `json:"in_stock"`
	SalesCount    int   `json:"sales_count"`
}

// OfferSnapshot is a bundle offer's sold counter after a ledger write
type OfferSnapshot struct {
	OfferID   int64 `json:"offer_id"`
	Delta     int   `json:"delta"`
	SoldCount int   `json:"sold_count"`
}
