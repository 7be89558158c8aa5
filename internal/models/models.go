package models

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by catalog and order lookups when the row does not exist
var ErrNotFound = errors.New("not found")

// Product stock statuses
const (
	StockStatusInStock     = "in_stock"
	StockStatusOutOfStock  = "out_of_stock"
	StockStatusOnBackorder = "on_backorder"
	StockStatusStockBased  = "stock_based"
)

// Product represents a catalog product with its stock counters
type Product struct {
	ID            int64     `db:"id" json:"id"`
	SKU           string    `db:"sku" json:"sku"`
	Name          string    `db:"name" json:"name"`
	StockStatus   string    `db:"stock_status" json:"stock_status"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	InStock       bool      `db:"in_stock" json:"in_stock"`
	SalesCount    int       `db:"sales_count" json:"sales_count"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// IsStockBased reports whether purchasability depends on stock_quantity
func (p *Product) IsStockBased() bool {
	return p.StockStatus == StockStatusStockBased
}

// BundleItem is one fixed constituent of a bundle offer
type BundleItem struct {
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
}

// BundleOffer represents a fixed-composition virtual product
type BundleOffer struct {
	ID          int64        `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	SoldCount   int          `db:"sold_count" json:"sold_count"`
	BundleItems []BundleItem `db:"-" json:"bundle_items"`
}

// Order represents a customer order
type Order struct {
	ID            int64           `db:"id" json:"id"`
	OrderStatus   string          `db:"order_status" json:"order_status"`
	PaymentStatus string          `db:"payment_status" json:"payment_status"`
	Notes         string          `db:"notes" json:"notes"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	Items         []OrderItem     `db:"-" json:"items"`
}

// IsCancelled reports whether the order sits in the cancelled region
func (o *Order) IsCancelled() bool {
	return IsCancelledStatus(o.OrderStatus)
}

// Line kinds stored on order items
const (
	LineKindProduct = "product"
	LineKindBundle  = "bundle"
)

// BundleSKUPrefix marks bundle lines on rows written before item_kind existed
const BundleSKUPrefix = "BUNDLE-"

// OrderItem represents one line of an order. Exactly one of ProductID and
// BundleOfferID is set, as indicated by Kind.
type OrderItem struct {
	ID            int64           `db:"id" json:"id"`
	OrderID       int64           `db:"order_id" json:"order_id"`
	Kind          string          `db:"item_kind" json:"kind"`
	ProductID     *int64          `db:"product_id" json:"product_id,omitempty"`
	BundleOfferID *int64          `db:"bundle_offer_id" json:"bundle_offer_id,omitempty"`
	ProductSKU    string          `db:"product_sku" json:"product_sku"`
	Quantity      int             `db:"quantity" json:"quantity"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Total         decimal.Decimal `db:"total" json:"total"`
}

// Line is the resolved form of an order item
type Line struct {
	Kind     string
	RefID    int64
	Quantity int
}

// IsBundle reports whether the line is a bundle purchase
func (l Line) IsBundle() bool {
	return l.Kind == LineKindBundle
}

// NewProductLine builds a direct-product order item
func NewProductLine(productID int64, sku string, quantity int, price decimal.Decimal) OrderItem {
	return OrderItem{
		Kind:       LineKindProduct,
		ProductID:  &productID,
		ProductSKU: sku,
		Quantity:   quantity,
		Price:      price,
		Total:      price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// NewBundleLine builds a bundle order item
func NewBundleLine(offerID int64, quantity int, price decimal.Decimal) OrderItem {
	return OrderItem{
		Kind:          LineKindBundle,
		BundleOfferID: &offerID,
		ProductSKU:    BundleSKU(offerID),
		Quantity:      quantity,
		Price:         price,
		Total:         price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// BundleSKU returns the SKU used on bundle lines
func BundleSKU(offerID int64) string {
	return BundleSKUPrefix + strconv.FormatInt(offerID, 10)
}

// ParseBundleSKU extracts the offer id from a bundle SKU
func ParseBundleSKU(sku string) (int64, bool) {
	if !strings.HasPrefix(sku, BundleSKUPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(sku, BundleSKUPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Line resolves the item into a product or bundle line. Rows without a kind
// are classified from the SKU. ok is false when the item references nothing.
func (i *OrderItem) Line() (Line, bool) {
	switch i.Kind {
	case LineKindProduct:
		if i.ProductID == nil {
			return Line{}, false
		}
		return Line{Kind: LineKindProduct, RefID: *i.ProductID, Quantity: i.Quantity}, true
	case LineKindBundle:
		if i.BundleOfferID == nil {
			return Line{}, false
		}
		return Line{Kind: LineKindBundle, RefID: *i.BundleOfferID, Quantity: i.Quantity}, true
	}

	if i.ProductID != nil {
		return Line{Kind: LineKindProduct, RefID: *i.ProductID, Quantity: i.Quantity}, true
	}
	if offerID, ok := ParseBundleSKU(i.ProductSKU); ok {
		return Line{Kind: LineKindBundle, RefID: offerID, Quantity: i.Quantity}, true
	}
	return Line{}, false
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// IsValidOrderStatus reports whether s is a known order status
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentStatus reports whether s is a known payment status
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsCancelledStatus reports whether the status belongs to the cancelled region
func IsCancelledStatus(s string) bool {
	return s == OrderStatusCancelled
}
