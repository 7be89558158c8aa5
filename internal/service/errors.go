package service

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderBusy     = errors.New("order is being modified by another request")
	ErrInvalidStatus = errors.New("invalid status")
)

// InsufficientStockError rejects a revival because a product cannot cover the order
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Cannot reactivate order: insufficient stock for product: %s", e.ProductName)
}

// IsInsufficientStock reports whether err is a revival rejection
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
