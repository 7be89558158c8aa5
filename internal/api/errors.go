package api

import (
	"errors"
	"fmt"
	"net/http"

	"order-engine/internal/service"
)

// StandardError is the JSON body of every error response
type StandardError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// NewStandardError creates a new StandardError
func NewStandardError(code, message, details string) *StandardError {
	return &StandardError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// HTTPStatus returns the status code the error is served with
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", "ValidationError", "InsufficientStock":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	case "Forbidden":
		return http.StatusForbidden
	case "OrderNotFound", "ProductNotFound":
		return http.StatusNotFound
	case "Conflict":
		return http.StatusConflict
	case "ServiceUnavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fromServiceError maps an order service error to its response body
func fromServiceError(orderID int64, err error) *StandardError {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return NewStandardError("InsufficientStock", stockErr.Error(), fmt.Sprintf("Product: %s", stockErr.ProductName))
	case errors.Is(err, service.ErrInvalidStatus):
		return NewStandardError("ValidationError", "invalid status", err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return NewStandardError("OrderNotFound", "order not found", fmt.Sprintf("Order ID: %d", orderID))
	case errors.Is(err, service.ErrOrderBusy):
		return NewStandardError("Conflict", "order is being modified by another request", fmt.Sprintf("Order ID: %d", orderID))
	default:
		return NewStandardError("InternalError", err.Error(), fmt.Sprintf("Order ID: %d", orderID))
	}
}
