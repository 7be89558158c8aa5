package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"order-engine/internal/auth"
	"order-engine/internal/models"
	"order-engine/internal/redisclient"
	"order-engine/internal/service"
	"order-engine/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// OrderManager is the order engine as seen by the HTTP layer
type OrderManager interface {
	UpdateOrderStatus(ctx context.Context, orderID int64, req *service.UpdateOrderStatusRequest) (*models.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
}

// AvailabilityReader serves cached product stock views
type AvailabilityReader interface {
	GetAvailability(ctx context.Context, productID int64) (redisclient.Availability, error)
}

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	orders          OrderManager
	jwtManager      *auth.JWTManager
	checks          map[string]ReadinessCheck
	availability    AvailabilityReader
	mutationTimeout time.Duration
	logger          *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(orders OrderManager, jwtManager *auth.JWTManager, checks map[string]ReadinessCheck, mutationTimeout time.Duration) *Handler {
	return &Handler{
		orders:          orders,
		jwtManager:      jwtManager,
		checks:          checks,
		mutationTimeout: mutationTimeout,
		logger:          util.GetLogger(),
	}
}

// WithAvailability enables the cached product availability route
func (h *Handler) WithAvailability(reader AvailabilityReader) *Handler {
	h.availability = reader
	return h
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(loggingMiddleware(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(h.jwtManager, h.logger))
	{
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.DELETE("/orders/:id", h.deleteOrder)
		if h.availability != nil {
			v1.GET("/products/:id/availability", h.getAvailability)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, orderID, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// updateOrderStatus handles order status, payment status and notes changes
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req service.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, NewStandardError("InvalidRequest", "invalid request body", err.Error()))
		return
	}

	ctx, cancel := h.mutationContext(c)
	defer cancel()

	order, err := h.orders.UpdateOrderStatus(ctx, orderID, &req)
	if err != nil {
		h.fail(c, orderID, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// deleteOrder handles order deletion
func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	ctx, cancel := h.mutationContext(c)
	defer cancel()

	if err := h.orders.DeleteOrder(ctx, orderID); err != nil {
		h.fail(c, orderID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}

// getAvailability serves a product's stock view from the Redis cache
func (h *Handler) getAvailability(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || productID <= 0 {
		abortWith(c, NewStandardError("InvalidRequest", "invalid product id", "Param: id"))
		return
	}

	a, err := h.availability.GetAvailability(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, redisclient.ErrCacheMiss) {
			abortWith(c, NewStandardError("ProductNotFound", "availability not cached", fmt.Sprintf("Product ID: %d", productID)))
			return
		}
		h.logger.Warn("Availability cache read failed",
			zap.Int64("product_id", productID),
			zap.Error(err))
		abortWith(c, NewStandardError("ServiceUnavailable", "availability cache unavailable", err.Error()))
		return
	}

	c.JSON(http.StatusOK, a)
}

func (h *Handler) mutationContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.mutationTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.mutationTimeout)
}

func (h *Handler) fail(c *gin.Context, orderID int64, err error) {
	stdErr := fromServiceError(orderID, err)
	if stdErr.HTTPStatus() >= http.StatusInternalServerError {
		h.logger.Error("Order request failed",
			zap.Int64("order_id", orderID),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	abortWith(c, stdErr)
}

func parseOrderID(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		abortWith(c, NewStandardError("InvalidRequest", "invalid order id", "Param: id"))
		return 0, false
	}
	return orderID, true
}
