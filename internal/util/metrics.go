package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_reconciliations_total",
		Help: "Total number of committed order status changes by stock effect",
	}, []string{"effect"})

	RevivalsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_revivals_rejected_total",
		Help: "Total number of cancelled orders that could not be reactivated for lack of stock",
	})

	StockUnitsAdjustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_units_adjusted_total",
		Help: "Total number of product units restored or deducted",
	}, []string{"effect"})

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_deleted_total",
		Help: "Total number of deleted orders",
	})

	OrderMutationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_mutations_failed_total",
		Help: "Total number of order mutations rolled back on error",
	}, []string{"operation"})

	OrderMutationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_mutation_latency_seconds",
		Help:    "Latency of order mutation transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	AvailabilityCacheUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_cache_updates_total",
		Help: "Total number of availability cache writes",
	}, []string{"source"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
