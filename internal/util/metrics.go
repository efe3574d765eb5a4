package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_created_total",
		Help: "Total number of sales created",
	})

	SalesUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_updated_total",
		Help: "Total number of sales edited",
	})

	SalesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_deleted_total",
		Help: "Total number of sales deleted",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of rejected or failed sale operations",
	}, []string{"op", "reason"})

	SaleAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_amount_total",
		Help: "Sum of total amounts of created sales",
	})

	InventoryUpsertLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_upsert_latency_seconds",
		Help:    "Latency of batched inventory stock writes",
		Buckets: prometheus.DefBuckets,
	})

	InventoryRestoreFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_restore_failed_total",
		Help: "Sales deleted without their stock being restored",
	})

	StockSuppliedKgTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_supplied_kg_total",
		Help: "Kilograms added to inventory by supply deliveries",
	})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of payments recorded against sales",
	}, []string{"status"})

	SaleCacheResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_cache_results_total",
		Help: "Sale list cache lookups by result",
	}, []string{"result"})

	ChangeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_total",
		Help: "Row change events by table and direction",
	}, []string{"table", "direction"})

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
