package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"sales-ledger/internal/service"
	"sales-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const ownerHeader = "X-User-ID"

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	sales        *service.SalesService
	payments     *service.PaymentService
	inventory    *service.InventoryService
	defaultOwner string
	checks       map[string]Pinger
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler. Requests without an X-User-ID
// header act as defaultOwner; when that is empty they are rejected.
func NewHandler(
	sales *service.SalesService,
	payments *service.PaymentService,
	inventory *service.InventoryService,
	defaultOwner string,
) *Handler {
	return &Handler{
		sales:        sales,
		payments:     payments,
		inventory:    inventory,
		defaultOwner: defaultOwner,
		checks:       make(map[string]Pinger),
		logger:       util.Named("api"),
	}
}

// AddReadinessCheck registers a dependency that must answer for /ready to pass
func (h *Handler) AddReadinessCheck(name string, p Pinger) {
	h.checks[name] = p
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(h.ownerMiddleware())
	{
		v1.POST("/sales", h.createSale)
		v1.GET("/sales", h.listSales)
		v1.GET("/sales/:id", h.getSale)
		v1.PUT("/sales/:id", h.updateSale)
		v1.DELETE("/sales/:id", h.deleteSale)
		v1.PATCH("/sales/:id/status", h.updateSaleStatus)
		v1.POST("/sales/:id/payments", h.recordPayment)
		v1.GET("/sales/:id/payments", h.listPayments)

		v1.POST("/inventory", h.createInventoryItem)
		v1.GET("/inventory", h.listInventory)
		v1.GET("/inventory/low-stock", h.lowStock)
		v1.POST("/inventory/:id/supply", h.supplyStock)
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
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
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

// ownerMiddleware scopes the request context to the calling account
func (h *Handler) ownerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(ownerHeader)
		if owner == "" {
			owner = h.defaultOwner
		}
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Missing account",
				"details": "set the " + ownerHeader + " header",
			})
			return
		}
		c.Request = c.Request.WithContext(service.WithOwner(c.Request.Context(), owner))
		c.Next()
	}
}

// createSale handles sale creation
func (h *Handler) createSale(c *gin.Context) {
	var req service.SaleRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	sale, err := h.sales.CreateSale(c.Request.Context(), &req)
	if err != nil {
		if sale != nil {
			h.partialFailure(c, err, sale)
			return
		}
		h.writeError(c, "Failed to create sale", err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

// listSales handles listing the caller's sales
func (h *Handler) listSales(c *gin.Context) {
	sales, err := h.sales.ListSales(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list sales", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales, "count": len(sales)})
}

// getSale handles get sale by ID
func (h *Handler) getSale(c *gin.Context) {
	sale, err := h.sales.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Sale not found", err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// updateSale handles editing a sale
func (h *Handler) updateSale(c *gin.Context) {
	var req service.SaleRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.sales.UpdateSale(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if sale != nil {
			h.partialFailure(c, err, sale)
			return
		}
		h.writeError(c, "Failed to update sale", err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// deleteSale handles deleting a sale. A sale deleted without its stock being
// restored is still a success, reported with a warning.
func (h *Handler) deleteSale(c *gin.Context) {
	saleID := c.Param("id")
	err := h.sales.DeleteSale(c.Request.Context(), saleID)
	if isInventoryNotRestored(err) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Sale deleted",
			"id":      saleID,
			"warning": "Inventory could not be restored",
			"details": err.Error(),
		})
		return
	}
	if err != nil {
		h.writeError(c, "Failed to delete sale", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sale deleted", "id": saleID})
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending completed cancelled"`
}

// updateSaleStatus handles a status-only change
func (h *Handler) updateSaleStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.sales.UpdateSaleStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, "Failed to update sale status", err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// recordPayment handles a payment against a sale
func (h *Handler) recordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := h.payments.RecordPayment(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.writeError(c, "Failed to record payment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sale":    sale,
		"balance": sale.Balance(),
	})
}

// listPayments handles the payment history of a sale
func (h *Handler) listPayments(c *gin.Context) {
	payments, err := h.payments.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Failed to list payments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

// createInventoryItem handles registering a product
func (h *Handler) createInventoryItem(c *gin.Context) {
	var req service.CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.inventory.CreateItem(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, "Failed to create inventory item", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// listInventory handles listing the caller's inventory
func (h *Handler) listInventory(c *gin.Context) {
	items, err := h.inventory.ListInventory(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list inventory", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// lowStock handles listing items at or below their minimum
func (h *Handler) lowStock(c *gin.Context) {
	items, err := h.inventory.LowStock(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to list low stock", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// supplyStock handles a stock delivery
func (h *Handler) supplyStock(c *gin.Context) {
	var req service.SupplyRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.inventory.SupplyStock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.writeError(c, "Failed to supply stock", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}
