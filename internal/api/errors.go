package api

import (
	"errors"
	"net/http"

	"sales-ledger/internal/ledger"
	"sales-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSaleNotFound),
		errors.Is(err, service.ErrInventoryItemNotFound),
		errors.Is(err, ledger.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, ledger.ErrInsufficientPieces),
		errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func isInventoryNotRestored(err error) bool {
	return err != nil && errors.Is(err, service.ErrInventoryNotRestored)
}

// writeError sends {"error", "details"}; stock shortfalls also carry the
// product and the available and requested amounts.
func (h *Handler) writeError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	body := gin.H{
		"error":   message,
		"details": err.Error(),
	}

	var stockErr *ledger.StockError
	if errors.As(err, &stockErr) {
		body["error"] = "Insufficient stock"
		body["product_id"] = stockErr.ProductID
		body["available"] = stockErr.Available
		body["requested"] = stockErr.Requested
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, body)
}

// partialFailure reports a sale that was written only in part
func (h *Handler) partialFailure(c *gin.Context, err error, sale interface{}) {
	message := "Sale saved but not completely"
	switch {
	case errors.Is(err, service.ErrItemsNotRecorded):
		message = "Sale recorded without its items"
	case errors.Is(err, service.ErrInventoryNotUpdated):
		message = "Sale recorded but inventory was not updated"
	}

	h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   message,
		"details": err.Error(),
		"sale":    sale,
	})
}
