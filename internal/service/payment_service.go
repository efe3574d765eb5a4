package service

import (
	"context"
	"errors"
	"fmt"

	"sales-ledger/internal/models"
	"sales-ledger/internal/store"
	"sales-ledger/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PaymentService records payments against a sale's balance
type PaymentService struct {
	store    PaymentStore
	notifier *Notifier
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store PaymentStore, notifier *Notifier) *PaymentService {
	return &PaymentService{
		store:    store,
		notifier: notifier,
		logger:   util.Named("payments"),
	}
}

// RecordPaymentRequest is the body of a payment
type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,oneof=cash card transfer credit"`
}

// RecordPayment adds amount to what has been paid on a sale. The sale becomes
// completed once the paid amount reaches the total and pending otherwise.
// Paying more than the balance is allowed.
func (ps *PaymentService) RecordPayment(ctx context.Context, saleID string, req *RecordPaymentRequest) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.RecordPayment", attribute.String("sale_id", saleID))
	defer span.End()

	if !req.Amount.IsPositive() {
		return nil, invalid("payment amount must be greater than zero")
	}
	if req.PaymentMethod != "" && !models.ValidPaymentMethod(req.PaymentMethod) {
		return nil, invalid("unknown payment method %q", req.PaymentMethod)
	}

	owner := OwnerFromContext(ctx)
	if !validID(saleID) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	sale, err := ps.store.GetSaleByID(ctx, saleID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sale.UserID != owner) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	if err != nil {
		return nil, storageErr("fetch sale", err)
	}

	newAmountPaid := sale.AmountPaid.Add(req.Amount)
	status := models.PaymentStatus(sale.TotalAmount, newAmountPaid)

	if err := ps.store.UpdateSalePayment(ctx, saleID, newAmountPaid, status); err != nil {
		util.RecordError(span, err)
		return nil, storageErr("update sale payment", err)
	}
	sale.AmountPaid = newAmountPaid
	sale.Status = status

	changes := []Change{{models.TableSales, models.ChangeUpdate, []string{saleID}}}

	method := req.PaymentMethod
	if method == "" {
		method = sale.PaymentMethod
	}
	payment := &models.Payment{SaleID: saleID, Amount: req.Amount, PaymentMethod: method}
	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		// the balance is already updated; only the history row is missing
		ps.logger.Error("Failed to record payment history",
			zap.String("sale_id", saleID),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
	} else {
		changes = append(changes, Change{models.TablePayments, models.ChangeInsert, []string{payment.ID}})
	}

	ps.notifier.Changed(ctx, owner, changes...)

	util.PaymentsRecordedTotal.WithLabelValues(status).Inc()
	ps.logger.Info("Payment recorded",
		zap.String("sale_id", saleID),
		zap.String("amount", req.Amount.String()),
		zap.String("amount_paid", newAmountPaid.String()),
		zap.String("status", status))

	return sale, nil
}

// ListPayments returns the payments recorded against a sale, oldest first
func (ps *PaymentService) ListPayments(ctx context.Context, saleID string) ([]models.Payment, error) {
	if !validID(saleID) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	sale, err := ps.store.GetSaleByID(ctx, saleID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sale.UserID != OwnerFromContext(ctx)) {
		return nil, fmt.Errorf("%w: %s", ErrSaleNotFound, saleID)
	}
	if err != nil {
		return nil, storageErr("fetch sale", err)
	}

	payments, err := ps.store.GetPaymentsBySaleID(ctx, saleID)
	if err != nil {
		return nil, storageErr("fetch payments", err)
	}
	return payments, nil
}
