package service

import (
	"context"
	"testing"

	"sales-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) creditSale(t *testing.T, total, paid int64) *models.Sale {
	t.Helper()
	sale := &models.Sale{
		UserID:        testOwner,
		PaymentMethod: models.PaymentMethodCredit,
		Status:        models.SaleStatusPending,
		TotalAmount:   kg(total),
		AmountPaid:    kg(paid),
	}
	require.NoError(t, f.store.CreateSale(context.Background(), sale))
	return sale
}

func TestRecordPaymentFullBalanceCompletes(t *testing.T) {
	f := newFixture(t)
	sale := f.creditSale(t, 1000, 0)

	updated, err := f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(1000)})
	require.NoError(t, err)
	assert.True(t, kg(1000).Equal(updated.AmountPaid))
	assert.Equal(t, models.SaleStatusCompleted, updated.Status)

	stored, err := f.store.GetSaleByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, stored.Status)
}

func TestRecordPaymentPartialStaysPending(t *testing.T) {
	f := newFixture(t)
	sale := f.creditSale(t, 1000, 0)

	updated, err := f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(400)})
	require.NoError(t, err)
	assert.True(t, kg(400).Equal(updated.AmountPaid))
	assert.Equal(t, models.SaleStatusPending, updated.Status)
	assert.True(t, kg(600).Equal(updated.Balance()))
}

func TestRecordPaymentAccumulates(t *testing.T) {
	f := newFixture(t)
	sale := f.creditSale(t, 1000, 0)

	_, err := f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(400)})
	require.NoError(t, err)
	updated, err := f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(600), PaymentMethod: models.PaymentMethodTransfer})
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, updated.Status)

	payments, err := f.payments.ListPayments(f.ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, models.PaymentMethodCredit, payments[0].PaymentMethod)
	assert.Equal(t, models.PaymentMethodTransfer, payments[1].PaymentMethod)
}

func TestRecordPaymentOverpayAccepted(t *testing.T) {
	f := newFixture(t)
	sale := f.creditSale(t, 1000, 900)

	updated, err := f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(500)})
	require.NoError(t, err)
	assert.True(t, kg(1400).Equal(updated.AmountPaid))
	assert.Equal(t, models.SaleStatusCompleted, updated.Status)
	assert.True(t, updated.Balance().IsZero())
}

func TestRecordPaymentDoesNotTouchStock(t *testing.T) {
	f := newFixture(t)
	catfish := f.addProduct(t, "Catfish-1kg", 100, 80)

	req := saleRequest(catfish, 10, 5)
	req.Status = models.SaleStatusPending
	req.AmountPaid = kg(0)
	sale, err := f.sales.CreateSale(f.ctx, req)
	require.NoError(t, err)

	_, err = f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(15000)})
	require.NoError(t, err)
	f.requireStock(t, catfish, 90, 75)
}

func TestRecordPaymentValidation(t *testing.T) {
	f := newFixture(t)
	sale := f.creditSale(t, 1000, 0)

	_, err := f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(-10)})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(10), PaymentMethod: "iou"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.payments.RecordPayment(f.ctx, "missing", &RecordPaymentRequest{Amount: kg(10)})
	assert.ErrorIs(t, err, ErrSaleNotFound)

	other := WithOwner(context.Background(), "owner-2")
	_, err = f.payments.RecordPayment(other, sale.ID, &RecordPaymentRequest{Amount: kg(10)})
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestRecordPaymentPublishesChanges(t *testing.T) {
	f := newFixture(t)
	sale := f.creditSale(t, 1000, 0)

	_, err := f.payments.RecordPayment(f.ctx, sale.ID, &RecordPaymentRequest{Amount: kg(100)})
	require.NoError(t, err)
	assert.Equal(t, []string{"sales:UPDATE", "payments:INSERT"}, f.publisher.tables())

	require.Len(t, f.cache.lists[testOwner], 1)
	assert.True(t, kg(100).Equal(f.cache.lists[testOwner][0].AmountPaid))
}
