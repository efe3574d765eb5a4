package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sales-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func newID() string {
	return uuid.New().String()
}

// nullTime lets the database default a zero timestamp to NOW()
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// CreateSale creates a new sale header
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	if sale.ID == "" {
		sale.ID = newID()
	}
	query := `
		INSERT INTO sales (id, user_id, customer_id, payment_method, status, total_amount, amount_paid, discount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		sale.ID, sale.UserID, sale.CustomerID, sale.PaymentMethod, sale.Status,
		sale.TotalAmount, sale.AmountPaid, sale.Discount, nullTime(sale.CreatedAt),
	).Scan(&sale.CreatedAt, &sale.UpdatedAt)
}

// GetCustomer retrieves a customer by ID
func (s *Store) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetSaleByID retrieves a sale by ID
func (s *Store) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// UpdateSaleHeader updates the editable header fields of a sale
func (s *Store) UpdateSaleHeader(ctx context.Context, sale *models.Sale) error {
	query := `
		UPDATE sales
		SET customer_id = $1, total_amount = $2, payment_method = $3, status = $4,
			created_at = COALESCE($5, created_at), updated_at = NOW()
		WHERE id = $6
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		sale.CustomerID, sale.TotalAmount, sale.PaymentMethod, sale.Status,
		nullTime(sale.CreatedAt), sale.ID,
	).Scan(&sale.CreatedAt, &sale.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sale %s: %w", sale.ID, ErrNotFound)
	}
	return err
}

// UpdateSalePayment writes the paid amount and status of a sale
func (s *Store) UpdateSalePayment(ctx context.Context, saleID string, amountPaid decimal.Decimal, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sales SET amount_paid = $1, status = $2, updated_at = NOW() WHERE id = $3",
		amountPaid, status, saleID)
	if err != nil {
		return err
	}
	return expectAffected(res, "sale", saleID)
}

// UpdateSaleStatus updates sale status
func (s *Store) UpdateSaleStatus(ctx context.Context, saleID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sales SET status = $1, updated_at = NOW() WHERE id = $2",
		status, saleID)
	if err != nil {
		return err
	}
	return expectAffected(res, "sale", saleID)
}

// DeleteSale deletes a sale header
func (s *Store) DeleteSale(ctx context.Context, saleID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sales WHERE id = $1", saleID)
	if err != nil {
		return err
	}
	return expectAffected(res, "sale", saleID)
}

// CreateSaleItems inserts all items of a sale in one statement
func (s *Store) CreateSaleItems(ctx context.Context, items []models.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = newID()
		}
	}

	query := `
		INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, total_price, pieces_sold)
		VALUES (:id, :sale_id, :product_id, :quantity, :unit_price, :total_price, :pieces_sold)`

	_, err := s.db.NamedExecContext(ctx, query, items)
	return err
}

// GetSaleItemsBySaleID retrieves all items for a sale
func (s *Store) GetSaleItemsBySaleID(ctx context.Context, saleID string) ([]models.SaleItem, error) {
	var items []models.SaleItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM sale_items WHERE sale_id = $1 ORDER BY id", saleID)
	return items, err
}

// DeleteSaleItemsBySaleID deletes all items for a sale
func (s *Store) DeleteSaleItemsBySaleID(ctx context.Context, saleID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sale_items WHERE sale_id = $1", saleID)
	return err
}

const saleDetailSelect = `
	SELECT s.*, c.name AS customer_name
	FROM sales s
	LEFT JOIN customers c ON c.id = s.customer_id AND c.user_id = s.user_id`

// GetSaleDetail retrieves a sale joined with its items and customer name
func (s *Store) GetSaleDetail(ctx context.Context, saleID string) (*models.SaleDetail, error) {
	var detail models.SaleDetail
	var items []models.SaleItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.GetContext(gctx, &detail, saleDetailSelect+" WHERE s.id = $1", saleID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sale %s: %w", saleID, ErrNotFound)
		}
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.GetSaleItemsBySaleID(gctx, saleID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail.Items = items
	return &detail, nil
}

// ListSaleDetails retrieves an owner's sales with items and customer names, newest first
func (s *Store) ListSaleDetails(ctx context.Context, ownerID string) ([]models.SaleDetail, error) {
	var details []models.SaleDetail
	var items []models.SaleItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.SelectContext(gctx, &details,
			saleDetailSelect+" WHERE s.user_id = $1 ORDER BY s.created_at DESC", ownerID)
	})
	g.Go(func() error {
		return s.db.SelectContext(gctx, &items, `
			SELECT si.* FROM sale_items si
			JOIN sales s ON s.id = si.sale_id
			WHERE s.user_id = $1
			ORDER BY si.id`, ownerID)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bySale := make(map[string][]models.SaleItem, len(details))
	for _, item := range items {
		bySale[item.SaleID] = append(bySale[item.SaleID], item)
	}
	for i := range details {
		details[i].Items = bySale[details[i].ID]
		if details[i].Items == nil {
			details[i].Items = []models.SaleItem{}
		}
	}
	return details, nil
}

// CreatePayment creates a new payment record
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = newID()
	}
	query := `
		INSERT INTO payments (id, sale_id, amount, payment_method)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	return s.db.GetContext(ctx, &payment.CreatedAt, query,
		payment.ID, payment.SaleID, payment.Amount, payment.PaymentMethod)
}

// GetPaymentsBySaleID retrieves payments recorded against a sale, oldest first
func (s *Store) GetPaymentsBySaleID(ctx context.Context, saleID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE sale_id = $1 ORDER BY created_at", saleID)
	return payments, err
}

func expectAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
