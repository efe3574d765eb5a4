package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem represents a stocked product variant
type InventoryItem struct {
	ID                  string          `db:"id" json:"id"`
	UserID              string          `db:"user_id" json:"user_id"`
	Name                string          `db:"name" json:"name"`
	Size                string          `db:"size" json:"size"`
	CostPricePerKg      decimal.Decimal `db:"cost_price_per_kg" json:"cost_price_per_kg"`
	SellingPricePerKg   decimal.Decimal `db:"selling_price_per_kg" json:"selling_price_per_kg"`
	StockQuantityKg     decimal.Decimal `db:"stock_quantity_kg" json:"stock_quantity_kg"`
	TotalPiecesSupplied int             `db:"total_pieces_supplied" json:"total_pieces_supplied"`
	TotalPieces         int             `db:"total_pieces" json:"total_pieces"`
	MinimumStockKg      decimal.Decimal `db:"minimum_stock_kg" json:"minimum_stock_kg"`
	Barcode             *string         `db:"barcode" json:"barcode,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// IsLowStock reports whether stock has reached the reorder threshold
func (i InventoryItem) IsLowStock() bool {
	return i.StockQuantityKg.LessThanOrEqual(i.MinimumStockKg)
}

// Snapshot returns the reconcilable part of the item
func (i InventoryItem) Snapshot() StockSnapshot {
	return StockSnapshot{
		ProductID:       i.ID,
		Name:            i.Name,
		StockQuantityKg: i.StockQuantityKg,
		TotalPieces:     i.TotalPieces,
	}
}

// StockSnapshot is the in-memory copy of a product's stock taken before a ledger write
type StockSnapshot struct {
	ProductID       string          `db:"id" json:"product_id"`
	Name            string          `db:"name" json:"name"`
	StockQuantityKg decimal.Decimal `db:"stock_quantity_kg" json:"stock_quantity_kg"`
	TotalPieces     int             `db:"total_pieces" json:"total_pieces"`
}

// Customer is referenced read-only by sales
type Customer struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Sale represents one completed or pending transaction
type Sale struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user_id"`
	CustomerID    *string         `db:"customer_id" json:"customer_id,omitempty"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Status        string          `db:"status" json:"status"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	AmountPaid    decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Balance returns the unpaid part of the sale, never negative
func (s Sale) Balance() decimal.Decimal {
	return decimal.Max(decimal.Zero, s.TotalAmount.Sub(s.AmountPaid))
}

// SaleItem represents one product line within a sale
type SaleItem struct {
	ID         string          `db:"id" json:"id"`
	SaleID     string          `db:"sale_id" json:"sale_id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice decimal.Decimal `db:"total_price" json:"total_price"`
	PiecesSold int             `db:"pieces_sold" json:"pieces_sold"`
}

var (
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	ErrNegativePrice    = errors.New("unit price must not be negative")
	ErrNegativePieces   = errors.New("pieces sold must not be negative")
	ErrProductRequired  = errors.New("product id is required")
)

// NewSaleItem builds a sale line and computes its total price
func NewSaleItem(saleID, productID string, quantity, unitPrice decimal.Decimal, piecesSold int) (SaleItem, error) {
	if productID == "" {
		return SaleItem{}, ErrProductRequired
	}
	if quantity.IsNegative() {
		return SaleItem{}, ErrNegativeQuantity
	}
	if unitPrice.IsNegative() {
		return SaleItem{}, ErrNegativePrice
	}
	if piecesSold < 0 {
		return SaleItem{}, ErrNegativePieces
	}

	return SaleItem{
		SaleID:     saleID,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: quantity.Mul(unitPrice),
		PiecesSold: piecesSold,
	}, nil
}

// SaleDetail is a sale joined with its items and customer name
type SaleDetail struct {
	Sale
	CustomerName *string    `db:"customer_name" json:"customer_name,omitempty"`
	Items        []SaleItem `db:"-" json:"items"`
}

// Payment represents a (partial) payment recorded against a sale
type Payment struct {
	ID            string          `db:"id" json:"id"`
	SaleID        string          `db:"sale_id" json:"sale_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Sale statuses
const (
	SaleStatusPending   = "pending"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
)

// Payment methods
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCredit   = "credit"
)

// ValidSaleStatus reports whether status is a known sale status
func ValidSaleStatus(status string) bool {
	switch status {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether method is a known payment method
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCredit:
		return true
	}
	return false
}

// PaymentStatus derives a sale status from what has been paid so far
func PaymentStatus(totalAmount, amountPaid decimal.Decimal) string {
	if amountPaid.GreaterThanOrEqual(totalAmount) {
		return SaleStatusCompleted
	}
	return SaleStatusPending
}
