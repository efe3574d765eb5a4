package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientPieces = errors.New("insufficient pieces")
)

// NotFoundError is returned when a sale line references an unknown product
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrProductNotFound
}

// StockError reports a line that asks for more than a product has left.
// Kind is ErrInsufficientStock or ErrInsufficientPieces.
type StockError struct {
	Kind      error
	ProductID string
	Name      string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *StockError) Error() string {
	product := e.Name
	if product == "" {
		product = e.ProductID
	}
	if e.Kind == ErrInsufficientPieces {
		return fmt.Sprintf("insufficient pieces for %s. Available: %s pieces, Requested: %s pieces",
			product, e.Available.String(), e.Requested.String())
	}
	return fmt.Sprintf("insufficient stock for %s. Available: %skg, Requested: %skg",
		product, e.Available.String(), e.Requested.String())
}

func (e *StockError) Unwrap() error {
	return e.Kind
}
