package service

import (
	"sales-ledger/internal/ledger"

	"github.com/google/uuid"
)

// validID reports whether id can name a stored row; every table is keyed by UUID
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// knownProducts fails on the first line whose product id cannot exist
func knownProducts(lines []ledger.Line) error {
	for _, line := range lines {
		if !validID(line.ProductID) {
			return &ledger.NotFoundError{ProductID: line.ProductID}
		}
	}
	return nil
}
