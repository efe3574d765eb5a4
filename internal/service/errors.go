package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSaleNotFound indicates the sale does not exist or belongs to another owner
	ErrSaleNotFound = errors.New("sale not found")
	// ErrInventoryItemNotFound indicates the inventory item does not exist or belongs to another owner
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	// ErrInvalidInput wraps request validation failures
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateRequest is returned while a sale with the same idempotency key is still being created
	ErrDuplicateRequest = errors.New("a sale with this idempotency key is already being created")
	// ErrStorageFailure wraps any failed persistence call
	ErrStorageFailure = errors.New("storage failure")
	// ErrInventoryNotRestored is returned when a sale was deleted but its stock was not put back
	ErrInventoryNotRestored = fmt.Errorf("%w: sale deleted but inventory was not restored", ErrStorageFailure)
	// ErrInventoryNotUpdated is returned when a sale was written but its stock change was not
	ErrInventoryNotUpdated = fmt.Errorf("%w: sale saved but inventory was not updated", ErrStorageFailure)
	// ErrItemsNotRecorded is returned when a sale header was written without its items
	ErrItemsNotRecorded = fmt.Errorf("%w: sale saved without its items", ErrStorageFailure)
)

// partialErr reports a write that landed only in part; cause names what failed
func partialErr(cause error, op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", cause, op, err)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStorageFailure, op, err)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
