package store

import (
	"errors"
	"fmt"
)

// ErrCustomerNotFound reports an order against an unknown customer.
var ErrCustomerNotFound = errors.New("customer not found")

// BookNotFoundError reports an order item that resolved to no book. Ref is
// whatever the caller identified the book by (ISBN or title fragment).
type BookNotFoundError struct {
	Ref string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("Book %q not found in inventory", e.Ref)
}

// InsufficientStockError reports an order item whose quantity exceeds the
// book's current stock.
type InsufficientStockError struct {
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %q. Available: %d, Requested: %d", e.Title, e.Available, e.Requested)
}

// IsDomainError reports whether err is an expected order-creation failure
// rather than a storage fault.
func IsDomainError(err error) bool {
	if errors.Is(err, ErrCustomerNotFound) {
		return true
	}
	var notFound *BookNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var insufficient *InsufficientStockError
	return errors.As(err, &insufficient)
}
