package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrLineNotFound    = errors.New("item not in cart")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNotCancellable  = errors.New("only pending orders can be cancelled")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrConflict        = errors.New("conflicting concurrent modification")
)

// InsufficientStockError carries the display name of the product that
// blocked the operation, so the storefront can tell the customer which
// line failed.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

func IsInsufficientStock(err error) bool {
	var ise *InsufficientStockError
	return errors.As(err, &ise)
}
