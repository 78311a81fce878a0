package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image,omitempty"`
}

type ProductRepository interface {
	CreateProduct(product *Product) (*Product, error)
	GetProductByID(id int) (*Product, error)
	ListProducts() ([]Product, error)
	UpdateProduct(id int, product *Product) (*Product, error)
	DeleteProduct(id int) error

	// DeductStock decreases stock by qty, failing with ErrProductNotFound
	// or an InsufficientStockError without changing anything. The check and
	// the decrement must be a single atomic step: two concurrent checkouts
	// against the same low-stock product must not both pass.
	DeductStock(id int, qty int) error

	// RestoreStock adds qty back to stock. It succeeds for any existing
	// product regardless of what was previously deducted.
	RestoreStock(id int, qty int) error
}
