package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Order is created once at checkout. Items carry the catalog price
// snapshotted at creation (or full-update) time so later price edits do not
// rewrite historical totals.
type Order struct {
	ID            int             `json:"id"`
	UserID        int             `json:"userId"`
	Items         []OrderItem     `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        OrderStatus     `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type OrderItem struct {
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderRepository interface {
	// CreateOrder assigns the order id from a monotonic counter that is
	// never reused, even after the highest-numbered order is deleted.
	CreateOrder(order *Order) (*Order, error)
	GetOrderByID(id int) (*Order, error)
	ListOrders() ([]Order, error)
	ListOrdersByUserID(userID int) ([]Order, error)
	ReplaceOrder(order *Order) (*Order, error)
	DeleteOrder(id int) error
}
