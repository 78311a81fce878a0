package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

// LineTotal returns price x quantity for a single order line.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// OrderTotal sums the extended totals of all lines using the prices
// snapshotted into the items, rounded to cents. Totals are computed once at
// order creation or full-update and stored; they are never recomputed from
// the live catalog.
func OrderTotal(items []domain.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineTotal(item.Price, item.Quantity))
	}
	return total.Round(2)
}
