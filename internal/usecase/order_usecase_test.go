package usecase

import (
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
	"github.com/MarkRaffy28/MicroBits/internal/repository/memory"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedProduct(t *testing.T, store *memory.Store, name string, priceStr string, stock int) *domain.Product {
	t.Helper()
	p, err := store.CreateProduct(&domain.Product{
		Name:  name,
		Price: price(priceStr),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func newOrderFixture(t *testing.T) (*memory.Store, OrderUseCase) {
	t.Helper()
	store := memory.NewStore(testLogger())
	return store, NewOrderUseCase(store, store, testLogger())
}

func currentStock(t *testing.T, store *memory.Store, productID int) int {
	t.Helper()
	p, err := store.GetProductByID(productID)
	require.NoError(t, err)
	return p.Stock
}

func TestCreateOrderRoundTrip(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(7, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)

	assert.Equal(t, 1, order.ID)
	assert.Equal(t, 7, order.UserID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, "cod", order.PaymentMethod)
	assert.False(t, order.CreatedAt.IsZero())
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Price.Equal(price("10.00")), "price should be snapshotted at order time")
	assert.Equal(t, "20.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, 3, currentStock(t, store, p1.ID))
}

func TestCreateOrderEmptyCart(t *testing.T) {
	_, orders := newOrderFixture(t)

	_, err := orders.CreateOrder(1, nil, "cod")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = orders.CreateOrder(1, []domain.CartItem{}, "cod")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCreateOrderProductNotFound(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	_, err := orders.CreateOrder(1, []domain.CartItem{
		{ProductID: p1.ID, Quantity: 1},
		{ProductID: 999, Quantity: 1},
	}, "cod")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 5, currentStock(t, store, p1.ID), "validation failure must not change stock")
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	_, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 10}}, "cod")
	require.Error(t, err)

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "Widget", ise.ProductName)
	assert.Equal(t, 5, currentStock(t, store, p1.ID))

	all, err := store.ListOrders()
	require.NoError(t, err)
	assert.Empty(t, all, "no order may be created when validation fails")
}

func TestCreateOrderInvalidQuantity(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	_, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 0}}, "cod")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, 5, currentStock(t, store, p1.ID))
}

// Duplicate lines for one product each pass per-line validation, but the
// commit pass adds them up; the conditional decrement refuses the second
// line and the first must be rolled back.
func TestCreateOrderDuplicateLinesRollback(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	_, err := orders.CreateOrder(1, []domain.CartItem{
		{ProductID: p1.ID, Quantity: 3},
		{ProductID: p1.ID, Quantity: 3},
	}, "cod")
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientStock(err))
	assert.Equal(t, 5, currentStock(t, store, p1.ID), "partial deduction must be rolled back")
}

func TestCreateOrderMultipleProducts(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)
	p2 := seedProduct(t, store, "Gadget", "2.50", 8)

	order, err := orders.CreateOrder(3, []domain.CartItem{
		{ProductID: p1.ID, Quantity: 2},
		{ProductID: p2.ID, Quantity: 4},
	}, "card")
	require.NoError(t, err)

	assert.Equal(t, "30.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, 3, currentStock(t, store, p1.ID))
	assert.Equal(t, 4, currentStock(t, store, p2.ID))
}

func TestUpdateOrderReconciliation(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)
	require.Equal(t, 3, currentStock(t, store, p1.ID))

	// Restore 2 (stock 5), validate 4 against 5, deduct 4 (stock 1).
	updated, err := orders.UpdateOrder(order.ID, OrderUpdate{
		Items: []domain.CartItem{{ProductID: p1.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, currentStock(t, store, p1.ID))
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 4, updated.Items[0].Quantity)
	assert.Equal(t, "40.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, order.CreatedAt, updated.CreatedAt)
	assert.Equal(t, order.UserID, updated.UserID)
}

func TestUpdateOrderRollbackOnFailure(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)
	require.Equal(t, 3, currentStock(t, store, p1.ID))

	_, err = orders.UpdateOrder(order.ID, OrderUpdate{
		Items: []domain.CartItem{{ProductID: p1.ID, Quantity: 100}},
	})
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientStock(err))

	// The released reservation must have been taken back.
	assert.Equal(t, 3, currentStock(t, store, p1.ID))

	unchanged, err := orders.GetOrderByID(order.ID)
	require.NoError(t, err)
	require.Len(t, unchanged.Items, 1)
	assert.Equal(t, 2, unchanged.Items[0].Quantity)
	assert.Equal(t, "20.00", unchanged.TotalAmount.StringFixed(2))
}

func TestUpdateOrderRollbackOnUnknownProduct(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)
	p2 := seedProduct(t, store, "Gadget", "2.50", 8)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)

	_, err = orders.UpdateOrder(order.ID, OrderUpdate{
		Items: []domain.CartItem{
			{ProductID: p2.ID, Quantity: 3},
			{ProductID: 999, Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 3, currentStock(t, store, p1.ID), "old reservation must be re-deducted")
	assert.Equal(t, 8, currentStock(t, store, p2.ID), "new deduction must be restored")
}

// failingOrderRepo passes everything through until failReplace is flipped,
// then refuses ReplaceOrder.
type failingOrderRepo struct {
	domain.OrderRepository
	failReplace bool
}

func (r *failingOrderRepo) ReplaceOrder(order *domain.Order) (*domain.Order, error) {
	if r.failReplace {
		return nil, errors.New("replace failed")
	}
	return r.OrderRepository.ReplaceOrder(order)
}

func TestUpdateOrderRollbackOnPersistFailure(t *testing.T) {
	store := memory.NewStore(testLogger())
	repo := &failingOrderRepo{OrderRepository: store}
	orders := NewOrderUseCase(repo, store, testLogger())
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)
	require.Equal(t, 3, currentStock(t, store, p1.ID))

	repo.failReplace = true
	_, err = orders.UpdateOrder(order.ID, OrderUpdate{
		Items: []domain.CartItem{{ProductID: p1.ID, Quantity: 4}},
	})
	require.Error(t, err)

	assert.Equal(t, 3, currentStock(t, store, p1.ID), "stock must be rolled back when the order replace fails")

	unchanged, err := store.GetOrderByID(order.ID)
	require.NoError(t, err)
	require.Len(t, unchanged.Items, 1)
	assert.Equal(t, 2, unchanged.Items[0].Quantity)
}

func TestUpdateOrderFieldPatchOnly(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)

	method := "card"
	status := domain.StatusCompleted
	updated, err := orders.UpdateOrder(order.ID, OrderUpdate{
		PaymentMethod: &method,
		Status:        &status,
	})
	require.NoError(t, err)

	assert.Equal(t, "card", updated.PaymentMethod)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, "20.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, 3, currentStock(t, store, p1.ID), "field patch must not touch stock")
}

func TestUpdateOrderEmptyItemsRejected(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)

	_, err = orders.UpdateOrder(order.ID, OrderUpdate{Items: []domain.CartItem{}})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Equal(t, 3, currentStock(t, store, p1.ID))
}

func TestUpdateOrderResnapshotsPrice(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)

	repriced, err := store.GetProductByID(p1.ID)
	require.NoError(t, err)
	repriced.Price = price("12.50")
	_, err = store.UpdateProduct(p1.ID, repriced)
	require.NoError(t, err)

	updated, err := orders.UpdateOrder(order.ID, OrderUpdate{
		Items: []domain.CartItem{{ProductID: p1.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.True(t, updated.Items[0].Price.Equal(price("12.50")))
	assert.Equal(t, "25.00", updated.TotalAmount.StringFixed(2))
}

func TestUpdateOrderNotFound(t *testing.T) {
	_, orders := newOrderFixture(t)
	_, err := orders.UpdateOrder(42, OrderUpdate{})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatusHasNoStockSideEffects(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)

	updated, err := orders.UpdateStatus(order.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.Status)
	assert.Equal(t, 3, currentStock(t, store, p1.ID), "status-only update never moves stock")
}

func TestCancelRestoresStockOnlyFromPending(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)
	require.Equal(t, 3, currentStock(t, store, p1.ID))

	cancelled, err := orders.Cancel(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, currentStock(t, store, p1.ID), "customer cancellation returns the reservation")

	_, err = orders.Cancel(order.ID)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
	assert.Equal(t, 5, currentStock(t, store, p1.ID))
}

func TestCancelCompletedOrderRejected(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)
	_, err = orders.UpdateStatus(order.ID, domain.StatusCompleted)
	require.NoError(t, err)

	_, err = orders.Cancel(order.ID)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
}

func TestDeleteRestoresStock(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 4}}, "cod")
	require.NoError(t, err)
	require.Equal(t, 1, currentStock(t, store, p1.ID))

	deleted, err := orders.Delete(order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, deleted.ID)
	assert.Equal(t, 5, currentStock(t, store, p1.ID))

	_, err = orders.GetOrderByID(order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestDeleteToleratesDanglingProduct(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 5)

	order, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "cod")
	require.NoError(t, err)
	require.NoError(t, store.DeleteProduct(p1.ID))

	_, err = orders.Delete(order.ID)
	require.NoError(t, err, "restoration for a deleted product is skipped, not an error")

	_, err = orders.GetOrderByID(order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderIDsAreNeverReused(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 50)

	first, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 1}}, "cod")
	require.NoError(t, err)
	_, err = orders.Delete(first.ID)
	require.NoError(t, err)

	second, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 1}}, "cod")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID, "deleting the highest-numbered order must not free its id")
}

// The conservation invariant: initial stock equals current stock plus the
// quantities reserved by pending and completed orders, across any sequence
// of ledger operations.
func TestStockConservationInvariant(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 20)
	p2 := seedProduct(t, store, "Gadget", "2.50", 12)
	initial := map[int]int{p1.ID: 20, p2.ID: 12}

	o1, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 5}, {ProductID: p2.ID, Quantity: 3}}, "cod")
	require.NoError(t, err)
	o2, err := orders.CreateOrder(2, []domain.CartItem{{ProductID: p1.ID, Quantity: 2}}, "card")
	require.NoError(t, err)

	_, err = orders.UpdateOrder(o1.ID, OrderUpdate{Items: []domain.CartItem{{ProductID: p1.ID, Quantity: 8}}})
	require.NoError(t, err)
	_, err = orders.UpdateStatus(o2.ID, domain.StatusCompleted)
	require.NoError(t, err)

	o3, err := orders.CreateOrder(3, []domain.CartItem{{ProductID: p2.ID, Quantity: 4}}, "cod")
	require.NoError(t, err)
	_, err = orders.Cancel(o3.ID)
	require.NoError(t, err)

	reserved := map[int]int{}
	all, err := orders.ListOrders()
	require.NoError(t, err)
	for _, o := range all {
		if o.Status != domain.StatusPending && o.Status != domain.StatusCompleted {
			continue
		}
		for _, item := range o.Items {
			reserved[item.ProductID] += item.Quantity
		}
	}

	for id, want := range initial {
		assert.Equal(t, want, currentStock(t, store, id)+reserved[id],
			"stock + active reservations must equal the initial stock for product %d", id)
	}
}

func TestListOrdersByUserID(t *testing.T) {
	store, orders := newOrderFixture(t)
	p1 := seedProduct(t, store, "Widget", "10.00", 50)

	_, err := orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 1}}, "cod")
	require.NoError(t, err)
	_, err = orders.CreateOrder(2, []domain.CartItem{{ProductID: p1.ID, Quantity: 1}}, "cod")
	require.NoError(t, err)
	_, err = orders.CreateOrder(1, []domain.CartItem{{ProductID: p1.ID, Quantity: 1}}, "cod")
	require.NoError(t, err)

	mine, err := orders.ListOrdersByUserID(1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, o := range mine {
		assert.Equal(t, 1, o.UserID)
	}
}
