package usecase

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

// OrderUpdate is the admin full-update payload. A nil Items means the item
// set is untouched and only the other provided fields are patched; a
// non-nil Items replaces the old set wholesale and triggers stock
// reconciliation.
type OrderUpdate struct {
	Items         []domain.CartItem
	PaymentMethod *string
	Status        *domain.OrderStatus
}

// OrderUseCase is the ledger of orders, and the one component responsible
// for keeping product stock consistent with the union of active orders.
type OrderUseCase interface {
	// CreateOrder validates every requested line against the catalog, and
	// only then deducts stock and persists the order with prices
	// snapshotted from the catalog. The caller clears the cart afterwards;
	// the ledger does not touch it.
	CreateOrder(userID int, lines []domain.CartItem, paymentMethod string) (*domain.Order, error)
	GetOrderByID(id int) (*domain.Order, error)
	ListOrders() ([]domain.Order, error)
	ListOrdersByUserID(userID int) ([]domain.Order, error)
	// UpdateOrder is the admin full edit: with new items it restores the
	// old reservation, validates and deducts the new one (rolling the
	// restore back on failure), and re-snapshots prices.
	UpdateOrder(id int, update OrderUpdate) (*domain.Order, error)
	// UpdateStatus sets the status directly with no stock side effects.
	UpdateStatus(id int, status domain.OrderStatus) (*domain.Order, error)
	// Cancel is the customer path: pending orders only, and the reserved
	// stock goes back to the catalog.
	Cancel(id int) (*domain.Order, error)
	// Delete removes the order and unconditionally restores its stock.
	Delete(id int) (*domain.Order, error)
}

var _ OrderUseCase = (*orderUseCase)(nil)

type orderUseCase struct {
	orderRepo   domain.OrderRepository
	productRepo domain.ProductRepository
	log         *logrus.Logger

	// stockMu serializes every multi-step stock mutation (create commit,
	// full update, cancel, delete) so no two of them interleave between a
	// validate pass and its commit. The repository's atomic DeductStock is
	// the second line of defense for callers outside this process.
	stockMu sync.Mutex
}

func NewOrderUseCase(orders domain.OrderRepository, products domain.ProductRepository, logger *logrus.Logger) OrderUseCase {
	return &orderUseCase{
		orderRepo:   orders,
		productRepo: products,
		log:         logger,
	}
}

func (uc *orderUseCase) CreateOrder(userID int, lines []domain.CartItem, paymentMethod string) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	uc.stockMu.Lock()
	defer uc.stockMu.Unlock()

	// Validate pass: look up every line in input order and snapshot its
	// price. Nothing is mutated here; the first failing line decides the
	// error.
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
		product, err := uc.productRepo.GetProductByID(line.ProductID)
		if err != nil {
			uc.log.Warnf("Use Case: order validation failed for user %d, product %d: %v", userID, line.ProductID, err)
			return nil, err
		}
		if line.Quantity > product.Stock {
			uc.log.Warnf("Use Case: insufficient stock for product %d ('%s'): requested %d, available %d",
				product.ID, product.Name, line.Quantity, product.Stock)
			return nil, &domain.InsufficientStockError{ProductName: product.Name}
		}
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     product.Price,
		})
	}

	// Commit pass: deduct every line. The conditional decrement can still
	// refuse a line (duplicate product lines in one request add up), in
	// which case everything already deducted is restored.
	if err := uc.deductAll(items); err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:        userID,
		Items:         items,
		TotalAmount:   OrderTotal(items),
		Status:        domain.StatusPending,
		PaymentMethod: paymentMethod,
		CreatedAt:     time.Now().UTC(),
	}
	created, err := uc.orderRepo.CreateOrder(order)
	if err != nil {
		uc.log.Errorf("Use Case: repository failed to save order for user %d after stock deduction, restoring: %v", userID, err)
		uc.restoreAll(items)
		return nil, err
	}

	uc.log.Infof("Use Case: order %d created for user %d, total %s", created.ID, userID, created.TotalAmount.StringFixed(2))
	return created, nil
}

func (uc *orderUseCase) GetOrderByID(id int) (*domain.Order, error) {
	return uc.orderRepo.GetOrderByID(id)
}

func (uc *orderUseCase) ListOrders() ([]domain.Order, error) {
	return uc.orderRepo.ListOrders()
}

func (uc *orderUseCase) ListOrdersByUserID(userID int) ([]domain.Order, error) {
	return uc.orderRepo.ListOrdersByUserID(userID)
}

func (uc *orderUseCase) UpdateOrder(id int, update OrderUpdate) (*domain.Order, error) {
	if update.Status != nil && !domain.IsValidStatus(*update.Status) {
		return nil, errors.New("invalid order status")
	}

	uc.stockMu.Lock()
	defer uc.stockMu.Unlock()

	order, err := uc.orderRepo.GetOrderByID(id)
	if err != nil {
		return nil, err
	}

	prevItems := order.Items
	if update.Items != nil {
		if len(update.Items) == 0 {
			return nil, domain.ErrEmptyCart
		}
		newItems, err := uc.reconcileItems(order, update.Items)
		if err != nil {
			return nil, err
		}
		order.Items = newItems
		order.TotalAmount = OrderTotal(newItems)
	}

	if update.PaymentMethod != nil {
		order.PaymentMethod = *update.PaymentMethod
	}
	if update.Status != nil {
		order.Status = *update.Status
	}

	replaced, err := uc.orderRepo.ReplaceOrder(order)
	if err != nil {
		uc.log.Errorf("Use Case: repository failed to replace order %d, reverting stock: %v", id, err)
		if update.Items != nil {
			uc.restoreAll(order.Items)
			uc.rededuct(prevItems, id)
		}
		return nil, err
	}
	uc.log.Infof("Use Case: order %d updated, total %s, status %s", id, replaced.TotalAmount.StringFixed(2), replaced.Status)
	return replaced, nil
}

// reconcileItems releases the old reservation, then validates and deducts
// the new lines, snapshotting current catalog prices. On any failure the
// restore is undone so stock ends up exactly where it started. Must be
// called with stockMu held.
func (uc *orderUseCase) reconcileItems(order *domain.Order, lines []domain.CartItem) ([]domain.OrderItem, error) {
	// Restore phase: hand the old reservation back. Lines whose product is
	// gone are skipped, matching how deletion treats dangling references.
	restored := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if err := uc.productRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				uc.log.Warnf("Use Case: skipping restore of %d x product %d for order %d, product no longer exists",
					item.Quantity, item.ProductID, order.ID)
				continue
			}
			uc.rededuct(restored, order.ID)
			return nil, err
		}
		restored = append(restored, item)
	}

	// Validate-and-deduct phase, in input order.
	newItems := make([]domain.OrderItem, 0, len(lines))
	deducted := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			uc.rollbackReconcile(deducted, restored, order.ID)
			return nil, domain.ErrInvalidQuantity
		}
		product, err := uc.productRepo.GetProductByID(line.ProductID)
		if err != nil {
			uc.rollbackReconcile(deducted, restored, order.ID)
			return nil, err
		}
		if err := uc.productRepo.DeductStock(line.ProductID, line.Quantity); err != nil {
			uc.log.Warnf("Use Case: order %d update rejected at product %d: %v", order.ID, line.ProductID, err)
			uc.rollbackReconcile(deducted, restored, order.ID)
			return nil, err
		}
		item := domain.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     product.Price,
		}
		deducted = append(deducted, item)
		newItems = append(newItems, item)
	}

	return newItems, nil
}

// rollbackReconcile undoes a half-done reconciliation: new deductions are
// restored first, then the released old reservation is re-deducted, which
// cannot run short because the quantities were just put back.
func (uc *orderUseCase) rollbackReconcile(deducted, restored []domain.OrderItem, orderID int) {
	uc.restoreAll(deducted)
	uc.rededuct(restored, orderID)
}

func (uc *orderUseCase) rededuct(items []domain.OrderItem, orderID int) {
	for _, item := range items {
		if err := uc.productRepo.DeductStock(item.ProductID, item.Quantity); err != nil {
			uc.log.Errorf("Use Case: CRITICAL: failed to re-deduct %d x product %d while rolling back order %d: %v. Stock needs manual adjustment.",
				item.Quantity, item.ProductID, orderID, err)
		}
	}
}

func (uc *orderUseCase) UpdateStatus(id int, status domain.OrderStatus) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, errors.New("invalid order status")
	}
	order, err := uc.orderRepo.GetOrderByID(id)
	if err != nil {
		return nil, err
	}
	order.Status = status
	replaced, err := uc.orderRepo.ReplaceOrder(order)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: order %d status set to %s", id, status)
	return replaced, nil
}

func (uc *orderUseCase) Cancel(id int) (*domain.Order, error) {
	uc.stockMu.Lock()
	defer uc.stockMu.Unlock()

	order, err := uc.orderRepo.GetOrderByID(id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPending {
		uc.log.Warnf("Use Case: attempt to cancel order %d in status %s", id, order.Status)
		return nil, domain.ErrNotCancellable
	}

	uc.restoreAll(order.Items)
	order.Status = domain.StatusCancelled
	replaced, err := uc.orderRepo.ReplaceOrder(order)
	if err != nil {
		uc.log.Errorf("Use Case: failed to persist cancellation of order %d after restoring stock: %v", id, err)
		uc.rededuct(order.Items, id)
		return nil, err
	}
	uc.log.Infof("Use Case: order %d cancelled, stock returned", id)
	return replaced, nil
}

func (uc *orderUseCase) Delete(id int) (*domain.Order, error) {
	uc.stockMu.Lock()
	defer uc.stockMu.Unlock()

	order, err := uc.orderRepo.GetOrderByID(id)
	if err != nil {
		return nil, err
	}

	uc.restoreAll(order.Items)
	if err := uc.orderRepo.DeleteOrder(id); err != nil {
		uc.log.Errorf("Use Case: failed to delete order %d after restoring stock: %v", id, err)
		uc.rededuct(order.Items, id)
		return nil, err
	}
	uc.log.Infof("Use Case: order %d deleted, stock restored for %d lines", id, len(order.Items))
	return order, nil
}

// deductAll commits a validated line set. On a refused line everything
// already deducted is put back and the error is returned unchanged. Must be
// called with stockMu held.
func (uc *orderUseCase) deductAll(items []domain.OrderItem) error {
	done := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if err := uc.productRepo.DeductStock(item.ProductID, item.Quantity); err != nil {
			uc.restoreAll(done)
			return err
		}
		done = append(done, item)
	}
	return nil
}

// restoreAll returns quantities to the catalog. Lines whose product no
// longer exists are skipped rather than errored.
func (uc *orderUseCase) restoreAll(items []domain.OrderItem) {
	for _, item := range items {
		if err := uc.productRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				uc.log.Warnf("Use Case: skipping restore of %d x product %d, product no longer exists", item.Quantity, item.ProductID)
				continue
			}
			uc.log.Errorf("Use Case: CRITICAL: failed to restore %d x product %d: %v. Stock needs manual adjustment.",
				item.Quantity, item.ProductID, err)
		}
	}
}
