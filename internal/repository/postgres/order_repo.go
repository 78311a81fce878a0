package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

type orderRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewOrderRepository(db *sql.DB, logger *logrus.Logger) domain.OrderRepository {
	return &orderRepository{
		db:  db,
		log: logger,
	}
}

// CreateOrder inserts the order row and its items in one transaction. The id
// comes from the orders sequence, which never hands out a value twice, so
// deleting the highest-numbered order cannot lead to id reuse.
func (r *orderRepository) CreateOrder(order *domain.Order) (*domain.Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		r.log.Errorf("Repository: failed to begin transaction: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("Repository: failed to rollback order insert: %v", rbErr)
			}
		}
	}()

	orderQuery := `
        INSERT INTO orders (user_id, total_amount, status, payment_method)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	err = tx.QueryRow(orderQuery, order.UserID, order.TotalAmount, order.Status, order.PaymentMethod).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		r.log.Errorf("Repository: failed to insert order for user %d: %v", order.UserID, err)
		return nil, fmt.Errorf("could not create order entry: %w", err)
	}

	if err = r.insertItemsTx(tx, order.ID, order.Items); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		r.log.Errorf("Repository: failed to commit order %d: %v", order.ID, err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Infof("Repository: order %d created with %d items", order.ID, len(order.Items))
	return order, nil
}

func (r *orderRepository) insertItemsTx(tx *sql.Tx, orderID int, items []domain.OrderItem) error {
	stmt, err := tx.Prepare(`
        INSERT INTO order_items (order_id, product_id, quantity, price)
        VALUES ($1, $2, $3, $4)`)
	if err != nil {
		r.log.Errorf("Repository: failed to prepare order item statement: %v", err)
		return fmt.Errorf("could not prepare item statement: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		item := &items[i]
		if _, err := stmt.Exec(orderID, item.ProductID, item.Quantity, item.Price); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
				return fmt.Errorf("invalid item data (product %d): %s", item.ProductID, pqErr.Message)
			}
			r.log.Errorf("Repository: failed to insert item (product %d) for order %d: %v", item.ProductID, orderID, err)
			return fmt.Errorf("could not create order item (product %d): %w", item.ProductID, err)
		}
	}
	return nil
}

func (r *orderRepository) GetOrderByID(id int) (*domain.Order, error) {
	order := &domain.Order{}
	query := `
        SELECT id, user_id, total_amount, status, payment_method, created_at
        FROM orders
        WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentMethod,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		r.log.Errorf("Repository: failed to get order by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}

	items, err := r.getOrderItems(id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) getOrderItems(orderID int) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(`
        SELECT product_id, quantity, price
        FROM order_items
        WHERE order_id = $1
        ORDER BY product_id`, orderID)
	if err != nil {
		r.log.Errorf("Repository: failed to query items for order %d: %v", orderID, err)
		return nil, fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func (r *orderRepository) ListOrders() ([]domain.Order, error) {
	return r.listOrders(`
        SELECT id, user_id, total_amount, status, payment_method, created_at
        FROM orders
        ORDER BY id`)
}

func (r *orderRepository) ListOrdersByUserID(userID int) ([]domain.Order, error) {
	return r.listOrders(`
        SELECT id, user_id, total_amount, status, payment_method, created_at
        FROM orders
        WHERE user_id = $1
        ORDER BY id`, userID)
}

func (r *orderRepository) listOrders(query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.log.Errorf("Repository: failed to list orders: %v", err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	orderIDs := []int{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentMethod, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := r.db.Query(`
        SELECT order_id, product_id, quantity, price
        FROM order_items
        WHERE order_id = ANY($1::int[])
        ORDER BY order_id, product_id`, pq.Array(orderIDs))
	if err != nil {
		r.log.Errorf("Repository: failed to query items for orders %v: %v", orderIDs, err)
		return nil, fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer itemRows.Close()

	itemsMap := make(map[int][]domain.OrderItem)
	for itemRows.Next() {
		var orderID int
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		itemsMap[orderID] = append(itemsMap[orderID], item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	for i := range orders {
		if items, ok := itemsMap[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

// ReplaceOrder rewrites the mutable fields and the whole item set. The id,
// user and creation time columns are left untouched.
func (r *orderRepository) ReplaceOrder(order *domain.Order) (*domain.Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		r.log.Errorf("Repository: failed to begin transaction for order replace: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("Repository: failed to rollback order replace: %v", rbErr)
			}
		}
	}()

	res, execErr := tx.Exec(`
        UPDATE orders
        SET total_amount = $1, status = $2, payment_method = $3
        WHERE id = $4`,
		order.TotalAmount, order.Status, order.PaymentMethod, order.ID)
	if execErr != nil {
		err = execErr
		r.log.Errorf("Repository: failed to update order %d: %v", order.ID, err)
		return nil, fmt.Errorf("could not update order: %w", err)
	}
	affected, affErr := res.RowsAffected()
	if affErr != nil {
		err = affErr
		return nil, fmt.Errorf("could not check update result: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOrderNotFound
		return nil, err
	}

	if _, err = tx.Exec(`DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		r.log.Errorf("Repository: failed to clear items for order %d: %v", order.ID, err)
		return nil, fmt.Errorf("could not replace order items: %w", err)
	}
	if err = r.insertItemsTx(tx, order.ID, order.Items); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order replace: %w", err)
	}
	return order, nil
}

func (r *orderRepository) DeleteOrder(id int) error {
	// order_items has ON DELETE CASCADE on order_id
	res, err := r.db.Exec(`DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: failed to delete order %d: %v", id, err)
		return fmt.Errorf("could not delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
