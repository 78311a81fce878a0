package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

type productRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewProductRepository(db *sql.DB, logger *logrus.Logger) domain.ProductRepository {
	return &productRepository{
		db:  db,
		log: logger,
	}
}

func (r *productRepository) CreateProduct(product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (name, category, description, price, stock, image)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	err := r.db.QueryRow(query,
		product.Name, product.Category, product.Description,
		product.Price, product.Stock, product.Image,
	).Scan(&product.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
			r.log.Warnf("Repository: check constraint violation for product '%s': %s", product.Name, pqErr.Message)
			return nil, fmt.Errorf("product data constraint violation: %s", pqErr.Message)
		}
		r.log.Errorf("Repository: failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}
	r.log.Infof("Repository: product created with ID %d, name %s", product.ID, product.Name)
	return product, nil
}

func (r *productRepository) GetProductByID(id int) (*domain.Product, error) {
	query := `
        SELECT id, name, category, description, price, stock, image
        FROM products
        WHERE id = $1`
	product := &domain.Product{}

	err := r.db.QueryRow(query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Category,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Image,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Repository: failed to get product by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}
	return product, nil
}

func (r *productRepository) ListProducts() ([]domain.Product, error) {
	query := `
        SELECT id, name, category, description, price, stock, image
        FROM products
        ORDER BY id`
	rows, err := r.db.Query(query)
	if err != nil {
		r.log.Errorf("Repository: failed to list products: %v", err)
		return nil, fmt.Errorf("could not list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.Price, &p.Stock, &p.Image); err != nil {
			r.log.Errorf("Repository: failed to scan product row: %v", err)
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func (r *productRepository) UpdateProduct(id int, product *domain.Product) (*domain.Product, error) {
	query := `
        UPDATE products
        SET name = $1, category = $2, description = $3, price = $4, stock = $5, image = $6
        WHERE id = $7
        RETURNING id`

	err := r.db.QueryRow(query,
		product.Name, product.Category, product.Description,
		product.Price, product.Stock, product.Image, id,
	).Scan(&product.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		r.log.Errorf("Repository: failed to update product ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update product: %w", err)
	}
	return product, nil
}

func (r *productRepository) DeleteProduct(id int) error {
	res, err := r.db.Exec(`DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: failed to delete product ID %d: %v", id, err)
		return fmt.Errorf("could not delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// DeductStock relies on a conditional update so the availability check and
// the decrement are one statement. Zero rows affected means either the
// product is gone or the stock was short; a follow-up probe tells the two
// apart.
func (r *productRepository) DeductStock(id int, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.Exec(
		`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1`,
		qty, id,
	)
	if err != nil {
		r.log.Errorf("Repository: failed to deduct %d from product ID %d: %v", qty, id, err)
		return fmt.Errorf("could not deduct stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check deduct result: %w", err)
	}
	if affected == 0 {
		var name string
		err := r.db.QueryRow(`SELECT name FROM products WHERE id = $1`, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("could not probe product %d after failed deduct: %w", id, err)
		}
		r.log.Warnf("Repository: insufficient stock for product ID %d (requested %d)", id, qty)
		return &domain.InsufficientStockError{ProductName: name}
	}
	return nil
}

func (r *productRepository) RestoreStock(id int, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.Exec(`UPDATE products SET stock = stock + $1 WHERE id = $2`, qty, id)
	if err != nil {
		r.log.Errorf("Repository: failed to restore %d to product ID %d: %v", qty, id, err)
		return fmt.Errorf("could not restore stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check restore result: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
