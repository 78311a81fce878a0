package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

type userRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewUserRepository(db *sql.DB, logger *logrus.Logger) domain.UserRepository {
	return &userRepository{
		db:  db,
		log: logger,
	}
}

const userColumns = `id, username, email, password_hash, first_name, middle_name,
        last_name, phone_number, address, role, created_at`

func (r *userRepository) scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.MiddleName, &user.LastName,
		&user.PhoneNumber, &user.Address, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) CreateUser(user *domain.User) (*domain.User, error) {
	query := `
        INSERT INTO users (username, email, password_hash, first_name, middle_name,
                           last_name, phone_number, address, role)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at`
	err := r.db.QueryRow(query,
		user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.MiddleName, user.LastName,
		user.PhoneNumber, user.Address, user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			r.log.Warnf("Repository: duplicate username '%s'", user.Username)
			return nil, domain.ErrUsernameTaken
		}
		r.log.Errorf("Repository: failed to create user '%s': %v", user.Username, err)
		return nil, fmt.Errorf("could not create user: %w", err)
	}
	if user.Cart == nil {
		user.Cart = []domain.CartItem{}
	}
	r.log.Infof("Repository: user created with ID %d, username %s", user.ID, user.Username)
	return user, nil
}

func (r *userRepository) GetUserByID(id int) (*domain.User, error) {
	user, err := r.scanUser(r.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.log.Errorf("Repository: failed to get user by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get user by id: %w", err)
	}
	cart, err := r.GetCart(id)
	if err != nil {
		return nil, err
	}
	user.Cart = cart
	return user, nil
}

func (r *userRepository) GetUserByUsername(username string) (*domain.User, error) {
	user, err := r.scanUser(r.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		r.log.Errorf("Repository: failed to get user by username '%s': %v", username, err)
		return nil, fmt.Errorf("could not get user by username: %w", err)
	}
	cart, err := r.GetCart(user.ID)
	if err != nil {
		return nil, err
	}
	user.Cart = cart
	return user, nil
}

func (r *userRepository) ListUsers() ([]domain.User, error) {
	rows, err := r.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		r.log.Errorf("Repository: failed to list users: %v", err)
		return nil, fmt.Errorf("could not list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.FirstName, &u.MiddleName, &u.LastName,
			&u.PhoneNumber, &u.Address, &u.Role, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		u.Cart = []domain.CartItem{}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdateUser(id int, user *domain.User) (*domain.User, error) {
	query := `
        UPDATE users
        SET username = $1, email = $2, password_hash = $3, first_name = $4,
            middle_name = $5, last_name = $6, phone_number = $7, address = $8, role = $9
        WHERE id = $10
        RETURNING id, created_at`
	err := r.db.QueryRow(query,
		user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.MiddleName, user.LastName,
		user.PhoneNumber, user.Address, user.Role, id,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, domain.ErrUsernameTaken
		}
		r.log.Errorf("Repository: failed to update user ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update user: %w", err)
	}
	cart, err := r.GetCart(id)
	if err != nil {
		return nil, err
	}
	user.Cart = cart
	return user, nil
}

func (r *userRepository) DeleteUser(id int) error {
	// cart_items has ON DELETE CASCADE on user_id
	res, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: failed to delete user ID %d: %v", id, err)
		return fmt.Errorf("could not delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UsernameExists(username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`,
		username,
	).Scan(&exists)
	if err != nil {
		r.log.Errorf("Repository: failed username check for '%s': %v", username, err)
		return false, fmt.Errorf("could not check username: %w", err)
	}
	return exists, nil
}

func (r *userRepository) GetCart(userID int) ([]domain.CartItem, error) {
	var exists bool
	if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("could not check user existence: %w", err)
	}
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	rows, err := r.db.Query(`
        SELECT product_id, quantity
        FROM cart_items
        WHERE user_id = $1
        ORDER BY product_id`, userID)
	if err != nil {
		r.log.Errorf("Repository: failed to get cart for user %d: %v", userID, err)
		return nil, fmt.Errorf("could not retrieve cart: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("error scanning cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

// PutCart replaces the whole cart in one transaction, matching the
// read-modify-write discipline the cart manager uses.
func (r *userRepository) PutCart(userID int, items []domain.CartItem) error {
	var exists bool
	if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("could not check user existence: %w", err)
	}
	if !exists {
		return domain.ErrUserNotFound
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("Repository: failed to rollback cart replace: %v", rbErr)
			}
		}
	}()

	if _, err = tx.Exec(`DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("could not clear cart: %w", err)
	}
	for _, item := range items {
		if _, err = tx.Exec(
			`INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)`,
			userID, item.ProductID, item.Quantity,
		); err != nil {
			return fmt.Errorf("could not write cart line (product %d): %w", item.ProductID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart replace: %w", err)
	}
	return nil
}
