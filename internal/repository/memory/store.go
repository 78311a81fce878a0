// Package memory implements the product, order and user repositories on top
// of a single in-process document store. All stock adjustments happen under
// the store lock, so the conditional decrement in DeductStock is atomic with
// respect to concurrent checkouts.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

type Store struct {
	mu  sync.RWMutex
	log *logrus.Logger

	users    map[int]*domain.User
	products map[int]*domain.Product
	orders   map[int]*domain.Order

	// lastOrderID only ever grows, so deleting the highest-numbered order
	// does not lead to id reuse.
	lastUserID    int
	lastProductID int
	lastOrderID   int

	snapshotPath string
}

func NewStore(logger *logrus.Logger) *Store {
	return &Store{
		log:      logger,
		users:    make(map[int]*domain.User),
		products: make(map[int]*domain.Product),
		orders:   make(map[int]*domain.Order),
	}
}

// NewStoreFromSnapshot loads an existing snapshot file if one is present and
// keeps writing the store back to it after every mutation.
func NewStoreFromSnapshot(path string, logger *logrus.Logger) (*Store, error) {
	s := NewStore(logger)
	s.snapshotPath = path
	if err := s.loadSnapshot(); err != nil {
		return nil, fmt.Errorf("could not load snapshot %s: %w", path, err)
	}
	return s, nil
}

// --- ProductRepository ---

func (s *Store) CreateProduct(product *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastProductID++
	product.ID = s.lastProductID
	s.products[product.ID] = cloneProduct(product)
	if err := s.persistLocked(); err != nil {
		delete(s.products, product.ID)
		return nil, err
	}
	s.log.Debugf("Store: product %d created", product.ID)
	return cloneProduct(product), nil
}

func (s *Store) GetProductByID(id int) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (s *Store) ListProducts() ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateProduct(id int, product *domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	product.ID = id
	s.products[id] = cloneProduct(product)
	if err := s.persistLocked(); err != nil {
		s.products[id] = prev
		return nil, err
	}
	return cloneProduct(product), nil
}

func (s *Store) DeleteProduct(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	delete(s.products, id)
	if err := s.persistLocked(); err != nil {
		s.products[id] = prev
		return err
	}
	return nil
}

func (s *Store) DeductStock(id int, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock < qty {
		return &domain.InsufficientStockError{ProductName: p.Name}
	}
	p.Stock -= qty
	if err := s.persistLocked(); err != nil {
		// A failed deduct must not claim units: callers treat the error as
		// "nothing happened".
		p.Stock += qty
		return err
	}
	return nil
}

func (s *Store) RestoreStock(id int, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += qty
	if err := s.persistLocked(); err != nil {
		p.Stock -= qty
		return err
	}
	return nil
}

// --- OrderRepository ---

func (s *Store) CreateOrder(order *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastOrderID++
	order.ID = s.lastOrderID
	s.orders[order.ID] = cloneOrder(order)
	if err := s.persistLocked(); err != nil {
		delete(s.orders, order.ID)
		return nil, err
	}
	s.log.Debugf("Store: order %d created for user %d", order.ID, order.UserID)
	return cloneOrder(order), nil
}

func (s *Store) GetOrderByID(id int) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders() ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListOrdersByUserID(userID int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReplaceOrder(order *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.orders[order.ID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	s.orders[order.ID] = cloneOrder(order)
	if err := s.persistLocked(); err != nil {
		s.orders[order.ID] = prev
		return nil, err
	}
	return cloneOrder(order), nil
}

func (s *Store) DeleteOrder(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.orders, id)
	if err := s.persistLocked(); err != nil {
		s.orders[id] = prev
		return err
	}
	return nil
}

// --- UserRepository ---

func (s *Store) CreateUser(user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return nil, domain.ErrUsernameTaken
		}
	}
	s.lastUserID++
	user.ID = s.lastUserID
	if user.Cart == nil {
		user.Cart = []domain.CartItem{}
	}
	s.users[user.ID] = cloneUser(user)
	if err := s.persistLocked(); err != nil {
		delete(s.users, user.ID)
		return nil, err
	}
	return cloneUser(user), nil
}

func (s *Store) GetUserByID(id int) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *Store) ListUsers() ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateUser(id int, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.ID = id
	if user.Cart == nil {
		user.Cart = existing.Cart
	}
	s.users[id] = cloneUser(user)
	if err := s.persistLocked(); err != nil {
		s.users[id] = existing
		return nil, err
	}
	return cloneUser(user), nil
}

func (s *Store) DeleteUser(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	if err := s.persistLocked(); err != nil {
		s.users[id] = prev
		return err
	}
	return nil
}

func (s *Store) UsernameExists(username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetCart(userID int) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := make([]domain.CartItem, len(u.Cart))
	copy(out, u.Cart)
	return out, nil
}

func (s *Store) PutCart(userID int, items []domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	prev := u.Cart
	u.Cart = make([]domain.CartItem, len(items))
	copy(u.Cart, items)
	if err := s.persistLocked(); err != nil {
		u.Cart = prev
		return err
	}
	return nil
}

// --- helpers ---

func cloneProduct(p *domain.Product) *domain.Product {
	out := *p
	return &out
}

func cloneOrder(o *domain.Order) *domain.Order {
	out := *o
	out.Items = make([]domain.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	return &out
}

func cloneUser(u *domain.User) *domain.User {
	out := *u
	out.Cart = make([]domain.CartItem, len(u.Cart))
	copy(out.Cart, u.Cart)
	return &out
}
