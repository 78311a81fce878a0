package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

// snapshot is the on-disk shape of the store: one JSON document holding the
// users (carts embedded), products and orders collections plus the id
// counters, so restarting never hands out an already-used order id.
type snapshot struct {
	Users    []persistedUser  `json:"users"`
	Products []domain.Product `json:"products"`
	Orders   []domain.Order   `json:"orders"`
	Counters counters         `json:"counters"`
}

// persistedUser re-exposes the password hash, which domain.User hides from
// API responses but the snapshot must keep.
type persistedUser struct {
	domain.User
	PasswordHash string `json:"passwordHash,omitempty"`
}

type counters struct {
	LastUserID    int `json:"lastUserId"`
	LastProductID int `json:"lastProductId"`
	LastOrderID   int `json:"lastOrderId"`
}

func (s *Store) loadSnapshot() error {
	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Infof("Store: snapshot %s not found, starting empty", s.snapshotPath)
			return nil
		}
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("snapshot is not valid JSON: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range snap.Users {
		u := snap.Users[i].User
		u.PasswordHash = snap.Users[i].PasswordHash
		if u.Cart == nil {
			u.Cart = []domain.CartItem{}
		}
		s.users[u.ID] = &u
		if u.ID > s.lastUserID {
			s.lastUserID = u.ID
		}
	}
	for i := range snap.Products {
		p := snap.Products[i]
		s.products[p.ID] = &p
		if p.ID > s.lastProductID {
			s.lastProductID = p.ID
		}
	}
	for i := range snap.Orders {
		o := snap.Orders[i]
		s.orders[o.ID] = &o
		if o.ID > s.lastOrderID {
			s.lastOrderID = o.ID
		}
	}
	// Counters from the file win when they are ahead of the data, which is
	// what preserves never-reused order ids across deletes.
	if snap.Counters.LastUserID > s.lastUserID {
		s.lastUserID = snap.Counters.LastUserID
	}
	if snap.Counters.LastProductID > s.lastProductID {
		s.lastProductID = snap.Counters.LastProductID
	}
	if snap.Counters.LastOrderID > s.lastOrderID {
		s.lastOrderID = snap.Counters.LastOrderID
	}

	s.log.Infof("Store: loaded snapshot %s (%d users, %d products, %d orders)",
		s.snapshotPath, len(s.users), len(s.products), len(s.orders))
	return nil
}

// persistLocked writes the whole store back to the snapshot file. Callers
// must hold s.mu. A store without a snapshot path is purely in-memory.
func (s *Store) persistLocked() error {
	if s.snapshotPath == "" {
		return nil
	}

	snap := snapshot{
		Users:    make([]persistedUser, 0, len(s.users)),
		Products: make([]domain.Product, 0, len(s.products)),
		Orders:   make([]domain.Order, 0, len(s.orders)),
		Counters: counters{
			LastUserID:    s.lastUserID,
			LastProductID: s.lastProductID,
			LastOrderID:   s.lastOrderID,
		},
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, persistedUser{User: *cloneUser(u), PasswordHash: u.PasswordHash})
	}
	for _, p := range s.products {
		snap.Products = append(snap.Products, *cloneProduct(p))
	}
	for _, o := range s.orders {
		snap.Orders = append(snap.Orders, *cloneOrder(o))
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].ID < snap.Users[j].ID })
	sort.Slice(snap.Products, func(i, j int) bool { return snap.Products[i].ID < snap.Products[j].ID })
	sort.Slice(snap.Orders, func(i, j int) bool { return snap.Orders[i].ID < snap.Orders[j].ID })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal snapshot: %w", err)
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("could not write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return fmt.Errorf("could not replace snapshot: %w", err)
	}
	return nil
}
