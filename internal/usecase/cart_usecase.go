package usecase

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

// CartUseCase mutates the per-user cart. The cart never reserves stock;
// availability is enforced at checkout and opportunistically corrected when
// the cart is read.
type CartUseCase interface {
	// GetCart returns the cart after the clamp pass. adjusted reports
	// whether any line had to be clamped down (or dropped) to match current
	// stock, in which case the persisted cart was updated too.
	GetCart(userID int) (items []domain.CartItem, adjusted bool, err error)
	AddLine(userID, productID, qty int) ([]domain.CartItem, error)
	SetLineQuantity(userID, productID, qty int) ([]domain.CartItem, error)
	RemoveLine(userID, productID int) ([]domain.CartItem, error)
	Clear(userID int) error
}

var _ CartUseCase = (*cartUseCase)(nil)

type cartUseCase struct {
	userRepo    domain.UserRepository
	productRepo domain.ProductRepository
	log         *logrus.Logger
}

func NewCartUseCase(users domain.UserRepository, products domain.ProductRepository, logger *logrus.Logger) CartUseCase {
	return &cartUseCase{
		userRepo:    users,
		productRepo: products,
		log:         logger,
	}
}

// GetCart applies the stock-correction pass: every line is clamped to
// min(quantity, product.stock) and lines whose product no longer exists are
// dropped. A clamped cart is written back so the customer never carries an
// unorderable quantity into checkout.
func (uc *cartUseCase) GetCart(userID int) ([]domain.CartItem, bool, error) {
	cart, err := uc.userRepo.GetCart(userID)
	if err != nil {
		return nil, false, err
	}

	clamped := make([]domain.CartItem, 0, len(cart))
	adjusted := false
	for _, line := range cart {
		product, err := uc.productRepo.GetProductByID(line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				uc.log.Warnf("Use Case: dropping cart line for deleted product %d (user %d)", line.ProductID, userID)
				adjusted = true
				continue
			}
			return nil, false, err
		}
		if line.Quantity > product.Stock {
			uc.log.Infof("Use Case: clamping cart line for product %d from %d to %d (user %d)",
				line.ProductID, line.Quantity, product.Stock, userID)
			line.Quantity = product.Stock
			adjusted = true
		}
		if line.Quantity < 1 {
			adjusted = true
			continue
		}
		clamped = append(clamped, line)
	}

	if adjusted {
		if err := uc.userRepo.PutCart(userID, clamped); err != nil {
			return nil, false, err
		}
	}
	return clamped, adjusted, nil
}

// AddLine merges the quantity into an existing line for the product, or
// appends a new one. Stock is deliberately not checked here.
func (uc *cartUseCase) AddLine(userID, productID, qty int) ([]domain.CartItem, error) {
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	cart, err := uc.userRepo.GetCart(userID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart {
		if cart[i].ProductID == productID {
			cart[i].Quantity += qty
			merged = true
			break
		}
	}
	if !merged {
		cart = append(cart, domain.CartItem{ProductID: productID, Quantity: qty})
	}

	if err := uc.userRepo.PutCart(userID, cart); err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: user %d cart now has %d lines after adding product %d x%d", userID, len(cart), productID, qty)
	return cart, nil
}

func (uc *cartUseCase) SetLineQuantity(userID, productID, qty int) ([]domain.CartItem, error) {
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	cart, err := uc.userRepo.GetCart(userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart {
		if cart[i].ProductID == productID {
			cart[i].Quantity = qty
			found = true
			break
		}
	}
	if !found {
		return nil, domain.ErrLineNotFound
	}

	if err := uc.userRepo.PutCart(userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveLine is idempotent: removing a line that is not there is a no-op.
func (uc *cartUseCase) RemoveLine(userID, productID int) ([]domain.CartItem, error) {
	cart, err := uc.userRepo.GetCart(userID)
	if err != nil {
		return nil, err
	}

	kept := make([]domain.CartItem, 0, len(cart))
	for _, line := range cart {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(cart) {
		return cart, nil
	}

	if err := uc.userRepo.PutCart(userID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func (uc *cartUseCase) Clear(userID int) error {
	if err := uc.userRepo.PutCart(userID, []domain.CartItem{}); err != nil {
		return err
	}
	uc.log.Infof("Use Case: cart cleared for user %d", userID)
	return nil
}
