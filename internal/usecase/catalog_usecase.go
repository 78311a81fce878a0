package usecase

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

// CatalogUseCase owns product records and their stock counts. Deduct and
// Restore are the only two ways any flow may change stock; checkout, admin
// edits, cancellation and deletion all compose from them, so the
// serialization the repository provides at that boundary covers every
// caller.
type CatalogUseCase interface {
	CreateProduct(product *domain.Product) (*domain.Product, error)
	GetProductByID(id int) (*domain.Product, error)
	ListProducts() ([]domain.Product, error)
	UpdateProduct(id int, product *domain.Product) (*domain.Product, error)
	DeleteProduct(id int) error
	Deduct(productID, qty int) error
	Restore(productID, qty int) error
}

// ImageRemover is the slice of the image store the catalog needs: deleting a
// product also deletes its stored picture.
type ImageRemover interface {
	Remove(kind string, id int) error
}

var _ CatalogUseCase = (*catalogUseCase)(nil)

type catalogUseCase struct {
	productRepo domain.ProductRepository
	images      ImageRemover
	log         *logrus.Logger
}

func NewCatalogUseCase(repo domain.ProductRepository, images ImageRemover, logger *logrus.Logger) CatalogUseCase {
	return &catalogUseCase{
		productRepo: repo,
		images:      images,
		log:         logger,
	}
}

func (uc *catalogUseCase) CreateProduct(product *domain.Product) (*domain.Product, error) {
	if product.Name == "" {
		uc.log.Warn("Use Case: attempted to create product with empty name")
		return nil, errors.New("product name cannot be empty")
	}
	if product.Price.IsNegative() {
		uc.log.Warnf("Use Case: attempted to create product '%s' with negative price", product.Name)
		return nil, errors.New("product price cannot be negative")
	}
	if product.Stock < 0 {
		uc.log.Warnf("Use Case: attempted to create product '%s' with negative stock: %d", product.Name, product.Stock)
		return nil, errors.New("product stock cannot be negative")
	}
	product.Price = product.Price.Round(2)

	created, err := uc.productRepo.CreateProduct(product)
	if err != nil {
		uc.log.Errorf("Use Case: repository failed to create product '%s': %v", product.Name, err)
		return nil, err
	}
	uc.log.Infof("Use Case: product '%s' created with ID %d", created.Name, created.ID)
	return created, nil
}

func (uc *catalogUseCase) GetProductByID(id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.ErrProductNotFound
	}
	return uc.productRepo.GetProductByID(id)
}

func (uc *catalogUseCase) ListProducts() ([]domain.Product, error) {
	return uc.productRepo.ListProducts()
}

// UpdateProduct replaces the product's descriptive fields directly. This is
// the admin edit path; it does not go through Deduct/Restore, so an admin
// setting stock by hand is trusted to know what they are doing.
func (uc *catalogUseCase) UpdateProduct(id int, product *domain.Product) (*domain.Product, error) {
	if product.Name == "" {
		return nil, errors.New("product name cannot be empty")
	}
	if product.Price.IsNegative() {
		return nil, errors.New("product price cannot be negative")
	}
	if product.Stock < 0 {
		return nil, errors.New("product stock cannot be negative")
	}
	product.Price = product.Price.Round(2)

	updated, err := uc.productRepo.UpdateProduct(id, product)
	if err != nil {
		uc.log.Warnf("Use Case: failed to update product ID %d: %v", id, err)
		return nil, err
	}
	uc.log.Infof("Use Case: product %d updated", id)
	return updated, nil
}

// DeleteProduct removes the record and its stored image. Orders referencing
// the product keep their snapshotted lines; the dangling reference is
// tolerated and rendered as an unknown product.
func (uc *catalogUseCase) DeleteProduct(id int) error {
	if err := uc.productRepo.DeleteProduct(id); err != nil {
		uc.log.Warnf("Use Case: failed to delete product ID %d: %v", id, err)
		return err
	}
	if uc.images != nil {
		if err := uc.images.Remove("products", id); err != nil {
			uc.log.Warnf("Use Case: product %d deleted but its image could not be removed: %v", id, err)
		}
	}
	uc.log.Infof("Use Case: product %d deleted", id)
	return nil
}

func (uc *catalogUseCase) Deduct(productID, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	return uc.productRepo.DeductStock(productID, qty)
}

func (uc *catalogUseCase) Restore(productID, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	return uc.productRepo.RestoreStock(productID, qty)
}
