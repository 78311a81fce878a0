package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
	"github.com/MarkRaffy28/MicroBits/internal/repository/memory"
)

type fakeImageRemover struct {
	removed []int
}

func (f *fakeImageRemover) Remove(kind string, id int) error {
	f.removed = append(f.removed, id)
	return nil
}

func newCatalogFixture(t *testing.T) (*memory.Store, CatalogUseCase, *fakeImageRemover) {
	t.Helper()
	store := memory.NewStore(testLogger())
	images := &fakeImageRemover{}
	return store, NewCatalogUseCase(store, images, testLogger()), images
}

func TestCreateProductValidation(t *testing.T) {
	_, catalog, _ := newCatalogFixture(t)

	_, err := catalog.CreateProduct(&domain.Product{Name: "", Price: price("1.00"), Stock: 1})
	assert.EqualError(t, err, "product name cannot be empty")

	_, err = catalog.CreateProduct(&domain.Product{Name: "Widget", Price: price("-1.00"), Stock: 1})
	assert.EqualError(t, err, "product price cannot be negative")

	_, err = catalog.CreateProduct(&domain.Product{Name: "Widget", Price: price("1.00"), Stock: -1})
	assert.EqualError(t, err, "product stock cannot be negative")
}

func TestCreateProductRoundsPrice(t *testing.T) {
	_, catalog, _ := newCatalogFixture(t)

	created, err := catalog.CreateProduct(&domain.Product{Name: "Widget", Price: price("9.999"), Stock: 1})
	require.NoError(t, err)
	assert.Equal(t, "10.00", created.Price.StringFixed(2))
}

func TestUpdateProductNotFound(t *testing.T) {
	_, catalog, _ := newCatalogFixture(t)

	_, err := catalog.UpdateProduct(42, &domain.Product{Name: "Widget", Price: price("1.00")})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestDeleteProductRemovesImage(t *testing.T) {
	_, catalog, images := newCatalogFixture(t)

	created, err := catalog.CreateProduct(&domain.Product{Name: "Widget", Price: price("1.00"), Stock: 1})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteProduct(created.ID))
	assert.Equal(t, []int{created.ID}, images.removed)

	err = catalog.DeleteProduct(created.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestDeductAndRestore(t *testing.T) {
	store, catalog, _ := newCatalogFixture(t)

	created, err := catalog.CreateProduct(&domain.Product{Name: "Widget", Price: price("1.00"), Stock: 5})
	require.NoError(t, err)

	require.NoError(t, catalog.Deduct(created.ID, 3))
	assert.Equal(t, 2, currentStock(t, store, created.ID))

	err = catalog.Deduct(created.ID, 3)
	require.Error(t, err)
	assert.True(t, domain.IsInsufficientStock(err))
	assert.Equal(t, 2, currentStock(t, store, created.ID), "a refused deduction changes nothing")

	require.NoError(t, catalog.Restore(created.ID, 3))
	assert.Equal(t, 5, currentStock(t, store, created.ID))

	// Restore is an unconditional credit; it can push stock above where it
	// started, which is how admin corrections work.
	require.NoError(t, catalog.Restore(created.ID, 2))
	assert.Equal(t, 7, currentStock(t, store, created.ID))
}

func TestDeductRejectsNegativeQuantity(t *testing.T) {
	_, catalog, _ := newCatalogFixture(t)

	assert.ErrorIs(t, catalog.Deduct(1, -1), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, catalog.Restore(1, -1), domain.ErrInvalidQuantity)
}
