package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/model"
)

func newProductsService(store *memProducts, rec *recorder) *Products {
	return NewProducts(store, rec, fixedClock(now), discardLog)
}

func validProduct() CreateProductInput {
	return CreateProductInput{
		Name:        " Desk ",
		Description: "Oak desk",
		Price:       ptr(120.0),
		Category:    model.CategoryHomeGarden,
		SKU:         " desk-1 ",
		Stock:       4,
		Tags:        []string{" Office ", ""},
	}
}

func TestProducts_Create(t *testing.T) {
	store := newMemProducts()
	rec := &recorder{}

	p, err := newProductsService(store, rec).Create(t.Context(), validProduct(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Desk", p.Name)
	assert.Equal(t, "DESK-1", p.SKU)
	assert.Equal(t, []string{"office"}, p.Tags)
	assert.True(t, p.IsActive)
	assert.Equal(t, uint64(7), p.CreatedBy.ID)
	assert.Equal(t, []string{"product.created"}, rec.actions())
}

func TestProducts_CreateDuplicateSKUIgnoresCase(t *testing.T) {
	store := newMemProducts(model.Product{ID: 1, SKU: "ABC-1"})
	in := validProduct()
	in.SKU = "abc-1"

	_, err := newProductsService(store, &recorder{}).Create(t.Context(), in, 7)
	require.Error(t, err)
	ae, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, 400, ae.Status)
	assert.Equal(t, "Product with this SKU already exists", ae.Message)
	assert.Zero(t, store.creates)
	assert.Len(t, store.rows, 1)
}

func TestProducts_CreateRejectsInvertedDiscount(t *testing.T) {
	store := newMemProducts()
	in := validProduct()
	start := now
	end := now.Add(-time.Hour)
	in.Discount = &DiscountInput{Percentage: 10, StartDate: &start, EndDate: &end}

	_, err := newProductsService(store, &recorder{}).Create(t.Context(), in, 7)
	ae, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, "Validation error", ae.Message)
	assert.Zero(t, store.creates)
}

func TestProducts_UpdateStampsUpdater(t *testing.T) {
	store := newMemProducts(
		model.Product{ID: 1, SKU: "A-1", IsActive: true},
		model.Product{ID: 2, SKU: "B-2", IsActive: true},
	)
	svc := newProductsService(store, &recorder{})

	_, err := svc.Update(t.Context(), 2, UpdateProductInput{SKU: ptr("a-1")}, 5)
	assert.ErrorIs(t, err, ErrSKUTaken)

	p, err := svc.Update(t.Context(), 2, UpdateProductInput{
		SKU:   ptr("b-2"),
		Price: ptr(9.5),
		Sales: &SalesInput{TotalSold: 3, Revenue: 28.5},
	}, 5)
	require.NoError(t, err)
	assert.Equal(t, "B-2", p.SKU)
	assert.Equal(t, 9.5, p.Price)
	assert.Equal(t, model.Sales{TotalSold: 3, Revenue: 28.5}, p.Sales)
	assert.Equal(t, uint64(5), p.UpdatedBy.ID)
	require.Len(t, store.updates, 1)
	assert.Nil(t, store.updates[0].Ratings)
}

func TestProducts_UpdateMissing(t *testing.T) {
	_, err := newProductsService(newMemProducts(), &recorder{}).Update(t.Context(), 9, UpdateProductInput{}, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProducts_SoftDelete(t *testing.T) {
	store := newMemProducts(model.Product{ID: 1, Name: "Desk", IsActive: true})
	rec := &recorder{}
	svc := newProductsService(store, rec)

	require.NoError(t, svc.Deactivate(t.Context(), 1, 3))
	assert.False(t, store.rows[1].IsActive)
	assert.Equal(t, uint64(3), store.rows[1].UpdatedBy.ID)

	p, err := svc.Activate(t.Context(), 1, 4)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, []string{"product.deactivated", "product.activated"}, rec.actions())

	assert.ErrorIs(t, svc.Deactivate(t.Context(), 2, 3), ErrProductNotFound)
}

func TestProducts_LowStockDefaultThreshold(t *testing.T) {
	store := newMemProducts(
		model.Product{ID: 1, Stock: 10, IsActive: true},
		model.Product{ID: 2, Stock: 11, IsActive: true},
		model.Product{ID: 3, Stock: 0, IsActive: false},
	)
	svc := newProductsService(store, &recorder{})

	low, err := svc.LowStock(t.Context(), -1)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, uint64(1), low[0].ID)

	low, err = svc.LowStock(t.Context(), 20)
	require.NoError(t, err)
	assert.Len(t, low, 2)
}
