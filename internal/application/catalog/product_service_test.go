package catalog

import (
	"context"
	"testing"

	"github.com/disi/commandes/internal/domain/catalog"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for http.DetectContentType to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type productFixture struct {
	products   *MockProductRepository
	categories *MockCategoryRepository
	orderLines *MockOrderLineCounter
	objects    *storage.MemoryObjectStorage
	publisher  *recordingPublisher
	service    *ProductService
}

func newProductFixture() *productFixture {
	f := &productFixture{
		products:   new(MockProductRepository),
		categories: new(MockCategoryRepository),
		orderLines: new(MockOrderLineCounter),
		objects:    storage.NewMemoryObjectStorage("http://files.local"),
		publisher:  &recordingPublisher{},
	}
	f.service = NewProductService(f.products, f.categories, f.orderLines, f.objects, f.publisher, nil)
	return f
}

func newProduct(t *testing.T, ref string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(ref, "Ecran 24 pouces", decimal.NewFromInt(85000))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	p.ClearDomainEvents()
	return p
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates product and publishes event", func(t *testing.T) {
		f := newProductFixture()
		categoryID := uuid.New()
		category, _ := catalog.NewCategory("Ecrans", "")
		f.products.On("ExistsByReference", ctx, "ecr-24").Return(false, nil)
		f.categories.On("FindByID", ctx, categoryID).Return(category, nil)
		f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		resp, err := f.service.Create(ctx, CreateProductRequest{
			Reference:   "ecr-24",
			Name:        "Ecran 24 pouces",
			Description: "Full HD",
			CategoryID:  &categoryID,
			Price:       decimal.NewFromInt(85000),
			Stock:       12,
		})

		require.NoError(t, err)
		assert.Equal(t, "ECR-24", resp.Reference)
		assert.Equal(t, "Full HD", resp.Description)
		assert.Equal(t, 12, resp.Stock)
		assert.True(t, resp.Active)
		assert.Equal(t, &categoryID, resp.CategoryID)
		require.NotEmpty(t, f.publisher.events)
		assert.Equal(t, catalog.EventTypeProductCreated, f.publisher.events[0].EventType())
	})

	t.Run("rejects duplicate reference", func(t *testing.T) {
		f := newProductFixture()
		f.products.On("ExistsByReference", ctx, "ECR-24").Return(true, nil)

		_, err := f.service.Create(ctx, CreateProductRequest{Reference: "ECR-24", Name: "Ecran", Price: decimal.NewFromInt(1)})

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "ALREADY_EXISTS", de.Code)
		f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		f := newProductFixture()
		categoryID := uuid.New()
		f.products.On("ExistsByReference", ctx, "ECR-24").Return(false, nil)
		f.categories.On("FindByID", ctx, categoryID).Return(nil, shared.ErrNotFound)

		_, err := f.service.Create(ctx, CreateProductRequest{Reference: "ECR-24", Name: "Ecran", CategoryID: &categoryID})

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_CATEGORY", de.Code)
	})

	t.Run("creates inactive product on request", func(t *testing.T) {
		f := newProductFixture()
		inactive := false
		f.products.On("ExistsByReference", ctx, "ECR-24").Return(false, nil)
		f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		resp, err := f.service.Create(ctx, CreateProductRequest{Reference: "ECR-24", Name: "Ecran", Active: &inactive})

		require.NoError(t, err)
		assert.False(t, resp.Active)
	})
}

func TestProductService_GetByID(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	product := newProduct(t, "ECR-24", 3)
	require.NoError(t, product.Deactivate())
	f.products.On("FindByID", ctx, product.ID).Return(product, nil)

	_, err := f.service.GetByID(ctx, product.ID, false)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	resp, err := f.service.GetByID(ctx, product.ID, true)
	require.NoError(t, err)
	assert.False(t, resp.Active)
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("non-admin listing is restricted to active products", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		f.products.On("FindAll", ctx, mock.MatchedBy(func(filter catalog.ProductFilter) bool {
			return filter.ActiveOnly && filter.Page == 1 && filter.PageSize == 20 && filter.OrderBy == "name"
		})).Return([]catalog.Product{*product}, int64(1), nil)

		items, total, err := f.service.List(ctx, ProductListFilter{}, false)

		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "ECR-24", items[0].Reference)
	})

	t.Run("admin can filter on inactive products", func(t *testing.T) {
		f := newProductFixture()
		inactive := false
		f.products.On("FindAll", ctx, mock.MatchedBy(func(filter catalog.ProductFilter) bool {
			return !filter.ActiveOnly && filter.Filters["active"] == false
		})).Return([]catalog.Product{}, int64(0), nil)

		items, _, err := f.service.List(ctx, ProductListFilter{Active: &inactive, Search: "  ecran "}, true)

		require.NoError(t, err)
		assert.Empty(t, items)
		f.products.AssertExpectations(t)
	})
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates fields selectively", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		newPrice := decimal.NewFromInt(90000)
		stock := 10
		name := "Ecran 27 pouces"
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.products.On("Save", ctx, product).Return(nil)

		resp, err := f.service.Update(ctx, product.ID, UpdateProductRequest{Name: &name, Price: &newPrice, Stock: &stock})

		require.NoError(t, err)
		assert.Equal(t, name, resp.Name)
		assert.True(t, newPrice.Equal(resp.Price))
		assert.Equal(t, 10, resp.Stock)
		assert.Equal(t, "ECR-24", resp.Reference)
	})

	t.Run("rejects reference already used", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		ref := "ECR-27"
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.products.On("ExistsByReference", ctx, ref).Return(true, nil)

		_, err := f.service.Update(ctx, product.ID, UpdateProductRequest{Reference: &ref})

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "ALREADY_EXISTS", de.Code)
	})

	t.Run("same reference in another case is not a conflict", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		ref := "ecr-24"
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.products.On("Save", ctx, product).Return(nil)

		_, err := f.service.Update(ctx, product.ID, UpdateProductRequest{Reference: &ref})

		require.NoError(t, err)
		f.products.AssertNotCalled(t, "ExistsByReference", mock.Anything, mock.Anything)
	})

	t.Run("clears category and toggles active", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		categoryID := uuid.New()
		product.SetCategory(&categoryID)
		inactive := false
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.products.On("Save", ctx, product).Return(nil)

		resp, err := f.service.Update(ctx, product.ID, UpdateProductRequest{ClearCategory: true, Active: &inactive})

		require.NoError(t, err)
		assert.Nil(t, resp.CategoryID)
		assert.False(t, resp.Active)
	})
}

func TestProductService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	product := newProduct(t, "ECR-24", 3)
	f.products.On("FindByID", ctx, product.ID).Return(product, nil)
	f.products.On("Save", ctx, product).Return(nil)

	resp, err := f.service.Deactivate(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, resp.Active)

	_, err = f.service.Deactivate(ctx, product.ID)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "ALREADY_INACTIVE", de.Code)

	resp, err = f.service.Activate(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, resp.Active)
}

func TestProductService_AdjustStock(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	product := newProduct(t, "ECR-24", 8)
	f.products.On("AdjustStock", ctx, product.ID, 5).Return(nil)
	f.products.On("FindByID", ctx, product.ID).Return(product, nil)
	f.products.On("AdjustStock", ctx, product.ID, -20).Return(shared.ErrInsufficientStock)

	resp, err := f.service.AdjustStock(ctx, product.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 8, resp.Stock)

	require.Len(t, f.publisher.events, 1)
	changed, ok := f.publisher.events[0].(*catalog.ProductStockChangedEvent)
	require.True(t, ok)
	assert.Equal(t, catalog.EventTypeProductStockChanged, changed.EventType())
	assert.Equal(t, product.ID, changed.ProductID)
	assert.Equal(t, 3, changed.OldStock)
	assert.Equal(t, 8, changed.NewStock)
	assert.Empty(t, product.GetDomainEvents())

	_, err = f.service.AdjustStock(ctx, product.ID, -20)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Len(t, f.publisher.events, 1)

	_, err = f.service.AdjustStock(ctx, product.ID, 0)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_QUANTITY", de.Code)
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses ordered product", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.orderLines.On("CountByProduct", ctx, product.ID).Return(int64(2), nil)

		err := f.service.Delete(ctx, product.ID)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "PRODUCT_IN_USE", de.Code)
		f.products.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deletes product and its image", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		key := storage.ProductImageKey(product.ID.String(), "photo.png")
		require.NoError(t, f.objects.Upload(ctx, key, pngHeader, "image/png"))
		product.SetImage(key)
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.orderLines.On("CountByProduct", ctx, product.ID).Return(int64(0), nil)
		f.products.On("Delete", ctx, product.ID).Return(nil)

		require.NoError(t, f.service.Delete(ctx, product.ID))
		assert.Equal(t, 0, f.objects.Len())
	})
}

func TestProductService_UploadImage(t *testing.T) {
	ctx := context.Background()

	t.Run("stores image and signs URL", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.products.On("Save", ctx, product).Return(nil)

		resp, err := f.service.UploadImage(ctx, product.ID, "Photo.PNG", pngHeader)

		require.NoError(t, err)
		assert.Equal(t, "products/"+product.ID.String()+".png", resp.ImageKey)
		assert.NotEmpty(t, resp.ImageURL)
		exists, err := f.objects.ObjectExists(ctx, resp.ImageKey)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("replacing image removes the previous object", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		oldKey := storage.ProductImageKey(product.ID.String(), "old.gif")
		require.NoError(t, f.objects.Upload(ctx, oldKey, []byte("GIF89a"), "image/gif"))
		product.SetImage(oldKey)
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.products.On("Save", ctx, product).Return(nil)

		_, err := f.service.UploadImage(ctx, product.ID, "new.png", pngHeader)

		require.NoError(t, err)
		exists, _ := f.objects.ObjectExists(ctx, oldKey)
		assert.False(t, exists)
		assert.Equal(t, 1, f.objects.Len())
	})

	t.Run("conflicting save drops the uploaded object", func(t *testing.T) {
		f := newProductFixture()
		product := newProduct(t, "ECR-24", 3)
		conflict := shared.NewDomainError("CONCURRENT_MODIFICATION", "The record has been modified by another user")
		f.products.On("FindByID", ctx, product.ID).Return(product, nil)
		f.products.On("Save", ctx, product).Return(conflict)

		_, err := f.service.UploadImage(ctx, product.ID, "photo.png", pngHeader)

		assert.ErrorIs(t, err, conflict)
		assert.Equal(t, 0, f.objects.Len())
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		f := newProductFixture()
		_, err := f.service.UploadImage(ctx, uuid.New(), "notes.txt", []byte("plain text"))

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_IMAGE", de.Code)
	})

	t.Run("refuses when storage is disabled", func(t *testing.T) {
		service := NewProductService(new(MockProductRepository), new(MockCategoryRepository), nil, nil, nil, nil)
		_, err := service.UploadImage(ctx, uuid.New(), "photo.png", pngHeader)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "STORAGE_DISABLED", de.Code)
	})
}
