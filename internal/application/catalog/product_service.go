package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/disi/commandes/internal/domain/catalog"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageSize is the largest accepted product picture
const MaxImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// OrderLineCounter reports how many order lines reference a product
type OrderLineCounter interface {
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
}

// ProductService handles product-related business operations
type ProductService struct {
	productRepo    catalog.ProductRepository
	categoryRepo   catalog.CategoryRepository
	orderLines     OrderLineCounter
	objects        storage.ObjectStorage
	eventPublisher shared.EventPublisher
	imageURLTTL    time.Duration
	logger         *zap.Logger
}

// NewProductService creates a new ProductService. objects may be nil when
// object storage is disabled; image upload is then refused.
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	orderLines OrderLineCounter,
	objects storage.ObjectStorage,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo:    productRepo,
		categoryRepo:   categoryRepo,
		orderLines:     orderLines,
		objects:        objects,
		eventPublisher: eventPublisher,
		imageURLTTL:    time.Hour,
		logger:         logger,
	}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	exists, err := s.productRepo.ExistsByReference(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this reference already exists")
	}

	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(req.Reference, req.Name, req.Price)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := product.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}
	product.SetCategory(req.CategoryID)
	if req.Stock > 0 {
		if err := product.SetStock(req.Stock); err != nil {
			return nil, err
		}
	}
	if req.Active != nil && !*req.Active {
		if err := product.Deactivate(); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this reference already exists")
		}
		return nil, err
	}
	s.publishEvents(ctx, product)

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("reference", product.Reference))

	return s.toResponse(ctx, product), nil
}

// GetByID returns a product. Inactive products are only visible to admins.
func (s *ProductService) GetByID(ctx context.Context, productID uuid.UUID, includeInactive bool) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active && !includeInactive {
		return nil, shared.ErrNotFound
	}
	return s.toResponse(ctx, product), nil
}

// List returns a page of products. Non-admin callers only see active ones.
func (s *ProductService) List(ctx context.Context, filter ProductListFilter, includeInactive bool) ([]ProductResponse, int64, error) {
	domainFilter := catalog.ProductFilter{
		Filter:     listFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search, "name", "asc"),
		CategoryID: filter.CategoryID,
		InStock:    filter.InStock,
		ActiveOnly: !includeInactive,
	}
	if includeInactive && filter.Active != nil {
		domainFilter.Filters["active"] = *filter.Active
	}

	products, total, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := ToProductResponses(products)
	for i := range responses {
		responses[i].ImageURL = s.imageURL(ctx, responses[i].ImageKey)
	}
	return responses, total, nil
}

// Update applies the provided fields to a product
func (s *ProductService) Update(ctx context.Context, productID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if req.Reference != nil && !strings.EqualFold(strings.TrimSpace(*req.Reference), product.Reference) {
		exists, err := s.productRepo.ExistsByReference(ctx, *req.Reference)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this reference already exists")
		}
		if err := product.SetReference(*req.Reference); err != nil {
			return nil, err
		}
	}

	if req.Name != nil || req.Description != nil {
		name := product.Name
		description := product.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := product.Update(name, description); err != nil {
			return nil, err
		}
	}

	switch {
	case req.ClearCategory:
		product.SetCategory(nil)
	case req.CategoryID != nil:
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.SetCategory(req.CategoryID)
	}

	if req.Price != nil {
		if err := product.SetPrice(*req.Price); err != nil {
			return nil, err
		}
	}
	if req.Stock != nil && *req.Stock != product.Stock {
		if err := product.SetStock(*req.Stock); err != nil {
			return nil, err
		}
	}
	if req.Active != nil && *req.Active != product.Active {
		if *req.Active {
			err = product.Activate()
		} else {
			err = product.Deactivate()
		}
		if err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, product)

	return s.toResponse(ctx, product), nil
}

// Activate makes a product orderable
func (s *ProductService) Activate(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, productID, (*catalog.Product).Activate)
}

// Deactivate hides a product from the catalog
func (s *ProductService) Deactivate(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	return s.mutate(ctx, productID, (*catalog.Product).Deactivate)
}

// AdjustStock adds delta units to a product's stock
func (s *ProductService) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (*ProductResponse, error) {
	if delta == 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Stock adjustment cannot be zero")
	}
	if err := s.productRepo.AdjustStock(ctx, productID, delta); err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	// the row was changed in SQL; raise the event the domain would have
	product.AddDomainEvent(catalog.NewProductStockChangedEvent(product, product.Stock-delta))
	s.publishEvents(ctx, product)

	s.logger.Info("Product stock adjusted",
		zap.String("product_id", product.ID.String()),
		zap.Int("delta", delta),
		zap.Int("stock", product.Stock))

	return s.toResponse(ctx, product), nil
}

// Delete removes a product that was never ordered. Ordered products must
// be deactivated instead so that order lines keep their reference.
func (s *ProductService) Delete(ctx context.Context, productID uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	if s.orderLines != nil {
		count, err := s.orderLines.CountByProduct(ctx, productID)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.NewDomainError("PRODUCT_IN_USE",
				fmt.Sprintf("Product is referenced by %d order line(s); deactivate it instead", count))
		}
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return err
	}

	if product.ImageKey != "" && s.objects != nil {
		if err := s.objects.DeleteObject(ctx, product.ImageKey); err != nil {
			s.logger.Warn("Failed to delete product image",
				zap.String("key", product.ImageKey),
				zap.Error(err))
		}
	}
	return nil
}

// UploadImage stores a picture for the product and records its key
func (s *ProductService) UploadImage(ctx context.Context, productID uuid.UUID, filename string, data []byte) (*ProductResponse, error) {
	if s.objects == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Object storage is not configured")
	}
	if len(data) == 0 {
		return nil, shared.NewDomainError("INVALID_IMAGE", "Image is empty")
	}
	if len(data) > MaxImageSize {
		return nil, shared.NewDomainError("IMAGE_TOO_LARGE", "Image exceeds 5 MB")
	}
	contentType := http.DetectContentType(data)
	if !allowedImageTypes[contentType] {
		return nil, shared.NewDomainError("INVALID_IMAGE", "Unsupported image type "+contentType)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	key := storage.ProductImageKey(product.ID.String(), filename)
	if err := s.objects.Upload(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload product image: %w", err)
	}

	previous := product.ImageKey
	product.SetImage(key)
	if err := s.productRepo.Save(ctx, product); err != nil {
		if key != previous {
			if derr := s.objects.DeleteObject(ctx, key); derr != nil {
				s.logger.Warn("Failed to delete unsaved product image", zap.String("key", key), zap.Error(derr))
			}
		}
		return nil, err
	}

	if previous != "" && previous != key {
		if err := s.objects.DeleteObject(ctx, previous); err != nil {
			s.logger.Warn("Failed to delete replaced product image",
				zap.String("key", previous),
				zap.Error(err))
		}
	}

	return s.toResponse(ctx, product), nil
}

func (s *ProductService) mutate(ctx context.Context, productID uuid.UUID, fn func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := fn(product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, product)
	return s.toResponse(ctx, product), nil
}

func (s *ProductService) checkCategory(ctx context.Context, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return err
	}
	return nil
}

func (s *ProductService) toResponse(ctx context.Context, product *catalog.Product) *ProductResponse {
	response := ToProductResponse(product)
	response.ImageURL = s.imageURL(ctx, product.ImageKey)
	return &response
}

func (s *ProductService) imageURL(ctx context.Context, key string) string {
	if key == "" || s.objects == nil {
		return ""
	}
	url, _, err := s.objects.GenerateDownloadURL(ctx, key, s.imageURLTTL)
	if err != nil {
		s.logger.Debug("Failed to sign product image URL", zap.String("key", key), zap.Error(err))
		return ""
	}
	return url
}

// publishEvents publishes domain events from the aggregate
func (s *ProductService) publishEvents(ctx context.Context, product *catalog.Product) {
	if s.eventPublisher == nil {
		product.ClearDomainEvents()
		return
	}
	if events := product.GetDomainEvents(); len(events) > 0 {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish product events", zap.Error(err))
		}
	}
	product.ClearDomainEvents()
}

// listFilter builds a domain filter with defaults applied
func listFilter(page, pageSize int, orderBy, orderDir, search, defaultOrder, defaultDir string) shared.Filter {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if orderBy == "" {
		orderBy = defaultOrder
	}
	if orderDir == "" {
		orderDir = defaultDir
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  orderBy,
		OrderDir: orderDir,
		Search:   strings.TrimSpace(search),
		Filters:  make(map[string]any),
	}
}
