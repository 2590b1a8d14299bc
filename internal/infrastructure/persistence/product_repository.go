package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/disi/commandes/internal/domain/catalog"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/persistence/models"
)

// GormProductRepository implements catalog.ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var m models.ProductModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByIDs returns the products found; missing ids are skipped
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

func (r *GormProductRepository) FindByReference(ctx context.Context, reference string) (*catalog.Product, error) {
	var m models.ProductModel
	err := r.db.WithContext(ctx).
		Where("reference = ?", strings.ToUpper(strings.TrimSpace(reference))).
		First(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ProductModel{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(reference) LIKE ? OR LOWER(description) LIKE ?", p, p, p)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	} else if active, ok := filter.Filters["active"].(bool); ok {
		q = q.Where("active = ?", active)
	}
	if filter.InStock {
		q = q.Where("stock > 0")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, ProductSortFields, "name")
	dir := ValidateSortOrder(filter.OrderDir)
	if filter.OrderBy == "" {
		dir = "ASC"
	}
	q = q.Order(orderBy + " " + dir)
	if filter.PageSize > 0 {
		q = q.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.ProductModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toProducts(rows), total, nil
}

func (r *GormProductRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("reference = ?", strings.ToUpper(strings.TrimSpace(reference))).
		Count(&n).Error
	return n > 0, err
}

func (r *GormProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("category_id = ?", categoryID).
		Count(&n).Error
	return n, err
}

// Save inserts a new product or updates a loaded one. The update fails with
// CONCURRENT_MODIFICATION when the row moved on since the load, stock
// adjustments included.
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	m := models.ProductModelFromDomain(p)
	return saveVersioned(ctx, r.db, &models.ProductModel{}, m, &p.BaseAggregateRoot, map[string]any{
		"reference":   m.Reference,
		"name":        m.Name,
		"description": m.Description,
		"category_id": m.CategoryID,
		"price":       m.Price,
		"stock":       m.Stock,
		"image_key":   m.ImageKey,
		"active":      m.Active,
	})
}

// AdjustStock applies delta in a single conditional UPDATE so concurrent
// approvals can never drive stock negative
func (r *GormProductRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	q := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("stock >= ?", -delta)
	}
	res := q.Updates(map[string]any{
		"stock":      gorm.Expr("stock + ?", delta),
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// no row: either the product is gone or stock was too low
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return shared.ErrInsufficientStock
}

func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.ProductModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toProducts(rows []models.ProductModel) []catalog.Product {
	out := make([]catalog.Product, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
