package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements ordering.OrderRepository
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	var m models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindAll lists orders with their items; history is only loaded by FindByID
func (r *GormOrderRepository) FindAll(ctx context.Context, filter ordering.OrderFilter) ([]ordering.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.Search != "" {
		q = q.Where("LOWER(orders.number) LIKE ?", likePattern(filter.Search))
	}
	if filter.Status != nil {
		q = q.Where("orders.status = ?", *filter.Status)
	}
	if filter.UserID != nil {
		q = q.Where("orders.user_id = ?", *filter.UserID)
	}
	if filter.Administration != "" {
		q = q.Where("orders.user_id IN (?)",
			r.db.Model(&models.UserModel{}).
				Select("id").
				Where("LOWER(administration) = ?", strings.ToLower(strings.TrimSpace(filter.Administration))))
	}
	if filter.From != nil {
		q = q.Where("orders.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("orders.created_at < ?", filter.To.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("orders." + ValidateSortField(filter.OrderBy, OrderSortFields, "created_at") + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		q = q.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderModel
	if err := q.Preload("Items").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]ordering.Order, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

func (r *GormOrderRepository) FindHistory(ctx context.Context, orderID uuid.UUID) ([]ordering.OrderHistory, error) {
	var rows []models.OrderHistoryModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ordering.OrderHistory, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts a new order, its items and pending history in one transaction
func (r *GormOrderRepository) Save(ctx context.Context, order *ordering.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.OrderModelFromDomain(order)).Error; err != nil {
			return translateError(err)
		}
		return appendHistory(tx, order.PendingHistory())
	})
	if err != nil {
		return err
	}
	order.ClearPendingHistory()
	return nil
}

// SaveWithLock persists a status transition. Items are immutable once
// placed, so only the order row and new history entries are written.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *ordering.Order) error {
	expected := order.Version
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", order.ID, expected).
			Updates(map[string]any{
				"status":           order.Status,
				"notes":            order.Notes,
				"rejection_reason": order.RejectionReason,
				"approved_at":      utcPtr(order.ApprovedAt),
				"approved_by":      order.ApprovedBy,
				"rejected_at":      utcPtr(order.RejectedAt),
				"rejected_by":      order.RejectedBy,
				"delivered_at":     utcPtr(order.DeliveredAt),
				"delivered_by":     order.DeliveredBy,
				"version":          expected + 1,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.OrderModel{}).Where("id = ?", order.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return shared.ErrNotFound
			}
			return ErrConcurrentModification
		}
		return appendHistory(tx, order.PendingHistory())
	})
	if err != nil {
		return err
	}

	order.Version = expected + 1
	order.UpdatedAt = now
	order.ClearPendingHistory()
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func appendHistory(tx *gorm.DB, entries []ordering.OrderHistory) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.OrderHistoryModel, len(entries))
	for i, h := range entries {
		rows[i] = models.OrderHistoryModelFromDomain(h)
	}
	return tx.Create(&rows).Error
}

// CountByProduct counts orders that reference a product
func (r *GormOrderRepository) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OrderItemModel{}).
		Where("product_id = ?", productID).
		Distinct("order_id").
		Count(&n).Error
	return n, err
}

// CountByUser counts orders placed by a user
func (r *GormOrderRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// NextOrderNumber reads the highest number of the day and adds one. The
// sequence is zero padded to four digits only, so longer numbers sort first.
// The unique index on number rejects a concurrent duplicate; callers retry.
func (r *GormOrderRepository) NextOrderNumber(ctx context.Context, day time.Time) (string, error) {
	prefix := ordering.OrderNumberPrefix(day)

	var numbers []string
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("number LIKE ?", prefix+"%").
		Order("LENGTH(number) DESC").
		Order("number DESC").
		Limit(1).
		Pluck("number", &numbers).Error; err != nil {
		return "", err
	}
	seq := 1
	if len(numbers) > 0 {
		last := numbers[0]
		n, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("unexpected order number %q: %w", last, err)
		}
		seq = n + 1
	}
	return ordering.FormatOrderNumber(day, seq), nil
}

var _ ordering.OrderRepository = (*GormOrderRepository)(nil)
