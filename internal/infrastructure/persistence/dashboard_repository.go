package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/disi/commandes/internal/domain/dashboard"
	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/infrastructure/persistence/models"
)

// GormDashboardRepository implements dashboard.Repository. Queries stick to
// SQL understood by postgres, mysql and sqlite; date bucketing happens in Go.
type GormDashboardRepository struct {
	db *gorm.DB
}

func NewGormDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

func (r *GormDashboardRepository) GetOrderStats(ctx context.Context) (*dashboard.OrderStats, error) {
	var row struct {
		Total           int64
		Pending         int64
		Approved        int64
		Rejected        int64
		Delivered       int64
		TotalAmount     decimal.Decimal
		DeliveredAmount decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS rejected,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS delivered,
			COALESCE(SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END), 0) AS total_amount,
			COALESCE(SUM(CASE WHEN status = ? THEN total_amount ELSE 0 END), 0) AS delivered_amount`,
			ordering.OrderStatusPending,
			ordering.OrderStatusApproved,
			ordering.OrderStatusRejected,
			ordering.OrderStatusDelivered,
			ordering.OrderStatusRejected,
			ordering.OrderStatusDelivered,
		).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &dashboard.OrderStats{
		Total:           row.Total,
		Pending:         row.Pending,
		Approved:        row.Approved,
		Rejected:        row.Rejected,
		Delivered:       row.Delivered,
		TotalAmount:     row.TotalAmount,
		DeliveredAmount: row.DeliveredAmount,
	}, nil
}

func (r *GormDashboardRepository) CountDeliveredBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("status = ? AND delivered_at >= ? AND delivered_at < ?", ordering.OrderStatusDelivered, from.UTC(), to.UTC()).
		Count(&n).Error
	return n, err
}

// DeliveredByAdministration joins orders to their requester. Orders whose
// requester no longer exists land in the empty label.
func (r *GormDashboardRepository) DeliveredByAdministration(ctx context.Context) ([]dashboard.LabelValue, error) {
	var rows []dashboard.LabelValue
	err := r.db.WithContext(ctx).Table("orders").
		Select("COALESCE(users.administration, '') AS label, COUNT(orders.id) AS value").
		Joins("LEFT JOIN users ON users.id = orders.user_id").
		Where("orders.status = ?", ordering.OrderStatusDelivered).
		Group("COALESCE(users.administration, '')").
		Scan(&rows).Error
	return rows, err
}

func (r *GormDashboardRepository) GetProductStats(ctx context.Context, lowStockThreshold int) (*dashboard.ProductStats, error) {
	var row struct {
		Total      int64
		Active     int64
		OutOfStock int64
		LowStock   int64
	}
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN active = ? THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN stock <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock,
			COALESCE(SUM(CASE WHEN stock > 0 AND stock <= ? THEN 1 ELSE 0 END), 0) AS low_stock`,
			true, lowStockThreshold,
		).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	var categories int64
	if err := r.db.WithContext(ctx).Model(&models.CategoryModel{}).Count(&categories).Error; err != nil {
		return nil, err
	}

	return &dashboard.ProductStats{
		Total:      row.Total,
		Active:     row.Active,
		OutOfStock: row.OutOfStock,
		LowStock:   row.LowStock,
		Categories: categories,
	}, nil
}

func (r *GormDashboardRepository) TopProducts(ctx context.Context, limit int) ([]dashboard.LabelValue, error) {
	var rows []dashboard.LabelValue
	err := r.db.WithContext(ctx).Table("order_items").
		Select("order_items.product_name AS label, SUM(order_items.quantity) AS value").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", ordering.OrderStatusRejected).
		Group("order_items.product_id, order_items.product_name").
		Order("value DESC, label ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormDashboardRepository) GetUserStats(ctx context.Context) (*dashboard.UserStats, error) {
	var row struct {
		Total    int64
		Approved int64
		Admins   int64
	}
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN approved = ? OR is_admin = ? THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN is_admin = ? THEN 1 ELSE 0 END), 0) AS admins`,
			true, true, true,
		).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &dashboard.UserStats{
		Total:    row.Total,
		Approved: row.Approved,
		Pending:  row.Total - row.Approved,
		Admins:   row.Admins,
	}, nil
}

// UsersByAdministration counts requesters per Direction; administrators
// are not requesters and are left out
func (r *GormDashboardRepository) UsersByAdministration(ctx context.Context) ([]dashboard.LabelValue, error) {
	var rows []dashboard.LabelValue
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Select("administration AS label, COUNT(*) AS value").
		Where("is_admin = ?", false).
		Group("administration").
		Scan(&rows).Error
	return rows, err
}

func (r *GormDashboardRepository) OrderActivitySince(ctx context.Context, since time.Time) ([]dashboard.OrderActivity, error) {
	var rows []struct {
		CreatedAt   time.Time
		RejectedAt  *time.Time
		DeliveredAt *time.Time
	}
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("created_at, rejected_at, delivered_at").
		Where("created_at >= ? OR rejected_at >= ? OR delivered_at >= ?", since.UTC(), since.UTC(), since.UTC()).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]dashboard.OrderActivity, len(rows))
	for i, row := range rows {
		out[i] = dashboard.OrderActivity{
			CreatedAt:   row.CreatedAt,
			RejectedAt:  row.RejectedAt,
			DeliveredAt: row.DeliveredAt,
		}
	}
	return out, nil
}

func (r *GormDashboardRepository) UserDeliveries(ctx context.Context) ([]dashboard.UserDelivery, error) {
	// items are summed in a subquery so the join does not multiply orders
	items := r.db.Table("order_items").
		Select("order_id, SUM(quantity) AS qty").
		Group("order_id")

	var rows []struct {
		UserID          uuid.UUID
		Name            string
		Administration  string
		DeliveredOrders int64
		DeliveredItems  int64
		DeliveredAmount decimal.Decimal
	}
	err := r.db.WithContext(ctx).Table("orders").
		Select(`orders.user_id AS user_id,
			COALESCE(users.name, '') AS name,
			COALESCE(users.administration, '') AS administration,
			COUNT(orders.id) AS delivered_orders,
			COALESCE(SUM(items.qty), 0) AS delivered_items,
			COALESCE(SUM(orders.total_amount), 0) AS delivered_amount`).
		Joins("LEFT JOIN users ON users.id = orders.user_id").
		Joins("LEFT JOIN (?) AS items ON items.order_id = orders.id", items).
		Where("orders.status = ?", ordering.OrderStatusDelivered).
		Group("orders.user_id, users.name, users.administration").
		Order("delivered_orders DESC, delivered_amount DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]dashboard.UserDelivery, len(rows))
	for i, row := range rows {
		out[i] = dashboard.UserDelivery{
			UserID:          row.UserID,
			Name:            row.Name,
			Administration:  row.Administration,
			DeliveredOrders: row.DeliveredOrders,
			DeliveredItems:  row.DeliveredItems,
			DeliveredAmount: row.DeliveredAmount,
		}
	}
	return out, nil
}

var _ dashboard.Repository = (*GormDashboardRepository)(nil)
