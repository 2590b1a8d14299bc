package dashboard

import (
	"context"
	"time"
)

// Repository runs the aggregation queries behind the dashboard
type Repository interface {
	GetOrderStats(ctx context.Context) (*OrderStats, error)
	CountDeliveredBetween(ctx context.Context, from, to time.Time) (int64, error)

	// DeliveredByAdministration counts delivered orders per requester
	// Direction, as stored (not yet normalized)
	DeliveredByAdministration(ctx context.Context) ([]LabelValue, error)

	GetProductStats(ctx context.Context, lowStockThreshold int) (*ProductStats, error)

	// TopProducts ranks products by units requested in non-rejected orders
	TopProducts(ctx context.Context, limit int) ([]LabelValue, error)

	GetUserStats(ctx context.Context) (*UserStats, error)
	UsersByAdministration(ctx context.Context) ([]LabelValue, error)

	OrderActivitySince(ctx context.Context, since time.Time) ([]OrderActivity, error)

	// UserDeliveries lists requesters with at least one delivered order
	UserDeliveries(ctx context.Context) ([]UserDelivery, error)
}
