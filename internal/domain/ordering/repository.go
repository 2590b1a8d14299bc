package ordering

import (
	"context"
	"time"

	"github.com/disi/commandes/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	shared.Filter
	Status         *OrderStatus
	UserID         *uuid.UUID
	Administration string
	From           *time.Time
	To             *time.Time
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID loads an order with its items and history
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	FindHistory(ctx context.Context, orderID uuid.UUID) ([]OrderHistory, error)

	// Save inserts a new order with its items and history
	Save(ctx context.Context, order *Order) error

	// SaveWithLock updates an existing order, failing with
	// CONCURRENT_MODIFICATION when the stored version moved, and appends the
	// order's pending history entries
	SaveWithLock(ctx context.Context, order *Order) error

	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// NextOrderNumber returns the next free CMD-YYYYMMDD-NNNN number for day
	NextOrderNumber(ctx context.Context, day time.Time) (string, error)
}
