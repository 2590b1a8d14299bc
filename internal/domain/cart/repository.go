package cart

import (
	"context"

	"github.com/google/uuid"
)

// Store persists carts between requests
type Store interface {
	// Get returns the user's cart, or an empty cart if none is stored
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}
