package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/disi/commandes/internal/domain/cart"
)

// DefaultCartTTL keeps idle carts for a month
const DefaultCartTTL = 30 * 24 * time.Hour

const cartKeyPrefix = "cart:"

// CartStore implements cart.Store as JSON documents in a Cache. Every save
// refreshes the TTL.
type CartStore struct {
	cache Cache
	ttl   time.Duration
}

// NewCartStore creates a cart store on top of c
func NewCartStore(c Cache, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartStore{cache: c, ttl: ttl}
}

func cartKey(userID uuid.UUID) string {
	return cartKeyPrefix + userID.String()
}

func (s *CartStore) Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	raw, err := s.cache.Get(ctx, cartKey(userID))
	if errors.Is(err, ErrCacheMiss) {
		return cart.New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var c cart.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		// an unreadable cart is dropped rather than blocking the user
		return cart.New(userID), nil
	}
	c.UserID = userID
	if c.Lines == nil {
		c.Lines = make([]cart.Line, 0)
	}
	return &c, nil
}

func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	if c.IsEmpty() {
		return s.Delete(ctx, c.UserID)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.cache.Set(ctx, cartKey(c.UserID), raw, s.ttl); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *CartStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.cache.Delete(ctx, cartKey(userID)); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

var _ cart.Store = (*CartStore)(nil)
