package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/disi/commandes/internal/infrastructure/config"
)

// Stores groups the cache-backed components of the service
type Stores struct {
	// Client is nil when the in-memory backend is in use
	Client       *redis.Client
	Cache        Cache
	Carts        *CartStore
	LoginLimiter Limiter

	memory *MemoryCache
}

// Distributed reports whether state is shared through redis
func (s *Stores) Distributed() bool {
	return s.Client != nil
}

// Close releases the redis client or stops the memory sweeper
func (s *Stores) Close() error {
	if s.memory != nil {
		_ = s.memory.Close()
	}
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}

// FactoryOption configures Open
type FactoryOption func(*factory)

type factory struct {
	logger        *zap.Logger
	allowFallback bool
	cartTTL       time.Duration
	loginLimit    int
	loginWindow   time.Duration
}

// WithLogger sets the logger used to report the selected backend
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) { f.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable redis degrades to
// process-local stores. Default true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) { f.allowFallback = allow }
}

// WithCartTTL overrides DefaultCartTTL
func WithCartTTL(ttl time.Duration) FactoryOption {
	return func(f *factory) { f.cartTTL = ttl }
}

// WithLoginLimit sets the login attempts allowed per window and client
func WithLoginLimit(limit int, window time.Duration) FactoryOption {
	return func(f *factory) {
		f.loginLimit = limit
		f.loginWindow = window
	}
}

// Open connects to redis when enabled and builds the stores on it,
// falling back to memory when allowed.
func Open(ctx context.Context, cfg config.RedisConfig, opts ...FactoryOption) (*Stores, error) {
	f := &factory{
		logger:        zap.NewNop(),
		allowFallback: true,
		cartTTL:       DefaultCartTTL,
		loginLimit:    5,
		loginWindow:   time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}

	if cfg.Enabled {
		client, err := NewRedisClient(ctx, cfg)
		if err == nil {
			f.logger.Info("Using Redis stores", zap.String("addr", cfg.Addr()))
			return f.redisStores(client), nil
		}
		if !f.allowFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Carts, dashboard cache and login limits are not shared between instances.",
			zap.Error(err),
		)
	} else {
		f.logger.Info("Redis disabled, using in-memory stores")
	}
	return f.memoryStores(), nil
}

// NewRedisStores builds the stores on an existing client
func NewRedisStores(client *redis.Client, opts ...FactoryOption) *Stores {
	f := &factory{cartTTL: DefaultCartTTL, loginLimit: 5, loginWindow: time.Minute}
	for _, opt := range opts {
		opt(f)
	}
	return f.redisStores(client)
}

func (f *factory) redisStores(client *redis.Client) *Stores {
	c := NewRedisCache(client)
	return &Stores{
		Client:       client,
		Cache:        c,
		Carts:        NewCartStore(c, f.cartTTL),
		LoginLimiter: NewRedisLimiter(client, "ratelimit:login:", f.loginLimit, f.loginWindow),
	}
}

func (f *factory) memoryStores() *Stores {
	m := NewMemoryCache(time.Minute)
	return &Stores{
		Cache:        m,
		Carts:        NewCartStore(m, f.cartTTL),
		LoginLimiter: NewMemoryLimiter(f.loginLimit, f.loginWindow),
		memory:       m,
	}
}
