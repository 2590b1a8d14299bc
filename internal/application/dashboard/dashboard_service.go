package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/disi/commandes/internal/domain/dashboard"
	"github.com/disi/commandes/internal/infrastructure/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache key suffixes, appended to the configured prefix
const (
	KeyData           = "data"
	KeyUserDeliveries = "user-deliveries"
)

// CacheRecorder observes cache efficiency
type CacheRecorder interface {
	RecordCacheResult(ctx context.Context, cache string, hit bool)
}

// Options tunes aggregation and caching
type Options struct {
	CacheTTL          time.Duration
	CachePrefix       string
	LowStockThreshold int
	TrendMonths       int
	TopProducts       int
}

// DefaultOptions returns the settings used when configuration is silent
func DefaultOptions() Options {
	return Options{
		CacheTTL:          5 * time.Minute,
		CachePrefix:       "dashboard:",
		LowStockThreshold: 5,
		TrendMonths:       12,
		TopProducts:       10,
	}
}

// Service builds the administration dashboard. Every chart reads from one
// Data document, cached as a whole.
type Service struct {
	repo    dashboard.Repository
	cache   cache.Cache
	metrics CacheRecorder
	opts    Options
	logger  *zap.Logger
	now     func() time.Time

	// bumped by Clear; a build started under an older value is not cached
	generation atomic.Uint64
}

// NewService creates a new dashboard Service. metrics may be nil.
func NewService(repo dashboard.Repository, c cache.Cache, metrics CacheRecorder, opts Options, logger *zap.Logger) *Service {
	def := DefaultOptions()
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = def.CacheTTL
	}
	if opts.CachePrefix == "" {
		opts.CachePrefix = def.CachePrefix
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = def.LowStockThreshold
	}
	if opts.TrendMonths <= 0 {
		opts.TrendMonths = def.TrendMonths
	}
	if opts.TopProducts <= 0 {
		opts.TopProducts = def.TopProducts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		cache:   c,
		metrics: metrics,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// Data returns the dashboard document. refresh skips the cached copy and
// rewrites it.
func (s *Service) Data(ctx context.Context, refresh bool) (*dashboard.Data, error) {
	key := s.opts.CachePrefix + KeyData
	if !refresh {
		var cached dashboard.Data
		if s.lookup(ctx, key, &cached) {
			cached.Cached = true
			return &cached, nil
		}
	}

	gen := s.generation.Load()
	data, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, data, gen)
	return data, nil
}

// UserDeliveries returns delivered orders per requester
func (s *Service) UserDeliveries(ctx context.Context, refresh bool) (*dashboard.UserDeliveries, error) {
	key := s.opts.CachePrefix + KeyUserDeliveries
	if !refresh {
		var cached dashboard.UserDeliveries
		if s.lookup(ctx, key, &cached) {
			cached.Cached = true
			return &cached, nil
		}
	}

	gen := s.generation.Load()
	users, err := s.repo.UserDeliveries(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []dashboard.UserDelivery{}
	}
	for i := range users {
		users[i].Administration = normalizeLabel(users[i].Administration)
	}
	labels, values := dashboard.SplitSeries(users)
	result := &dashboard.UserDeliveries{
		Users:       users,
		Labels:      labels,
		Values:      values,
		GeneratedAt: s.now().UTC(),
	}
	s.store(ctx, key, result, gen)
	return result, nil
}

// Clear drops every dashboard entry and returns how many were removed
func (s *Service) Clear(ctx context.Context) (int64, error) {
	s.generation.Add(1)
	n, err := s.cache.DeletePrefix(ctx, s.opts.CachePrefix)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Dashboard cache cleared", zap.Int64("keys", n))
	return n, nil
}

func (s *Service) build(ctx context.Context) (*dashboard.Data, error) {
	now := s.now().UTC()
	var (
		data      dashboard.Data
		orders    *dashboard.OrderStats
		products  *dashboard.ProductStats
		users     *dashboard.UserStats
		top       []dashboard.LabelValue
		delivered []dashboard.LabelValue
		byAdmin   []dashboard.LabelValue
		activity  []dashboard.OrderActivity
		thisMonth int64
		lastMonth int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { orders, err = s.repo.GetOrderStats(gctx); return })
	g.Go(func() (err error) {
		products, err = s.repo.GetProductStats(gctx, s.opts.LowStockThreshold)
		return
	})
	g.Go(func() (err error) { top, err = s.repo.TopProducts(gctx, s.opts.TopProducts); return })
	g.Go(func() (err error) { users, err = s.repo.GetUserStats(gctx); return })
	g.Go(func() (err error) { byAdmin, err = s.repo.UsersByAdministration(gctx); return })
	g.Go(func() (err error) { delivered, err = s.repo.DeliveredByAdministration(gctx); return })
	g.Go(func() (err error) {
		from, to := dashboard.MonthBounds(now, 0)
		thisMonth, err = s.repo.CountDeliveredBetween(gctx, from, to)
		return
	})
	g.Go(func() (err error) {
		from, to := dashboard.MonthBounds(now, -1)
		lastMonth, err = s.repo.CountDeliveredBetween(gctx, from, to)
		return
	})
	g.Go(func() (err error) {
		activity, err = s.repo.OrderActivitySince(gctx, dashboard.TrendStart(now, s.opts.TrendMonths))
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.OrderStats = *orders
	data.ProductStats = *products
	data.ProductStats.TopProducts = nonNil(top)
	data.UserStats = *users
	data.UserStats.ByAdministration = dashboard.GroupLabels(byAdmin)
	data.DeliveryStats = dashboard.DeliveryStats{
		DeliveredTotal:     orders.Delivered,
		DeliveredThisMonth: thisMonth,
		DeliveredLastMonth: lastMonth,
		ByAdministration:   dashboard.GroupLabels(delivered),
	}
	data.Trends = dashboard.BuildTrends(now, s.opts.TrendMonths, activity)
	data.GeneratedAt = now

	s.logger.Debug("Dashboard data rebuilt",
		zap.Int64("orders", orders.Total),
		zap.Int("directions", len(data.DeliveryStats.ByAdministration)))
	return &data, nil
}

// lookup decodes a cached document into dst. Any cache failure counts as a
// miss.
func (s *Service) lookup(ctx context.Context, key string, dst any) bool {
	raw, err := s.cache.Get(ctx, key)
	hit := err == nil
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		if err := json.Unmarshal(raw, dst); err != nil {
			s.logger.Warn("Dropping unreadable dashboard cache entry", zap.String("key", key), zap.Error(err))
			hit = false
		}
	}
	if s.metrics != nil {
		s.metrics.RecordCacheResult(ctx, key, hit)
	}
	return hit
}

// store caches v unless Clear ran after gen was read. The generation is
// checked again after the write so a Clear racing the Set cannot leave the
// stale document behind.
func (s *Service) store(ctx context.Context, key string, v any, gen uint64) {
	if s.generation.Load() != gen {
		s.logger.Debug("Skipping dashboard cache write after invalidation", zap.String("key", key))
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("Failed to encode dashboard document", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.opts.CacheTTL); err != nil {
		s.logger.Warn("Dashboard cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if s.generation.Load() != gen {
		if _, err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to drop stale dashboard entry", zap.String("key", key), zap.Error(err))
		}
	}
}

func normalizeLabel(label string) string {
	grouped := dashboard.GroupLabels([]dashboard.LabelValue{{Label: label}})
	return grouped[0].Label
}

func nonNil(rows []dashboard.LabelValue) []dashboard.LabelValue {
	if rows == nil {
		return []dashboard.LabelValue{}
	}
	return rows
}
