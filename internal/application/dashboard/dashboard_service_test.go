package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disi/commandes/internal/domain/dashboard"
	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/domain/shared"
	"github.com/disi/commandes/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	builds       atomic.Int32
	failOrders   error
	deliveries   []dashboard.UserDelivery
	deliveredArg []time.Time
	mu           sync.Mutex

	// when set, GetOrderStats signals entered and waits on release
	entered chan struct{}
	release chan struct{}
}

func (r *fakeRepository) GetOrderStats(context.Context) (*dashboard.OrderStats, error) {
	r.builds.Add(1)
	if r.entered != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	if r.failOrders != nil {
		return nil, r.failOrders
	}
	return &dashboard.OrderStats{
		Total: 12, Pending: 3, Approved: 2, Rejected: 1, Delivered: 6,
		TotalAmount:     decimal.NewFromInt(1250000),
		DeliveredAmount: decimal.NewFromInt(800000),
	}, nil
}

func (r *fakeRepository) CountDeliveredBetween(_ context.Context, from, _ time.Time) (int64, error) {
	r.mu.Lock()
	r.deliveredArg = append(r.deliveredArg, from)
	r.mu.Unlock()
	if from.Month() == time.March {
		return 4, nil
	}
	return 2, nil
}

func (r *fakeRepository) DeliveredByAdministration(context.Context) ([]dashboard.LabelValue, error) {
	return []dashboard.LabelValue{
		{Label: "Direction du Budget", Value: 2},
		{Label: "direction du budget ", Value: 1},
		{Label: "", Value: 1},
		{Label: "DSI", Value: 2},
	}, nil
}

func (r *fakeRepository) GetProductStats(_ context.Context, threshold int) (*dashboard.ProductStats, error) {
	return &dashboard.ProductStats{Total: 20, Active: 18, OutOfStock: 2, LowStock: int64(threshold), Categories: 4}, nil
}

func (r *fakeRepository) TopProducts(context.Context, int) ([]dashboard.LabelValue, error) {
	return nil, nil
}

func (r *fakeRepository) GetUserStats(context.Context) (*dashboard.UserStats, error) {
	return &dashboard.UserStats{Total: 9, Approved: 7, Pending: 2, Admins: 1}, nil
}

func (r *fakeRepository) UsersByAdministration(context.Context) ([]dashboard.LabelValue, error) {
	return []dashboard.LabelValue{{Label: "DSI", Value: 4}, {Label: "Direction du Budget", Value: 4}}, nil
}

func (r *fakeRepository) OrderActivitySince(_ context.Context, since time.Time) ([]dashboard.OrderActivity, error) {
	delivered := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return []dashboard.OrderActivity{
		{CreatedAt: since.Add(time.Hour)},
		{CreatedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), DeliveredAt: &delivered},
	}, nil
}

func (r *fakeRepository) UserDeliveries(context.Context) ([]dashboard.UserDelivery, error) {
	return r.deliveries, nil
}

type recordingMetrics struct {
	mu      sync.Mutex
	results []bool
}

func (m *recordingMetrics) RecordCacheResult(_ context.Context, _ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, hit)
}

func newTestService(t *testing.T, repo *fakeRepository) (*Service, *cache.MemoryCache, *recordingMetrics) {
	t.Helper()
	mem := cache.NewMemoryCache(time.Hour)
	t.Cleanup(func() { _ = mem.Close() })
	metrics := &recordingMetrics{}
	svc := NewService(repo, mem, metrics, Options{TrendMonths: 3}, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return svc, mem, metrics
}

func TestService_Data(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{}
	svc, _, metrics := newTestService(t, repo)

	data, err := svc.Data(ctx, false)

	require.NoError(t, err)
	assert.False(t, data.Cached)
	assert.Equal(t, int64(12), data.OrderStats.Total)
	assert.Equal(t, int64(6), data.DeliveryStats.DeliveredTotal)
	assert.Equal(t, int64(4), data.DeliveryStats.DeliveredThisMonth)
	assert.Equal(t, int64(2), data.DeliveryStats.DeliveredLastMonth)
	assert.Equal(t, []dashboard.LabelValue{
		{Label: "Direction du Budget", Value: 3},
		{Label: "DSI", Value: 2},
		{Label: dashboard.UnspecifiedLabel, Value: 1},
	}, data.DeliveryStats.ByAdministration)
	assert.Equal(t, int64(5), data.ProductStats.LowStock)
	assert.NotNil(t, data.ProductStats.TopProducts)
	assert.Len(t, data.UserStats.ByAdministration, 2)
	assert.Equal(t, []string{"2026-01", "2026-02", "2026-03"}, data.Trends.Labels)
	assert.Equal(t, []int64{1, 0, 1}, data.Trends.Orders)
	assert.Equal(t, []int64{0, 0, 1}, data.Trends.Delivered)
	assert.Equal(t, []bool{false}, metrics.results)
}

func TestService_DataIsCached(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{}
	svc, _, metrics := newTestService(t, repo)

	first, err := svc.Data(ctx, false)
	require.NoError(t, err)
	second, err := svc.Data(ctx, false)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.True(t, first.GeneratedAt.Equal(second.GeneratedAt))
	assert.True(t, first.OrderStats.TotalAmount.Equal(second.OrderStats.TotalAmount))
	assert.Equal(t, int32(1), repo.builds.Load())
	assert.Equal(t, []bool{false, true}, metrics.results)

	refreshed, err := svc.Data(ctx, true)
	require.NoError(t, err)
	assert.False(t, refreshed.Cached)
	assert.Equal(t, int32(2), repo.builds.Load())
}

func TestService_DataError(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{failOrders: errors.New("connection refused")}
	svc, mem, _ := newTestService(t, repo)

	_, err := svc.Data(ctx, false)

	require.Error(t, err)
	assert.Equal(t, 0, mem.Len())
}

func TestService_UserDeliveries(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{deliveries: []dashboard.UserDelivery{
		{UserID: uuid.New(), Name: "Awa Sow", Administration: " DSI ", DeliveredOrders: 4, DeliveredItems: 9, DeliveredAmount: decimal.NewFromInt(450000)},
		{UserID: uuid.New(), Name: "Moussa Ba", Administration: "", DeliveredOrders: 1, DeliveredItems: 1, DeliveredAmount: decimal.NewFromInt(7500)},
	}}
	svc, _, _ := newTestService(t, repo)

	result, err := svc.UserDeliveries(ctx, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"Awa Sow", "Moussa Ba"}, result.Labels)
	assert.Equal(t, []int64{4, 1}, result.Values)
	assert.Equal(t, "DSI", result.Users[0].Administration)
	assert.Equal(t, dashboard.UnspecifiedLabel, result.Users[1].Administration)

	cached, err := svc.UserDeliveries(ctx, false)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Len(t, cached.Users, 2)
}

func TestService_UserDeliveriesEmpty(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeRepository{})

	result, err := svc.UserDeliveries(context.Background(), false)

	require.NoError(t, err)
	assert.NotNil(t, result.Users)
	assert.Empty(t, result.Labels)
}

func TestService_Clear(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newTestService(t, &fakeRepository{})
	require.NoError(t, mem.Set(ctx, "cart:someone", []byte("{}"), time.Hour))

	_, err := svc.Data(ctx, false)
	require.NoError(t, err)
	_, err = svc.UserDeliveries(ctx, false)
	require.NoError(t, err)

	n, err := svc.Clear(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, mem.Len())
}

func TestInvalidationHandler(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{}
	svc, _, _ := newTestService(t, repo)
	handler := NewInvalidationHandler(svc, nil)

	assert.Contains(t, handler.EventTypes(), ordering.EventTypeOrderApproved)

	_, err := svc.Data(ctx, false)
	require.NoError(t, err)

	event := shared.NewBaseDomainEvent(ordering.EventTypeOrderApproved, ordering.AggregateTypeOrder, uuid.New())
	require.NoError(t, handler.Handle(ctx, &event))

	data, err := svc.Data(ctx, false)
	require.NoError(t, err)
	assert.False(t, data.Cached)
	assert.Equal(t, int32(2), repo.builds.Load())
}

func TestService_ClearDuringRebuild(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{entered: make(chan struct{}), release: make(chan struct{})}
	svc, mem, _ := newTestService(t, repo)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Data(ctx, false)
		done <- err
	}()

	<-repo.entered
	_, err := svc.Clear(ctx)
	require.NoError(t, err)
	close(repo.release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, mem.Len())
	_, err = mem.Get(ctx, "dashboard:"+KeyData)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	repo.entered = nil
	data, err := svc.Data(ctx, false)
	require.NoError(t, err)
	assert.False(t, data.Cached)
	assert.Equal(t, 1, mem.Len())
}
