package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/disi/commandes/internal/domain/ordering"
	"github.com/disi/commandes/internal/domain/shared"
)

// MetricsConfig holds metric export configuration
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration
	ServiceName       string
	Insecure          bool
}

// MeterProvider wraps the SDK meter provider with lifecycle management
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider configures periodic OTLP/gRPC metric export. When
// disabled, Meter falls back to the global (no-op) provider.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	interval := cfg.ExportInterval
	if interval == 0 {
		interval = 60 * time.Second
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", interval),
	)
	return mp, nil
}

// Meter returns a named meter
func (mp *MeterProvider) Meter(name string) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return mp.provider.Meter(name)
}

// Shutdown flushes pending metrics
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// Attribute keys shared by the application metrics
var (
	AttrOrderStatus = attribute.Key("order.status")
	AttrCache       = attribute.Key("cache.name")
	AttrCacheResult = attribute.Key("cache.result")
	AttrOutcome     = attribute.Key("outcome")
)

// RenderDurationBuckets are histogram boundaries (seconds) for PDF rendering
var RenderDurationBuckets = []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30}

// AppMetrics records ordering activity, dashboard cache efficiency and
// invoice rendering latency.
type AppMetrics struct {
	ordersPlaced      metric.Int64Counter
	orderAmount       metric.Float64Counter
	orderTransitions  metric.Int64Counter
	cacheRequests     metric.Int64Counter
	invoiceRenderTime metric.Float64Histogram
}

// NewAppMetrics creates the instruments on meter
func NewAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	if meter == nil {
		return nil, errors.New("telemetry: meter is nil")
	}
	var (
		m   AppMetrics
		err error
	)
	if m.ordersPlaced, err = meter.Int64Counter("disi_orders_placed_total",
		metric.WithDescription("Orders placed by requesters"), metric.WithUnit("{orders}")); err != nil {
		return nil, err
	}
	if m.orderAmount, err = meter.Float64Counter("disi_orders_amount_total",
		metric.WithDescription("Total amount of placed orders")); err != nil {
		return nil, err
	}
	if m.orderTransitions, err = meter.Int64Counter("disi_order_transitions_total",
		metric.WithDescription("Order workflow transitions by target status"), metric.WithUnit("{transitions}")); err != nil {
		return nil, err
	}
	if m.cacheRequests, err = meter.Int64Counter("disi_cache_requests_total",
		metric.WithDescription("Dashboard cache lookups by result"), metric.WithUnit("{requests}")); err != nil {
		return nil, err
	}
	if m.invoiceRenderTime, err = meter.Float64Histogram("disi_invoice_render_duration_seconds",
		metric.WithDescription("Invoice PDF rendering duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(RenderDurationBuckets...)); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordCacheResult counts a cache hit or miss
func (m *AppMetrics) RecordCacheResult(ctx context.Context, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.Add(ctx, 1, metric.WithAttributes(AttrCache.String(cache), AttrCacheResult.String(result)))
}

// RecordInvoiceRender observes one rendering
func (m *AppMetrics) RecordInvoiceRender(ctx context.Context, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.invoiceRenderTime.Record(ctx, d.Seconds(), metric.WithAttributes(AttrOutcome.String(outcome)))
}

// Handle implements shared.EventHandler so the bus feeds order counters
func (m *AppMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ordering.OrderCreatedEvent:
		m.ordersPlaced.Add(ctx, 1)
		m.orderAmount.Add(ctx, e.TotalAmount.InexactFloat64())
		m.orderTransitions.Add(ctx, 1, metric.WithAttributes(AttrOrderStatus.String(string(ordering.OrderStatusPending))))
	case *ordering.OrderApprovedEvent:
		m.orderTransitions.Add(ctx, 1, metric.WithAttributes(AttrOrderStatus.String(string(ordering.OrderStatusApproved))))
	case *ordering.OrderRejectedEvent:
		m.orderTransitions.Add(ctx, 1, metric.WithAttributes(AttrOrderStatus.String(string(ordering.OrderStatusRejected))))
	case *ordering.OrderDeliveredEvent:
		m.orderTransitions.Add(ctx, 1, metric.WithAttributes(AttrOrderStatus.String(string(ordering.OrderStatusDelivered))))
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (m *AppMetrics) EventTypes() []string {
	return ordering.OrderEventTypes
}
