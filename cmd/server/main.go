package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	cartapp "github.com/disi/commandes/internal/application/cart"
	catalogapp "github.com/disi/commandes/internal/application/catalog"
	dashboardapp "github.com/disi/commandes/internal/application/dashboard"
	identityapp "github.com/disi/commandes/internal/application/identity"
	invoiceapp "github.com/disi/commandes/internal/application/invoice"
	orderingapp "github.com/disi/commandes/internal/application/ordering"
	"github.com/disi/commandes/internal/infrastructure/auth"
	"github.com/disi/commandes/internal/infrastructure/cache"
	"github.com/disi/commandes/internal/infrastructure/config"
	"github.com/disi/commandes/internal/infrastructure/event"
	"github.com/disi/commandes/internal/infrastructure/logger"
	"github.com/disi/commandes/internal/infrastructure/migration"
	"github.com/disi/commandes/internal/infrastructure/persistence"
	"github.com/disi/commandes/internal/infrastructure/printing"
	"github.com/disi/commandes/internal/infrastructure/scheduler"
	"github.com/disi/commandes/internal/infrastructure/storage"
	"github.com/disi/commandes/internal/infrastructure/telemetry"
	"github.com/disi/commandes/internal/interfaces/http/handler"
	"github.com/disi/commandes/internal/interfaces/http/middleware"
	"github.com/disi/commandes/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const migrationsRoot = "migrations"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "disi-commandes: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// The OTLP log bridge needs a logger to report its own setup, so a
	// bootstrap logger is used until the final one exists.
	bootLog, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, otelCfg, bootLog)
	if err != nil {
		return fmt.Errorf("initialize log export: %w", err)
	}

	var logOpts []logger.Option
	if cfg.Telemetry.LogsEnabled && logProvider.IsEnabled() {
		logOpts = append(logOpts, logger.WithCore(logProvider.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))))
	}
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, logOpts...)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	defer shutdown(log, "log exporter", logProvider.Shutdown)

	log.Info("Starting DISI Commandes",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer shutdown(log, "tracer", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}
	defer shutdown(log, "meter", meterProvider.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		return fmt.Errorf("initialize profiler: %w", err)
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	var meter metric.Meter
	if cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled {
		meter = meterProvider.Meter(cfg.Telemetry.ServiceName)
	}

	// Database
	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// Redis backed stores, with in-memory fallback outside production
	stores, err := cache.Open(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
		cache.WithLoginLimit(cfg.HTTP.LoginRateLimitRequests, cfg.HTTP.LoginRateLimitWindow),
	)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = stores.Close() }()

	var revocations auth.Revocations = auth.NewMemoryRevocations()
	if stores.Distributed() {
		revocations = auth.NewRedisRevocations(stores.Client)
	}

	objects, err := openStorage(cfg, log)
	if err != nil {
		return err
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	dashboardRepo := persistence.NewGormDashboardRepository(db.DB)

	eventBus := event.NewInMemoryEventBus(log)

	var (
		cacheRecorder  dashboardapp.CacheRecorder
		renderRecorder invoiceapp.RenderRecorder
	)
	if meter != nil {
		appMetrics, err := telemetry.NewAppMetrics(meter)
		if err != nil {
			log.Warn("Application metrics unavailable", zap.Error(err))
		} else {
			cacheRecorder, renderRecorder = appMetrics, appMetrics
			eventBus.Subscribe(appMetrics)
		}
	}

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, revocations, eventBus, identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(userRepo, orderRepo, revocations, jwtService, eventBus, log)
	categoryService := catalogapp.NewCategoryService(categoryRepo, productRepo)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, orderRepo, objects, eventBus, log)
	orderService := orderingapp.NewOrderService(orderRepo, productRepo, userRepo, eventBus, log)
	cartService := cartapp.NewService(stores.Carts, productRepo, orderService, log)
	dashboardService := dashboardapp.NewService(dashboardRepo, stores.Cache, cacheRecorder, dashboardapp.Options{
		CacheTTL:          cfg.Dashboard.CacheTTL,
		CachePrefix:       cfg.Dashboard.CachePrefix,
		LowStockThreshold: cfg.Dashboard.LowStockThreshold,
		TrendMonths:       cfg.Dashboard.TrendMonths,
		TopProducts:       cfg.Dashboard.TopProducts,
	}, log)

	invalidation := dashboardapp.NewInvalidationHandler(dashboardService, log)
	eventBus.Subscribe(invalidation)
	log.Info("Event handlers registered", zap.Strings("dashboard_invalidation_events", invalidation.EventTypes()))

	templates, err := printing.NewTemplateEngine(printing.WithCurrency(cfg.Invoice.Currency))
	if err != nil {
		return fmt.Errorf("load invoice templates: %w", err)
	}
	renderer := printing.NewChromedpRenderer(printing.ChromedpConfig{
		DefaultTimeout: cfg.Invoice.RenderTimeout,
		RemoteURL:      cfg.Invoice.ChromeURL,
		NoSandbox:      os.Geteuid() == 0,
		Logger:         log,
	})
	defer func() { _ = renderer.Close() }()
	invoiceService := invoiceapp.NewService(orderRepo, userRepo, templates, renderer, objects, renderRecorder, invoiceapp.Options{
		CompanyName:    cfg.Invoice.CompanyName,
		CompanyAddress: cfg.Invoice.CompanyAddress,
		RenderTimeout:  cfg.Invoice.RenderTimeout,
		Archive:        cfg.Invoice.Archive && objects != nil,
	}, log)

	if err := eventBus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Dashboard.WarmInterval > 0 {
		warmer := scheduler.NewDashboardWarmer(dashboardService)
		jobs := scheduler.NewScheduler(scheduler.DefaultConfig(), warmer, log)
		if err := jobs.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer shutdown(log, "scheduler", jobs.Stop)
		trigger := scheduler.NewIntervalTrigger(jobs, cfg.Dashboard.WarmInterval, true, log, warmer.Jobs()...)
		if err := trigger.Start(ctx); err != nil {
			return fmt.Errorf("start dashboard warmer: %w", err)
		}
		defer shutdown(log, "dashboard warmer", trigger.Stop)
	}

	if cfg.Bootstrap.AdminEmail != "" {
		created, err := userService.EnsureAdmin(ctx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap administrator: %w", err)
		}
		if created {
			log.Info("Bootstrap administrator created", zap.String("email", cfg.Bootstrap.AdminEmail))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var apiLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		apiLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer apiLimiter.Close()
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.Cookie.Secure

	engine := router.NewEngine(router.EngineConfig{
		Logger:         log,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           cors,
		Security:       security,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RateLimiter:    apiLimiter,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
		Meter:     meter,
		Profiling: profiler.IsEnabled(),
	})

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if stores.Distributed() {
		checks["redis"] = func(ctx context.Context) error { return stores.Client.Ping(ctx).Err() }
	}

	router.Mount(router.NewRouter(engine), router.Handlers{
		System:    handler.NewSystemHandler(version(), checks),
		Auth:      handler.NewAuthHandler(authService, cfg.Cookie),
		Product:   handler.NewProductHandler(productService),
		Category:  handler.NewCategoryHandler(categoryService),
		Cart:      handler.NewCartHandler(cartService),
		Order:     handler.NewOrderHandler(orderService),
		User:      handler.NewUserHandler(userService),
		Dashboard: handler.NewDashboardHandler(dashboardService, handler.DashboardPath),
		Invoice:   handler.NewInvoiceHandler(invoiceService),
	}, router.Guards{
		Authenticate: middleware.JWTAuth(middleware.JWTMiddlewareConfig{
			JWTService:  jwtService,
			Revocations: revocations,
			CookieName:  cfg.Cookie.Name,
			Logger:      log,
		}),
		Approved:    middleware.RequireApproved(userRepo, log),
		Admin:       middleware.RequireAdmin(),
		LoginLimit:  middleware.LoginRateLimit(stores.LoginLimiter, log),
		UploadLimit: middleware.UploadLimit(catalogapp.MaxImageSize + 1<<20),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}

// openDatabase connects, installs query tracing and brings the schema up
// to date: AutoMigrate for sqlite, versioned migrations otherwise.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Database connected successfully", zap.String("driver", db.Driver))

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem:        dbSystem(cfg.Database.Driver),
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		WithVariables:   cfg.App.Env == "development",
	}, log); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}

	if cfg.Database.Driver == config.DriverSQLite {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite schema: %w", err)
		}
		return db, nil
	}

	m, err := migration.New(&cfg.Database, migrationsRoot, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	defer func() { _ = m.Close() }()
	if err := m.Up(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, nil
}

// openStorage returns nil when object storage is disabled; product images
// and invoice archiving are then unavailable.
func openStorage(cfg *config.Config, log *zap.Logger) (storage.ObjectStorage, error) {
	if !cfg.Storage.Enabled {
		log.Info("Object storage disabled")
		return nil, nil
	}
	s3, err := storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
	if err != nil {
		return nil, fmt.Errorf("initialize object storage: %w", err)
	}
	return s3, nil
}

func dbSystem(driver string) string {
	if driver == config.DriverPostgres {
		return "postgresql"
	}
	return driver
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}

// version reports the module version stamped by the go tool
func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return telemetry.ServiceVersion
}
