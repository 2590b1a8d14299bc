package router

import (
	"net/http"

	"github.com/disi/commandes/internal/infrastructure/logger"
	"github.com/disi/commandes/internal/interfaces/http/dto"
	"github.com/disi/commandes/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig holds the global middleware settings
type EngineConfig struct {
	Logger         *zap.Logger
	TrustedProxies []string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodySize    int64
	// RateLimiter is applied to every request when set
	RateLimiter *middleware.RateLimiter
	Tracing     middleware.TracingConfig
	// Meter enables HTTP metrics when set
	Meter     metric.Meter
	Profiling bool
}

// NewEngine creates a gin engine with the global middleware stack:
// request id, recovery, request logging, tracing, metrics, profiling
// labels, security headers, CORS, body limit and rate limit.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing(cfg.Tracing), middleware.SpanEnricher())
	}
	if cfg.Meter != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Meter))
	}
	if cfg.Profiling {
		engine.Use(middleware.Profiling(true))
	}
	engine.Use(middleware.Secure(cfg.Security))
	engine.Use(middleware.CORS(cfg.CORS))
	engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, "Route not found", c.GetString(middleware.RequestIDKey)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID("METHOD_NOT_ALLOWED", "Method not allowed", c.GetString(middleware.RequestIDKey)))
	})
	return engine
}
