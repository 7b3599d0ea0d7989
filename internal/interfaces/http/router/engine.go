package router

import (
	"time"

	"github.com/erp/payalloc/internal/infrastructure/logger"
	"github.com/erp/payalloc/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineConfig assembles the global middleware chain
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	TracerProvider trace.TracerProvider
	Meter          metric.Meter
	RequestTimeout time.Duration
	BodyLimit      int64
	TrustedProxies []string
	CORS           middleware.CORSConfig
	Tenant         middleware.TenantConfig
}

// NewEngine builds a gin engine with the middleware chain in its required
// order: request id before logging, tracing before span enrichment.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	metrics, err := middleware.HTTPMetrics(middleware.HTTPMetricsConfig{Meter: cfg.Meter, Enabled: cfg.Meter != nil})
	if err != nil {
		return nil, err
	}
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = middleware.DefaultBodyLimit
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName:    cfg.ServiceName,
			Enabled:        cfg.TracingEnabled,
			TracerProvider: cfg.TracerProvider,
			SkipPaths:      cfg.Tenant.SkipPaths,
		}),
		middleware.SpanErrorMarker(),
		middleware.CORS(cfg.CORS),
		middleware.Secure(),
		middleware.BodyLimit(bodyLimit),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.Tenant(cfg.Tenant),
		middleware.SpanAttributes(),
		metrics,
	)
	return engine, nil
}
