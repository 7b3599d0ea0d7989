package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	apppayment "github.com/erp/payalloc/internal/application/payment"
	"github.com/erp/payalloc/internal/domain/payment"
	"github.com/erp/payalloc/internal/infrastructure/cache"
	"github.com/erp/payalloc/internal/infrastructure/config"
	"github.com/erp/payalloc/internal/infrastructure/currency"
	"github.com/erp/payalloc/internal/infrastructure/event"
	"github.com/erp/payalloc/internal/infrastructure/logger"
	"github.com/erp/payalloc/internal/infrastructure/migration"
	"github.com/erp/payalloc/internal/infrastructure/persistence"
	"github.com/erp/payalloc/internal/infrastructure/telemetry"
	"github.com/erp/payalloc/internal/interfaces/http/handler"
	"github.com/erp/payalloc/internal/interfaces/http/middleware"
	"github.com/erp/payalloc/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	migrateOnStart := flag.Bool("migrate", false, "Apply pending schema migrations before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting payment allocation service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	if *migrateOnStart {
		if err := applyMigrations(cfg, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	redisClient := connectRedis(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	paymentMetrics, err := telemetry.NewPaymentMetrics(telemetry.PaymentMetricsConfig{
		Meter:         meterProvider.Meter("payalloc.payment"),
		Logger:        log,
		DraftProvider: telemetry.NewGormDraftPaymentProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to create payment metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		paymentMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	}
	defer paymentMetrics.Stop()

	// Repositories
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	partnerRepo := persistence.NewGormPartnerRepository(db.DB)
	moveLineRepo := persistence.NewGormMoveLineRepository(db.DB)
	reconciliationRepo := persistence.NewGormReconciliationRepository(db.DB)
	rateRepo := persistence.NewGormExchangeRateRepository(db.DB)

	// Currency conversion: rate table behind an optional cache, traced and counted
	var rates currency.RateSource = currency.NewRepositoryRateSource(rateRepo)
	var cachedRates *currency.CachedRateSource
	if rateCache := currency.NewRateCache(cfg.Currency.RateCacheBackend, redisClient); rateCache != nil {
		cachedRates = currency.NewCachedRateSource(rates, rateCache, cfg.Currency.RateCacheTTL, log)
		rates = cachedRates
	} else {
		log.Info("Exchange rate cache disabled", zap.String("backend", cfg.Currency.RateCacheBackend))
	}
	converter := currency.NewInstrumentedConverter(currency.NewRateTableConverter(rates, log), paymentMetrics)

	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Idempotency, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		event.NewPaymentAuditHandler(log), idempotencyStore, event.DefaultEventDedupTTL, log,
	))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	paymentService := apppayment.NewPaymentService(apppayment.PaymentServiceDeps{
		PaymentRepo:     paymentRepo,
		Invoices:        invoiceRepo,
		Partners:        partnerRepo,
		MoveLines:       moveLineRepo,
		Reconciliations: reconciliationRepo,
		Engine:          payment.NewAllocationEngine(converter),
		Validator:       payment.NewAllocationValidator(payment.WithTolerance(cfg.Allocation.Tolerance)),
		Reconciler:      payment.NewReconciliationEngine(converter),
		TxScope:         persistence.NewGormTransactionScope(db.DB),
		CompanyCurrency: cfg.Allocation.CompanyCurrency,
	})
	paymentService.SetEventPublisher(eventBus)
	paymentService.SetIdempotencyStore(idempotencyStore, cfg.Idempotency.TTL)
	paymentService.SetPaymentMetrics(paymentMetrics)
	exchangeRateService := apppayment.NewExchangeRateService(rateRepo)
	if cachedRates != nil {
		exchangeRateService.SetRateCacheInvalidator(cachedRates)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSOrigins
	tenant := middleware.DefaultTenantConfig()
	tenant.SkipPaths = append(tenant.SkipPaths, "/api/v1/system/info")

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		Meter:          meterProvider.Meter("payalloc.http"),
		RequestTimeout: cfg.HTTP.RequestTimeout,
		BodyLimit:      cfg.HTTP.BodyLimit,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           cors,
		Tenant:         tenant,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	paymentHandler := handler.NewPaymentHandler(paymentService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, healthChecks(db, redisClient)...)

	router.NewRouter(engine).Register(
		router.PaymentRoutes(paymentHandler),
		router.AllocationRoutes(paymentHandler),
		router.ExchangeRateRoutes(handler.NewExchangeRateHandler(exchangeRateService)),
		router.SystemRoutes(systemHandler),
	).Setup()

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
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			log.Error("Server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited")
}

// applyMigrations runs the embedded migrations on a dedicated connection;
// the migrator closes the handle it is given.
func applyMigrations(cfg *config.Config, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

// connectRedis dials Redis when a component is configured to use it. A
// failure degrades the rate cache to memory rather than stopping startup.
func connectRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	if cfg.Currency.RateCacheBackend != "redis" {
		return nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory rate cache", zap.Error(err))
		cfg.Currency.RateCacheBackend = "memory"
		return nil
	}
	log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	return client
}

func healthChecks(db *persistence.Database, redisClient *redis.Client) []handler.HealthCheck {
	checks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	return checks
}
