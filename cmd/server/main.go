package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inboxapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/inbox"
	integrationapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/cache"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/config"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/crypto"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/event"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/logger"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/persistence"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/platforms"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/scheduler"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/storage"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/telemetry"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/handler"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/middleware"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Moby Gestor Delivery Integration API
//	@version		1.0
//	@description	Delivery platform integration service - ingests orders and courier work sessions from Foody, iFood, Rappi and Lalamove

//	@contact.name	API Support
//	@contact.url	https://github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting delivery integration service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize telemetry providers. With telemetry disabled these install
	// global no-op providers, so instrumented code paths stay cheap.
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilerEnabled,
		ServerAddress:     cfg.Telemetry.ProfilerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		// Span profiles need the profiler running first.
		tracerProvider.EnableSpanProfiles()
	}

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Tee application logs into the OTLP log bridge alongside the local core
	if cfg.Telemetry.Enabled {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore)
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database query tracing (otelgorm plugin plus slow query spans)
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Credential sealer for platform API secrets at rest
	encryptionKey := cfg.Security.EncryptionKey
	if encryptionKey == "" {
		// validate() rejects this in production
		log.Warn("security.encryption_key not set, using insecure development key")
		encryptionKey = "dev-only-insecure-credential-key"
	}
	sealer, err := crypto.NewSealer(encryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize credential sealer", zap.Error(err))
	}

	// Initialize repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB, sealer)
	inboxRepo := persistence.NewGormInboxRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	worktimeRepo := persistence.NewGormWorkTimeRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)

	// Register platform adapter factories
	registry := integration.NewRegistry()
	platforms.Register(registry)
	log.Info("Platform adapters registered", zap.Strings("providers", providerNames(registry)))

	// Token and idempotency stores: Redis when enabled, in-memory otherwise
	storeFactory := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log))
	tokenStore, err := storeFactory.CreateTokenStore()
	if err != nil {
		log.Fatal("Failed to create token store", zap.Error(err))
	}
	idempotencyStore, err := storeFactory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Payload archive: S3-compatible object storage, or a noop sink when
	// archiving is disabled
	var payloadArchive integrationapp.PayloadArchive
	if cfg.Archive.Enabled {
		s3Archive, err := storage.NewS3PayloadArchive(cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize payload archive", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(context.Background()); err != nil {
			log.Fatal("Failed to ensure archive bucket", zap.Error(err))
		}
		payloadArchive = s3Archive
		log.Info("Payload archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	} else {
		payloadArchive = storage.NewNoopPayloadArchive()
	}

	// Order-ingested events fan out to the archive. The idempotency wrapper
	// keeps reprocessed items from being archived twice.
	archiveHandler := integrationapp.NewArchiveHandler(payloadArchive, log)
	eventBus.Subscribe(event.NewIdempotentHandler(archiveHandler, idempotencyStore, log))

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Integration manager owns adapters, poll tasks and the ingestion pipeline
	manager := integrationapp.NewManager(
		registry,
		integrationRepo,
		syncLogRepo,
		inboxRepo,
		orderRepo,
		worktimeRepo,
		tokenStore,
		eventBus,
		log,
		integrationapp.WithHTTPTimeout(cfg.Manager.PlatformTimeout),
		integrationapp.WithDrainLimit(cfg.Manager.DrainLimit),
	)

	// Application services
	integrationService := integrationapp.NewService(manager, integrationRepo, syncLogRepo, log)
	inboxService := inboxapp.NewService(inboxRepo, log)

	// Ingestion metrics: pipeline counters plus a periodic backlog gauge
	// scraped from the inbox table
	if meterProvider.IsEnabled() {
		ingestionMetrics, err := telemetry.NewIngestionMetrics(telemetry.IngestionMetricsConfig{
			Meter:           meterProvider.Meter("delivery-integration"),
			Logger:          log,
			BacklogProvider: telemetry.NewGormInboxBacklogProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to initialize ingestion metrics", zap.Error(err))
		}
		manager.SetIngestionMetrics(ingestionMetrics)
		inboxService.SetIngestionMetrics(ingestionMetrics)
		ingestionMetrics.StartPeriodicCollection(context.Background(), time.Minute)
		defer ingestionMetrics.Stop()
	}

	// Reprocess scheduler drains manual inbox reprocess requests through a
	// bounded worker pool
	reprocessScheduler, err := scheduler.NewReprocessScheduler(scheduler.Config{
		Workers:    cfg.Reprocess.Workers,
		QueueSize:  cfg.Reprocess.QueueSize,
		JobTimeout: cfg.Reprocess.JobTimeout,
	}, manager, log)
	if err != nil {
		log.Fatal("Failed to create reprocess scheduler", zap.Error(err))
	}
	if err := reprocessScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start reprocess scheduler", zap.Error(err))
	}
	defer func() {
		if err := reprocessScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping reprocess scheduler", zap.Error(err))
		}
	}()
	log.Info("Reprocess scheduler started",
		zap.Int("workers", cfg.Reprocess.Workers),
		zap.Duration("job_timeout", cfg.Reprocess.JobTimeout),
	)

	// Resume previously connected integrations. Per-integration credential
	// failures mark that integration DEGRADED without blocking startup.
	if err := manager.LoadIntegrations(context.Background()); err != nil {
		log.Fatal("Failed to load integrations", zap.Error(err))
	}

	// Initialize HTTP handlers
	integrationHandler := handler.NewIntegrationHandler(integrationService, manager)
	inboxHandler := handler.NewInboxHandler(inboxService, reprocessScheduler, log)
	orderHandler := handler.NewOrderHandler(orderRepo)
	worktimeHandler := handler.NewWorktimeHandler(worktimeRepo)
	deliveryHandler := handler.NewDeliveryHandler(manager)
	webhookHandler := handler.NewWebhookHandler(manager, log)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Env)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing/Metrics/Profiling - Observability (when telemetry enabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
		engine.Use(middleware.Profiling())
	}

	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Platform webhook endpoints. These are called directly by the delivery
	// platforms; signature verification happens per-adapter inside Receive.
	webhookGroup := engine.Group(r.BasePath() + "/webhooks")
	webhookGroup.POST("/:provider", webhookHandler.Receive)

	// Integration administration
	integrationRoutes := router.NewDomainGroup("integrations", "/integrations")
	integrationRoutes.POST("", integrationHandler.Connect)
	integrationRoutes.GET("", integrationHandler.List)
	integrationRoutes.GET("/:id", integrationHandler.Get)
	integrationRoutes.PATCH("/:id", integrationHandler.Update)
	integrationRoutes.DELETE("/:id", integrationHandler.Disconnect)
	integrationRoutes.POST("/:id/sync", integrationHandler.ManualSync)
	integrationRoutes.POST("/:id/test", integrationHandler.TestConnection)
	integrationRoutes.GET("/:id/sync-logs", integrationHandler.SyncLogs)
	integrationRoutes.POST("/:id/orders/:external_id/:action", integrationHandler.OrderAction)

	// Inbox inspection and reprocessing
	inboxRoutes := router.NewDomainGroup("inbox", "/inbox")
	inboxRoutes.GET("", inboxHandler.List)
	inboxRoutes.GET("/:id", inboxHandler.Get)
	inboxRoutes.POST("/:id/reprocess", inboxHandler.Reprocess)

	// Ingested orders
	orderRoutes := router.NewDomainGroup("orders", "/orders")
	orderRoutes.GET("", orderHandler.List)
	orderRoutes.GET("/lookup", orderHandler.Get)

	// Reconciled courier work sessions
	worktimeRoutes := router.NewDomainGroup("worktime", "/worktime")
	worktimeRoutes.GET("", worktimeHandler.List)

	// On-demand courier deliveries (Lalamove)
	deliveryRoutes := router.NewDomainGroup("deliveries", "/deliveries")
	deliveryRoutes.POST("/quote", deliveryHandler.Quote)
	deliveryRoutes.POST("", deliveryHandler.Request)
	deliveryRoutes.DELETE("/:id", deliveryHandler.Cancel)
	deliveryRoutes.GET("/:id/tracking", deliveryHandler.Tracking)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(integrationRoutes).
		Register(inboxRoutes).
		Register(orderRoutes).
		Register(worktimeRoutes).
		Register(deliveryRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Stop poll tasks before the deferred teardown of bus and scheduler
	if err := manager.Shutdown(ctx); err != nil {
		log.Error("Error shutting down integration manager", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// providerNames lists the registered providers for the startup log
func providerNames(registry *integration.Registry) []string {
	providers := registry.Providers()
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, string(p))
	}
	return names
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
