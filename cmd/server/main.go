package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	fulfillmentapp "github.com/kif1r4ek/test-my-sklad/internal/application/fulfillment"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/cache"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/event"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/logger"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/marketplace"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/persistence"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/scheduler"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/storage"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/telemetry"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/handler"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/middleware"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.ForEnvironment(cfg.App.Env).Merge(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Int("stores", len(cfg.Marketplace.Stores)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry, cfg.App.Name), log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	metrics := telemetry.NewMetrics()

	// Database
	gormLog := logger.NewGormLogger(log, cfg.Log.Level, 200*time.Millisecond)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	settingsRepo := persistence.NewGormSettingsRepository(db.DB)
	accessRepo := persistence.NewGormAccessRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	// Caches
	products, closeProducts := cache.NewProductCacheFactory(cfg.Redis, cfg.Cache.ProductTTL, log).CreateCache(ctx)
	defer func() {
		if err := closeProducts(); err != nil {
			log.Error("Error closing product cache", zap.Error(err))
		}
	}()
	caches := cache.NewRegistry(cfg.Cache, products, cache.WithLogger(log), cache.WithObserver(metrics))

	stores := supply.NewDirectory(storesFrom(cfg.Marketplace.Stores))
	storeIDs := make([]string, 0)
	for _, s := range stores.All() {
		storeIDs = append(storeIDs, s.ID)
	}
	for id, err := range caches.WarmLoad(storeIDs) {
		log.Warn("Failed to load catalog snapshot", zap.String("store_id", id), zap.Error(err))
	}

	// Remote clients
	api := marketplace.NewClient(cfg.Marketplace, marketplace.WithRequestObserver(metrics))
	catalog := marketplace.NewCatalogClient(cfg.Marketplace, marketplace.WithCatalogObserver(metrics))
	status := marketplace.NewProductStatusClient(cfg.ProductStatus, cfg.Marketplace.Timeout, log,
		marketplace.WithStatusObserver(metrics))

	labelStorage, err := storage.New(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize label storage", zap.Error(err))
	}
	if !cfg.Storage.Enabled() {
		log.Warn("Label storage is not configured, label generation will fail")
	}

	notifier := event.NewNotifier(log, event.WithObserver(metrics))

	// Services
	svcCfg := fulfillmentapp.ConfigFrom(cfg)
	resolver := fulfillmentapp.NewProductResolver(catalog, caches, svcCfg, log)
	resolver.RefreshCatalogs(ctx, stores.All())
	supplySync := fulfillmentapp.NewSupplySync(stores, api, settingsRepo, orderRepo, resolver, svcCfg, log)
	feed := fulfillmentapp.NewOrderFeed(stores, api, caches, resolver, supplySync, settingsRepo, accessRepo, orderRepo, log)
	supplySync.SetOrderSource(feed)

	creator := fulfillmentapp.NewSupplyCreator(feed, api, settingsRepo, supplySync, caches, notifier, svcCfg, log)
	accessService := fulfillmentapp.NewAccessService(supplySync, settingsRepo, accessRepo, orderRepo, notifier, log)
	employeeService := fulfillmentapp.NewEmployeeService(supplySync, feed, stores, settingsRepo, accessRepo, orderRepo, log)
	labelJob := fulfillmentapp.NewLabelJob(supplySync, settingsRepo, orderRepo, api, labelStorage,
		storage.PDFRenderer{}, notifier, svcCfg, log)
	labelJob.SetRecorder(metrics)
	scanService := fulfillmentapp.NewScanService(supplySync, feed, settingsRepo, accessRepo, orderRepo, api, status,
		notifier, svcCfg, log)
	scanService.SetRecorder(metrics)

	// Background name backfill
	backfill, err := scheduler.NewPeriodicScheduler(scheduler.PeriodicConfig{
		Enabled:      cfg.Backfill.Enabled,
		Interval:     cfg.Backfill.Interval,
		InitialDelay: cfg.Backfill.InitialDelay,
		RunTimeout:   cfg.Backfill.Interval,
	}, fulfillmentapp.NewNameBackfill(stores, orderRepo, resolver, cfg.Backfill.BatchSize, log), log)
	if err != nil {
		log.Fatal("Failed to create name backfill scheduler", zap.Error(err))
	}
	if err := backfill.Start(ctx); err != nil {
		log.Fatal("Failed to start name backfill scheduler", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to set up request validation", zap.Error(err))
	}

	var metricsHandler http.Handler
	if cfg.Telemetry.MetricsEnabled {
		metricsHandler = metrics.Handler()
	}
	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.App.Name,
		Tracing:        cfg.Telemetry.Enabled,
		CORSOrigins:    cfg.HTTP.CORSAllowOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
	}, router.Handlers{
		Orders:   handler.NewOrdersHandler(feed, creator, log),
		Supply:   handler.NewSupplyHandler(accessService, labelJob, supplySync, log),
		Employee: handler.NewEmployeeHandler(employeeService, scanService, log),
		Events:   handler.NewEventsHandler(notifier, log),
		System:   handler.NewSystemHandler(cfg.App.Name, db, metricsHandler, log),
	}, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := backfill.Stop(shutdownCtx); err != nil {
		log.Warn("Name backfill did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// storesFrom converts the configured stores.
func storesFrom(cfgs []config.StoreConfig) []supply.Store {
	out := make([]supply.Store, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, supply.Store{
			ID:           c.ID,
			Name:         c.Name,
			Token:        c.Token,
			ClientSecret: c.ClientSecret,
		})
	}
	return out
}
