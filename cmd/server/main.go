package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/application/billing"
	reportapp "github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/application/report"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/infrastructure/cache"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/infrastructure/config"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/infrastructure/logger"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/infrastructure/persistence"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/interfaces/http/handler"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/interfaces/http/middleware"
	"github.com/APC-SoCIT/APC-2025-2026-T1-SS231-G07-DDC-Management-System-sub008/internal/interfaces/http/router"
)

//	@title			Dental Clinic Billing API
//	@version		1.0
//	@description	Payment recording and invoice reconciliation service for dental clinics.

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
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
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting billing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	revenueReportRepo := persistence.NewGormRevenueReportRepository(db.DB)

	// Patient balance cache: Redis when configured, otherwise in-process
	var balanceCache billingapp.BalanceCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisBalanceCache(cfg.Redis,
			cache.WithBalanceCacheTTL(cfg.Billing.BalanceCacheTTL),
			cache.WithBalanceCacheLogger(log),
		)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		balanceCache = redisCache
		log.Info("Balance cache backed by Redis",
			zap.String("host", cfg.Redis.Host),
			zap.Duration("ttl", cfg.Billing.BalanceCacheTTL),
		)
	} else {
		balanceCache = cache.NewInMemoryBalanceCache(cfg.Billing.BalanceCacheTTL)
		log.Info("Balance cache backed by in-process store",
			zap.Duration("ttl", cfg.Billing.BalanceCacheTTL),
		)
	}

	// Application services
	balanceService := billingapp.NewPatientBalanceService(invoiceRepo, balanceCache, log)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, balanceService, log)
	paymentService := billingapp.NewPaymentService(
		paymentRepo, invoiceRepo, balanceService, log,
		cfg.Billing.MaxAllocationsPerPayment,
	)
	revenueReportService := reportapp.NewRevenueReportService(revenueReportRepo, log)

	// HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	balanceHandler := handler.NewPatientBalanceHandler(balanceService)
	reportHandler := handler.NewReportHandler(revenueReportService)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(invoiceHandler).
		Register(paymentHandler).
		Register(balanceHandler).
		Register(reportHandler).
		Register(systemHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("Server stopped")
	}
}
