package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-warehouse-api/internal/api/http"
	"github.com/i474232898/weather-warehouse-api/internal/config"
	"github.com/i474232898/weather-warehouse-api/internal/logging"
	"github.com/i474232898/weather-warehouse-api/internal/metrics"
	"github.com/i474232898/weather-warehouse-api/internal/scheduler"
	"github.com/i474232898/weather-warehouse-api/internal/store"
	"github.com/i474232898/weather-warehouse-api/internal/warehouse"
	"github.com/i474232898/weather-warehouse-api/internal/weather"
)

func main() {
	// Load configuration (also reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	table, err := cfg.Table()
	if err != nil {
		zlog.Fatal("invalid forecast table", zap.Error(err))
	}

	rec := metrics.NewRecorder()

	// Shared warehouse handle, created lazily and reused by every request.
	provider := warehouse.NewProvider(
		warehouse.SnowflakeConnector(cfg.ConnectionsFile, cfg.ConnectionName),
		zlog.Named("warehouse"),
	)
	provider.OnAttempt(rec.ConnectAttempt)
	defer func() {
		if err := provider.Close(); err != nil {
			zlog.Warn("error closing warehouse handle", zap.Error(err))
		}
	}()

	// Warm up before accepting requests. Failure is tolerated: the next
	// request tries again.
	if cfg.ConnectOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if _, err := provider.Get(ctx); err != nil {
			zlog.Warn("warehouse unavailable at startup; will retry on first request",
				zap.String("connection", cfg.ConnectionName))
		}
		cancel()
	}

	service := weather.NewService(provider, table,
		weather.WithQueryTimeout(cfg.QueryTimeout),
		weather.WithRecorder(rec),
		weather.WithLogger(zlog.Named("weather")),
	)

	// Probe history and the scheduler that fills it.
	probes := store.NewMemoryStore(cfg.ProbeMaxHistory, cfg.ProbeMaxAge)
	sched := scheduler.New(cfg.ProbeInterval, provider, probes, rec, zlog.Named("scheduler"))
	if err := sched.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-warehouse-api",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(zlog.Named("http")),
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} | ${locals:requestid} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
	}))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:   service,
		Readiness: provider,
		Probes:    probes,
		Metrics:   httpapi.MetricsHandler(rec.Handler()),
	})

	go func() {
		zlog.Info("listening",
			zap.String("port", cfg.Port),
			zap.Stringer("table", table),
			zap.String("connection", cfg.ConnectionName),
		)
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}
