package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pharmacy/backend/internal/application/alert"
	"github.com/pharmacy/backend/internal/application/finance"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/auth"
	"github.com/pharmacy/backend/internal/infrastructure/cache"
	"github.com/pharmacy/backend/internal/infrastructure/config"
	"github.com/pharmacy/backend/internal/infrastructure/event"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/infrastructure/persistence"
	"github.com/pharmacy/backend/internal/infrastructure/scheduler"
	"github.com/pharmacy/backend/internal/infrastructure/storage"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
	"github.com/pharmacy/backend/internal/interfaces/http/handler"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
	"github.com/pharmacy/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: time.RFC3339,
		Service:    cfg.App.Name,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
	logger.Sync(log)
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		ProfileSpans:      cfg.Telemetry.ProfilingEnabled,
	}, log)
	if err != nil {
		return fmt.Errorf("tracer provider: %w", err)
	}
	defer shutdownWithTimeout(log, "tracer provider", tracerProvider.Shutdown)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingBasicAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingBasicAuthPassword,
		ProfileTypes:      cfg.Telemetry.ProfileTypes,
	}, log)
	if err != nil {
		return fmt.Errorf("profiler: %w", err)
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Failed to stop profiler", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("meter provider: %w", err)
	}
	defer shutdownWithTimeout(log, "meter provider", meterProvider.Shutdown)

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("logger provider: %w", err)
	}
	defer shutdownWithTimeout(log, "logger provider", logsProvider.Shutdown)

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log = logsProvider.Bridge(log, level)

	log.Info("Starting pharmacy ledger",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbSystem := "postgresql"
		if db.Driver == config.DriverSQLite {
			dbSystem = "sqlite"
		}
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        dbSystem,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			return fmt.Errorf("register db tracing: %w", err)
		}
	}

	// Postgres schemas are owned by cmd/migrate
	if db.Driver == config.DriverSQLite {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("SQLite schema migrated", zap.String("path", cfg.Database.Path))
	}

	// Events and notifications
	clock := shared.SystemClock{}
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewLogNotificationHandler(log), event.EventTypeNotificationRequested)
	bus.Subscribe(event.NewAuditLogHandler(log))

	metrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		return fmt.Errorf("ledger metrics: %w", err)
	}
	bus.Subscribe(metrics, metrics.EventTypes()...)

	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	defer shutdownWithTimeout(log, "event bus", bus.Stop)

	dispatcher := alert.NewDispatcher(event.NewBusNotifier(bus, clock), log)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Ledger account
	ledger := finance.NewLedgerService(scope, clock, log)
	account, err := ledger.EnsureAccount(ctx, cfg.Ledger.AccountID, finance.OpenAccountCommand{
		Name:     cfg.Ledger.AccountName,
		Currency: cfg.Ledger.Currency,
	})
	if err != nil {
		return fmt.Errorf("ensure ledger account %d: %w", cfg.Ledger.AccountID, err)
	}
	log.Info("Ledger account ready",
		zap.Int64("account_id", account.ID),
		zap.String("balance", account.Balance.StringFixed(2)),
	)

	alerts := alert.NewAlertService(scope, dispatcher, clock, log)

	// Expiry scanner
	scannerConfig := alert.ScannerConfig{
		AccountID:            account.ID,
		NearExpiryWindowDays: cfg.Scanner.NearExpiryWindow,
	}
	scanner := alert.NewExpiryScanner(scope, dispatcher, bus, clock, scannerConfig, log)

	reports, err := newReportStore(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("report storage: %w", err)
	}
	var archiver *alert.ReportArchiver
	if reports != nil {
		archiver = alert.NewReportArchiver(reports, cfg.App.Name, scannerConfig, log)
	}
	scanTask := scheduler.TaskFunc{
		TaskName: "expiry_scan",
		Fn: func(ctx context.Context) error {
			started := time.Now()
			var stats *alert.ScanStats
			var err error
			telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("expiry_scan", nil), func(ctx context.Context) {
				stats, err = scanner.Scan(ctx)
			})
			result := telemetry.ScanResult{Duration: time.Since(started), Err: err}
			if stats != nil {
				result.AlertsRaised = stats.AlertsRaised
				result.Failed = stats.Failed
			}
			metrics.RecordScan(ctx, result)
			if err == nil && archiver != nil {
				// A lost report never fails the scan
				if _, archiveErr := archiver.Archive(ctx, stats); archiveErr != nil {
					log.Warn("Failed to archive scan report", zap.Error(archiveErr))
				}
			}
			return err
		},
	}
	lease, err := cache.NewLeaseFactory(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cache.WithLogger(log)).Create(ctx, cfg.Scanner.LockBackend)
	if err != nil {
		return fmt.Errorf("scan lease: %w", err)
	}
	defer func() {
		if err := lease.Close(); err != nil {
			log.Warn("Failed to close scan lease", zap.Error(err))
		}
	}()

	scanScheduler, err := scheduler.NewIntervalScheduler(scheduler.Config{
		Interval:     cfg.Scanner.Interval,
		RunOnStartup: cfg.Scanner.RunOnStartup,
		Timeout:      cfg.Scanner.Interval / 2,
	}, scheduler.Exclusive(scanTask, lease, cfg.Scanner.LockTTL, log), log)
	if err != nil {
		return fmt.Errorf("expiry scan scheduler: %w", err)
	}
	if cfg.Scanner.Enabled {
		if err := scanScheduler.Start(ctx); err != nil {
			return fmt.Errorf("start expiry scan scheduler: %w", err)
		}
		defer shutdownWithTimeout(log, "expiry scan scheduler", scanScheduler.Stop)
	} else {
		log.Info("Expiry scanner disabled")
	}

	// Ops HTTP server
	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
	}, log)
	var routerOpts []router.RouterOption
	if cfg.Auth.Enabled() {
		routerOpts = append(routerOpts, router.WithOpsMiddleware(
			middleware.OperatorAuth(auth.NewTokenService(cfg.Auth), log),
		))
	} else {
		log.Warn("Ops API is unauthenticated, set auth.secret to require operator tokens")
	}
	router.NewRouter(engine, routerOpts...).
		RegisterRoot(handler.NewSystemHandler(cfg.App.Name, version, db, ledger)).
		Register(handler.NewExpiryScanHandler(scanScheduler)).
		Register(handler.NewAlertHandler(alerts)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Ops server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Ops server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
	return nil
}

// newReportStore returns nil when archiving is disabled
func newReportStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (alert.ReportStore, error) {
	switch cfg.Backend {
	case config.StorageFile:
		return storage.NewFileReportStore(cfg.Dir)
	case config.StorageS3:
		store, err := storage.NewS3ReportStore(ctx, storage.S3Config{
			Endpoint:          cfg.Endpoint,
			Region:            cfg.Region,
			Bucket:            cfg.Bucket,
			AccessKey:         cfg.AccessKey,
			SecretKey:         cfg.SecretKey,
			UseSSL:            cfg.UseSSL,
			UsePathStyle:      cfg.UsePathStyle,
			PresignExpiration: cfg.PresignExpiration,
		}, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}

func shutdownWithTimeout(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Shutdown failed", zap.String("component", name), zap.Error(err))
	}
}
