package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/project-koku/parquet-compactor/internal/columnar"
	"github.com/project-koku/parquet-compactor/internal/config"
	"github.com/project-koku/parquet-compactor/internal/metrics"
	"github.com/project-koku/parquet-compactor/internal/server"
	"github.com/project-koku/parquet-compactor/internal/service"
	"github.com/project-koku/parquet-compactor/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Initialize bootstrap logger
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Load configuration
	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config.yaml"
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Rebuild the logger with the configured level and encoding
	runLogger, err := buildLogger(cfg.Logging)
	if err != nil {
		logger.Fatal("Failed to configure logger", zap.Error(err))
	}
	logger = runLogger

	logger.Info("Configuration loaded",
		zap.String("endpoint", cfg.Store.Endpoint),
		zap.String("bucket", cfg.Store.Bucket),
		zap.String("data_prefix", cfg.Store.DataPrefix),
		zap.Float64("target_file_size_gb", cfg.Compaction.TargetFileSizeGB),
		zap.Int("chunk_rows", cfg.Compaction.ChunkRows),
		zap.Strings("skip_current_month_sources", cfg.Compaction.SkipCurrentMonthSources),
		zap.Int("workers", cfg.Compaction.Workers))

	// Initialize the object store and columnar capabilities
	objectStore, err := store.NewMinioStore(&store.MinioConfig{
		Endpoint:  cfg.Store.Endpoint,
		Bucket:    cfg.Store.Bucket,
		AccessKey: cfg.Store.AccessKey,
		SecretKey: cfg.Store.SecretKey,
		UseTLS:    !cfg.Store.Insecure,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize object store", zap.Error(err))
	}

	columnarIO := columnar.NewParquetIO(objectStore, logger)

	// Metrics: per-run registry, optionally exposed over HTTP
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, cfg.Store.Bucket)

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = server.NewMetricsServer(cfg.Metrics.ListenAddr, registry, logger)
		metricsServer.Start()
	}

	// Initialize services
	budget := cfg.Compaction.TargetByteBudget()

	crawler := service.NewCrawlerService(objectStore, logger)

	eligibility := service.NewEligibilityService(
		&service.EligibilityConfig{
			TargetByteBudget:        budget,
			SkipCurrentMonthSources: cfg.Compaction.SkipCurrentMonthSources,
		},
		logger,
	)

	planner := service.NewPlannerService(budget, logger)

	merger := service.NewMergeService(
		&service.MergeConfig{ChunkRows: cfg.Compaction.ChunkRows},
		columnarIO,
		logger,
	)

	compactor := service.NewCompactorService(
		&service.CompactorConfig{
			DataPrefix: cfg.Store.DataPrefix,
			Workers:    cfg.Compaction.Workers,
		},
		objectStore,
		crawler,
		eligibility,
		planner,
		merger,
		m,
		logger,
	)

	// Abort the cycle on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, runErr := compactor.Run(ctx)

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
	}

	// Merge failures are logged per batch and do not fail the process; only
	// an aborted cycle exits non-zero
	if runErr != nil {
		logger.Fatal("Compaction failed", zap.Error(runErr))
	}
}

// initLogger initializes the bootstrap zap logger used before configuration
// is available
func initLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	return config.Build()
}

// buildLogger builds the run logger from the logging config
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = cfg.Format
	return zcfg.Build()
}
