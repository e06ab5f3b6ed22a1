// Package cli provides the initialization shared by the datainsight binaries.
package cli

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"datainsight/internal/analytics"
	"datainsight/internal/backend"
	"datainsight/internal/batch"
	"datainsight/internal/config"
	"datainsight/internal/generator"
	"datainsight/internal/log"
	"datainsight/internal/records"
	"datainsight/internal/sheets"
	gsheet "datainsight/internal/sheets/google"
)

// SetupLogger builds the process logger for level and installs it as the slog default.
// An unknown level falls back to info.
func SetupLogger(level string) *log.Logger {
	lvl, err := config.ParseLevel(level)
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentApp, Output: os.Stdout})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info level", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap loads .env, configuration and the logger in the order every binary needs.
func Bootstrap() (*config.Config, *log.Logger) {
	LoadEnvFile()
	logger := SetupLogger(os.Getenv("LOG_LEVEL"))
	return LoadAndValidateConfig(logger), logger
}

// OpenBackend opens the configured record store.
// Returns the backend or exits the process on failure.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.WithComponent(log.ComponentStorage).Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to open record store", "error", err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	return res
}

// NewGenerator seeds the generator from GENERATOR_SEED when set, randomly otherwise.
func NewGenerator(cfg *config.Config) *generator.Generator {
	if cfg.HasGeneratorSeed {
		return generator.NewSeeded(cfg.GeneratorSeed)
	}
	return generator.New(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewCommitter builds the batch committer with the configured commit strategy.
func NewCommitter(cfg *config.Config, store records.Beginner, logger *log.Logger, opts ...batch.Option) *batch.Committer {
	strategy := batch.AllOrNothing()
	if cfg.CommitEveryBatches > 0 {
		strategy = batch.EveryNBatches(cfg.CommitEveryBatches)
	}
	opts = append([]batch.Option{
		batch.WithStrategy(strategy),
		batch.WithLogger(logger.WithComponent(log.ComponentBatch).Slog()),
	}, opts...)
	return batch.New(store, opts...)
}

// NewEngine builds the aggregation engine over store.
func NewEngine(store records.Reader, logger *log.Logger) *analytics.Engine {
	return analytics.New(store, analytics.WithLogger(logger.WithComponent(log.ComponentAnalytics).Slog()))
}

// ReportOptions returns the report sizing from configuration.
func ReportOptions(cfg *config.Config) analytics.ReportOptions {
	return analytics.ReportOptions{TopClients: cfg.ReportTopClients, SalesDays: cfg.ReportSalesDays}
}

// NewReportExporter returns the Google Sheets exporter, or nil when no
// spreadsheet is configured.
func NewReportExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.ReportExporter, error) {
	if !cfg.SheetsEnabled() {
		return nil, nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetPrefix:        cfg.GoogleSheetPrefix,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(log.ComponentSheets).Slog())
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Once the
// signal arrives cleanup runs, bounded by timeout, and done is closed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
