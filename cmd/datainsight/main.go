package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"datainsight/internal/amqp"
	"datainsight/internal/cli"
	apphttp "datainsight/internal/http"
	"datainsight/internal/log"
	"datainsight/internal/middleware/ratelimit"
	"datainsight/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.Bootstrap()
	logger.Info("Starting datainsight", "port", cfg.Port, "backend", cfg.DataBackend)

	store := cli.OpenBackend(context.Background(), logger, cfg)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close record store", "error", err)
		}
	}()

	// Run notifications are optional; the API works without a broker.
	var publisher services.RunPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			logger.Warn("AMQP unavailable, run notifications disabled", "error", err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	generation := services.NewGenerationService(
		store.Store,
		cli.NewGenerator(cfg),
		cli.NewCommitter(cfg, store.Store, logger),
		publisher,
		logger.WithComponent(log.ComponentGenerator).Slog(),
	)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Engine:     cli.NewEngine(store.Store, logger),
		Generation: generation,
		Records:    store.Store,
		Ping:       store.Ping,
		Report:     cli.ReportOptions(cfg),
		CacheTTL:   cfg.ReportCacheTTL,
		RateLimit:  ratelimit.DefaultConfig(),
		Logger:     logger,
	})
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 5 * time.Minute
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}
