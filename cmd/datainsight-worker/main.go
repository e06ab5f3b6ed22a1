package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"datainsight/internal/amqp"
	"datainsight/internal/cli"
	"datainsight/internal/log"
	"datainsight/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap()
	logger.Info("Starting datainsight-worker")

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker needs a broker", errors.New("AMQP_URL is not set"))
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	store := cli.OpenBackend(ctx, logger, cfg)
	defer store.Close()

	exporter, err := cli.NewReportExporter(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets exporter", err)
	}
	if exporter == nil {
		logger.Info("Google Sheets disabled - reports will only be logged")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	reports := worker.NewReportWorker(
		cli.NewEngine(store.Store, logger),
		exporter,
		cli.ReportOptions(cfg),
		logger.WithComponent(log.ComponentWorker).Slog(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reports.StartupRefresh(gctx)
		return nil
	})
	g.Go(func() error {
		err := amqpClient.ConsumeRunCompleted(gctx, reports.HandleRunCompleted)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Message consumption failed", err)
	}
	cli.WaitForShutdown(ctx, done)
}
