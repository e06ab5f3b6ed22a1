package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datainsight/internal/amqp"
	"datainsight/internal/batch"
	"datainsight/internal/cli"
	"datainsight/internal/config"
	"datainsight/internal/core"
	"datainsight/internal/log"
	"datainsight/internal/report"
	"datainsight/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		os.Exit(runGenerate(os.Args[2:], os.Stdout))
	case "report":
		os.Exit(runReport(os.Args[2:], os.Stdout))
	case "export":
		os.Exit(runExport(os.Args[2:], os.Stdout))
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("DataInsight CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  datainsight-cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate  Generate synthetic clients and transactions")
	fmt.Println("  report    Print the analytics report")
	fmt.Println("  export    Export the analytics report to Google Sheets")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'datainsight-cli <command> -h' for more information on a command.")
}

// openBackend is replaced in tests.
var openBackend = cli.OpenBackend

// runGenerate and its siblings return the exit code so that deferred
// cleanups run before main exits.
func runGenerate(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	clients := fs.Int("clients", 1000, "number of clients to generate")
	perClient := fs.Int("per-client", 10, "transactions per client")
	seed := fs.Uint64("seed", 0, "generator seed (overrides GENERATOR_SEED)")
	_ = fs.Parse(args)

	cfg, logger := cli.Bootstrap()
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.GeneratorSeed, cfg.HasGeneratorSeed = *seed, true
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openBackend(ctx, logger, cfg)
	defer store.Close()

	publisher := optionalPublisher(cfg, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	progress := report.NewProgress(stdout)
	svc := services.NewGenerationService(
		store.Store,
		cli.NewGenerator(cfg),
		cli.NewCommitter(cfg, store.Store, logger, batch.WithProgress(progress.Tick)),
		runPublisher(publisher),
		logger.WithComponent(log.ComponentGenerator).Slog(),
	)

	summary, err := svc.Run(ctx, services.GenerationParams{NumClients: *clients, TransactionsPerClient: *perClient})
	progress.Done()
	if err != nil {
		var partial *services.PartialRunError
		if errors.As(err, &partial) {
			fmt.Fprintf(stdout, "Run incomplete: %d clients and %d transactions were committed\n",
				summary.Clients.Committed, summary.Transactions.Committed)
		}
		return failure(logger, "Generation failed", err)
	}
	if err := report.WriteRunSummary(stdout, summary); err != nil {
		return failure(logger, "Failed to write summary", err)
	}
	return 0
}

func runReport(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	format := fs.String("format", "text", "output format: text or json")
	top := fs.Int("top", 0, "number of top clients (default REPORT_TOP_CLIENTS)")
	days := fs.Int("days", 0, "days of daily sales (default REPORT_SALES_DAYS)")
	_ = fs.Parse(args)

	if *format != "text" && *format != "json" {
		fmt.Fprintf(os.Stderr, "Unknown format: %s\n", *format)
		return 2
	}

	cfg, logger := cli.Bootstrap()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store := openBackend(ctx, logger, cfg)
	defer store.Close()

	opts := cli.ReportOptions(cfg)
	if *top > 0 {
		opts.TopClients = *top
	}
	if *days > 0 {
		opts.SalesDays = *days
	}

	rep, err := cli.NewEngine(store.Store, logger).Report(ctx, opts)
	if err != nil {
		return failure(logger, "Failed to build report", err)
	}

	if *format == "json" {
		err = report.WriteJSON(stdout, rep)
	} else {
		err = report.WriteText(stdout, rep)
	}
	if err != nil {
		return failure(logger, "Failed to write report", err)
	}
	return 0
}

func runExport(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg, logger := cli.Bootstrap()
	if !cfg.SheetsEnabled() {
		fmt.Fprintln(os.Stderr, "Error: GOOGLE_SPREADSHEET_ID is required for export")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store := openBackend(ctx, logger, cfg)
	defer store.Close()

	exporter, err := cli.NewReportExporter(ctx, cfg, logger)
	if err != nil {
		return failure(logger, "Failed to initialize Google Sheets exporter", err)
	}

	rep, err := cli.NewEngine(store.Store, logger).Report(ctx, cli.ReportOptions(cfg))
	if err != nil {
		return failure(logger, "Failed to build report", err)
	}

	res, err := exporter.ExportReport(ctx, rep)
	if err != nil {
		return failure(logger, "Export failed", err)
	}
	fmt.Fprintf(stdout, "Exported %d sheets (%d rows) to spreadsheet %s\n", len(res.Sheets), res.Rows, res.Destination)
	return 0
}

func optionalPublisher(cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		logger.Warn("AMQP unavailable, run notifications disabled", "error", err)
		return nil
	}
	return client
}

// runPublisher keeps a nil client from becoming a non-nil interface.
func runPublisher(c *amqp.Client) services.RunPublisher {
	if c == nil {
		return nil
	}
	return c
}

// failure logs err and maps invalid arguments to exit code 2, everything else to 1.
func failure(logger *log.Logger, msg string, err error) int {
	logger.Error(msg, "error", err)
	if errors.Is(err, core.ErrInvalidArgument) {
		return 2
	}
	return 1
}
