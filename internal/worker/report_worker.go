// Package worker turns run-completed notifications into refreshed reports.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"datainsight/internal/amqp"
	"datainsight/internal/analytics"
	"datainsight/internal/cache"
	"datainsight/internal/core"
	"datainsight/internal/sheets"
)

const (
	seenMessages   = 256
	seenMessageTTL = 24 * time.Hour
)

// ReportBuilder computes a full report.
type ReportBuilder interface {
	Report(ctx context.Context, opts analytics.ReportOptions) (core.Report, error)
}

// ReportWorker rebuilds the report after every committed run and exports it
// when an exporter is configured.
type ReportWorker struct {
	builder  ReportBuilder
	exporter sheets.ReportExporter
	opts     analytics.ReportOptions
	logger   *slog.Logger
	seen     *cache.LRUCache[time.Time]

	mu sync.Mutex // serializes refreshes
}

// NewReportWorker accepts a nil exporter; reports are then only logged.
func NewReportWorker(builder ReportBuilder, exporter sheets.ReportExporter, opts analytics.ReportOptions, logger *slog.Logger) *ReportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWorker{
		builder:  builder,
		exporter: exporter,
		opts:     opts,
		logger:   logger,
		seen:     cache.NewLRUCache[time.Time](seenMessages, seenMessageTTL),
	}
}

// HandleRunCompleted processes one notification. Redelivered messages are
// acknowledged without work; a failed build or export is returned for requeue.
func (w *ReportWorker) HandleRunCompleted(ctx context.Context, msg *amqp.RunCompletedMessage) error {
	key := msg.ID.String()
	if _, dup := w.seen.Get(key); dup {
		w.logger.InfoContext(ctx, "Skipping already processed run message", "message_id", key)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing run completed message",
		"message_id", key,
		"client_run_id", msg.ClientRunID.String(),
		"clients", msg.Clients,
		"transactions", msg.Transactions)

	if err := w.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh report for message %s: %w", key, err)
	}
	w.seen.Set(key, msg.Timestamp)
	return nil
}

// Refresh builds the current report and exports or logs it.
func (w *ReportWorker) Refresh(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rep, err := w.builder.Report(ctx, w.opts)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if w.exporter == nil {
		w.logSummary(ctx, rep)
		return nil
	}

	res, err := w.exporter.ExportReport(ctx, rep)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	w.logger.InfoContext(ctx, "Report exported",
		"destination", res.Destination,
		"sheets", len(res.Sheets),
		"rows", res.Rows)
	return nil
}

// StartupRefresh refreshes once so the destination reflects runs committed
// while the worker was down. Failures are logged, not fatal.
func (w *ReportWorker) StartupRefresh(ctx context.Context) {
	if err := w.Refresh(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup report refresh failed", "error", err)
	}
}

func (w *ReportWorker) logSummary(ctx context.Context, rep core.Report) {
	attrs := []any{
		"clients", rep.Overview.TotalClients,
		"transactions", rep.Overview.TotalTransactions,
		"revenue", fmt.Sprintf("%.2f", rep.Overview.TotalRevenue),
		"average", fmt.Sprintf("%.2f", rep.Overview.AverageTransaction),
	}
	if len(rep.RevenueByCountry) > 0 {
		attrs = append(attrs, "top_country", rep.RevenueByCountry[0].Key)
	}
	if len(rep.TopClients) > 0 {
		attrs = append(attrs, "top_client_id", rep.TopClients[0].ClientID)
	}
	w.logger.InfoContext(ctx, "Report refreshed", attrs...)
}
