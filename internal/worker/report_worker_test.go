package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"datainsight/internal/amqp"
	"datainsight/internal/analytics"
	"datainsight/internal/core"
	"datainsight/internal/sheets"
)

type fakeBuilder struct {
	rep   core.Report
	err   error
	calls int
	opts  analytics.ReportOptions
}

func (f *fakeBuilder) Report(_ context.Context, opts analytics.ReportOptions) (core.Report, error) {
	f.calls++
	f.opts = opts
	return f.rep, f.err
}

type fakeExporter struct {
	err     error
	exports []core.Report
}

func (f *fakeExporter) ExportReport(_ context.Context, rep core.Report) (sheets.ExportResult, error) {
	if f.err != nil {
		return sheets.ExportResult{}, f.err
	}
	f.exports = append(f.exports, rep)
	return sheets.ExportResult{Destination: "sheet-1", Sheets: []string{"Report Overview"}, Rows: 6}, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func message() *amqp.RunCompletedMessage {
	return amqp.NewRunCompletedMessage(uuid.New(), uuid.New(), 10, 50, 2*time.Second, 30)
}

func sampleReport() core.Report {
	return core.Report{
		Overview:         core.Overview{TotalClients: 10, TotalTransactions: 50, TotalRevenue: 1234.5, AverageTransaction: 24.69},
		RevenueByCountry: []core.RevenueRow{{Key: "Germany", Total: 700, Count: 20}},
		TopClients:       []core.ClientSpend{{ClientID: 3, Total: 300}},
	}
}

func TestHandleRunCompletedExports(t *testing.T) {
	builder := &fakeBuilder{rep: sampleReport()}
	exporter := &fakeExporter{}
	opts := analytics.ReportOptions{TopClients: 5, SalesDays: 14}
	w := NewReportWorker(builder, exporter, opts, quiet())

	if err := w.HandleRunCompleted(context.Background(), message()); err != nil {
		t.Fatalf("HandleRunCompleted: %v", err)
	}
	if len(exporter.exports) != 1 || exporter.exports[0].Overview.TotalClients != 10 {
		t.Fatalf("exports = %+v", exporter.exports)
	}
	if builder.opts != opts {
		t.Fatalf("report options = %+v", builder.opts)
	}
}

func TestHandleRunCompletedSkipsDuplicates(t *testing.T) {
	builder := &fakeBuilder{rep: sampleReport()}
	exporter := &fakeExporter{}
	w := NewReportWorker(builder, exporter, analytics.ReportOptions{}, quiet())

	msg := message()
	for range 3 {
		if err := w.HandleRunCompleted(context.Background(), msg); err != nil {
			t.Fatalf("HandleRunCompleted: %v", err)
		}
	}
	if builder.calls != 1 || len(exporter.exports) != 1 {
		t.Fatalf("builder calls %d, exports %d", builder.calls, len(exporter.exports))
	}

	if err := w.HandleRunCompleted(context.Background(), message()); err != nil {
		t.Fatal(err)
	}
	if builder.calls != 2 {
		t.Fatalf("a new message should rebuild, calls = %d", builder.calls)
	}
}

func TestHandleRunCompletedFailuresAreRetried(t *testing.T) {
	tests := []struct {
		name     string
		builder  *fakeBuilder
		exporter *fakeExporter
		want     string
	}{
		{
			name:     "build",
			builder:  &fakeBuilder{err: core.ErrStoreUnavailable},
			exporter: &fakeExporter{},
			want:     "build report",
		},
		{
			name:     "export",
			builder:  &fakeBuilder{rep: sampleReport()},
			exporter: &fakeExporter{err: errors.New("quota exceeded")},
			want:     "export report",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewReportWorker(tt.builder, tt.exporter, analytics.ReportOptions{}, quiet())
			msg := message()

			err := w.HandleRunCompleted(context.Background(), msg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q error, got %v", tt.want, err)
			}

			// a failed message is not remembered, so redelivery retries it
			tt.exporter.err = nil
			tt.builder.err = nil
			if err := w.HandleRunCompleted(context.Background(), msg); err != nil {
				t.Fatalf("retry: %v", err)
			}
			if len(tt.exporter.exports) != 1 {
				t.Fatalf("exports after retry = %d", len(tt.exporter.exports))
			}
		})
	}
}

func TestRefreshWithoutExporterLogsSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := NewReportWorker(&fakeBuilder{rep: sampleReport()}, nil, analytics.ReportOptions{}, logger)

	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Report refreshed", "clients=10", "revenue=1234.50", "top_country=Germany", "top_client_id=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestStartupRefreshSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := NewReportWorker(&fakeBuilder{err: errors.New("boom")}, nil, analytics.ReportOptions{}, logger)

	w.StartupRefresh(context.Background())
	if !strings.Contains(buf.String(), "Startup report refresh failed") {
		t.Fatalf("expected failure log, got %q", buf.String())
	}
}
