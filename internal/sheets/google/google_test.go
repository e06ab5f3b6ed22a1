package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"datainsight/internal/core"
	ports "datainsight/internal/sheets"
)

// fakeSheets serves the four Sheets endpoints the exporter calls.
type fakeSheets struct {
	mu       sync.Mutex
	existing []string
	added    []string
	cleared  []string
	written  []*gsheet.ValueRange
	failGet  bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sheet-1"):
		if f.failGet {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		ss := gsheet.Spreadsheet{SpreadsheetId: "sheet-1"}
		for _, title := range f.existing {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		_ = json.NewEncoder(w).Encode(ss)

	case strings.HasSuffix(path, "/v4/spreadsheets/sheet-1:batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.added = append(f.added, rq.AddSheet.Properties.Title)
		}
		_ = json.NewEncoder(w).Encode(gsheet.BatchUpdateSpreadsheetResponse{SpreadsheetId: "sheet-1"})

	case strings.HasSuffix(path, "/values:batchClear"):
		var req gsheet.BatchClearValuesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.cleared = append(f.cleared, req.Ranges...)
		_ = json.NewEncoder(w).Encode(gsheet.BatchClearValuesResponse{SpreadsheetId: "sheet-1", ClearedRanges: req.Ranges})

	case strings.HasSuffix(path, "/values:batchUpdate"):
		var req gsheet.BatchUpdateValuesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.written = append(f.written, req.Data...)
		_ = json.NewEncoder(w).Encode(gsheet.BatchUpdateValuesResponse{SpreadsheetId: "sheet-1", TotalUpdatedCells: 42})

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-1", "Report", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleReport() core.Report {
	return core.Report{
		GeneratedAt: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
		Overview:    core.Overview{TotalClients: 1, TotalTransactions: 2, TotalRevenue: 250, AverageTransaction: 125},
		RevenueByCountry: []core.RevenueRow{
			{Key: "France", Total: 250, Average: 125, Count: 2},
		},
	}
}

func TestExportReportCreatesMissingSheets(t *testing.T) {
	fake := &fakeSheets{existing: []string{"Report Overview", "Unrelated"}}
	c := newTestClient(t, fake)

	res, err := c.ExportReport(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("ExportReport: %v", err)
	}

	if len(res.Sheets) != 9 || res.Destination != "sheet-1" {
		t.Fatalf("result = %+v", res)
	}
	if len(fake.added) != 8 {
		t.Fatalf("added %d sheets: %v", len(fake.added), fake.added)
	}
	for _, name := range fake.added {
		if name == "Report Overview" {
			t.Fatal("existing sheet added again")
		}
	}
	if len(fake.cleared) != 9 || fake.cleared[0] != "'Report Overview'" {
		t.Fatalf("cleared = %v", fake.cleared)
	}
	if len(fake.written) != 9 {
		t.Fatalf("wrote %d ranges", len(fake.written))
	}
	if fake.written[1].Range != "'Report Revenue by Country'!A1" {
		t.Fatalf("range = %q", fake.written[1].Range)
	}
	if got := len(fake.written[1].Values); got != 2 {
		t.Fatalf("revenue by country rows = %d", got)
	}

	wantRows := 0
	for _, tb := range ports.Tables(sampleReport()) {
		wantRows += len(tb.Rows)
	}
	if res.Rows != wantRows {
		t.Fatalf("Rows = %d, want %d", res.Rows, wantRows)
	}
}

func TestExportReportSkipsAddWhenSheetsExist(t *testing.T) {
	var existing []string
	for _, tb := range ports.Tables(core.Report{}) {
		existing = append(existing, ports.SheetName("Report", tb.Title))
	}
	fake := &fakeSheets{existing: existing}
	c := newTestClient(t, fake)

	if _, err := c.ExportReport(context.Background(), core.Report{Empty: true}); err != nil {
		t.Fatalf("ExportReport: %v", err)
	}
	if len(fake.added) != 0 {
		t.Fatalf("unexpected sheet creation: %v", fake.added)
	}
}

func TestExportReportSpreadsheetError(t *testing.T) {
	fake := &fakeSheets{failGet: true}
	c := newTestClient(t, fake)

	_, err := c.ExportReport(context.Background(), sampleReport())
	if err == nil || !strings.Contains(err.Error(), "read spreadsheet sheet-1") {
		t.Fatalf("expected spreadsheet error, got %v", err)
	}
	if len(fake.written) != 0 {
		t.Fatal("nothing should be written after a failed read")
	}
}

func TestExportReportNilService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if _, err := c.ExportReport(context.Background(), core.Report{}); err == nil {
		t.Fatal("expected error for nil service")
	}
}

func TestServiceAccountCredentials(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"inline wins", Config{ServiceAccountJSON: ` {"inline":true} `, ServiceAccountFile: file}, `{"inline":true}`, false},
		{"file", Config{ServiceAccountFile: file}, `{"type":"service_account"}`, false},
		{"missing file", Config{ServiceAccountFile: filepath.Join(t.TempDir(), "nope.json")}, "", true},
		{"nothing", Config{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := serviceAccountCredentials(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRejectsMalformedCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:      "sheet-1",
		ServiceAccountJSON: `{"type":"authorized_user"}`,
	}, nil)
	if err == nil || !strings.Contains(err.Error(), "parse service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}
