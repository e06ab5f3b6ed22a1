// Package google exports reports to a Google Sheets spreadsheet, one sheet per section.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"datainsight/internal/core"
	ports "datainsight/internal/sheets"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetPrefix        string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
	logger        *slog.Logger
}

// Ensure interface conformance
var _ ports.ReportExporter = (*Client)(nil)

// New creates a Sheets exporter authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = slog.Default()
	}

	credentialsJSON, err := serviceAccountCredentials(cfg)
	if err != nil {
		return nil, err
	}

	jwt, err := goauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithTokenSource(jwt.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets exporter ready", "spreadsheet_id", spreadsheetID)
	return NewWithService(svc, spreadsheetID, cfg.SheetPrefix, logger), nil
}

// NewWithService wraps an existing service, for custom transports.
func NewWithService(svc *gsheet.Service, spreadsheetID, prefix string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		prefix:        prefix,
		logger:        logger,
	}
}

// serviceAccountCredentials prefers inline JSON over a credentials file.
func serviceAccountCredentials(cfg Config) ([]byte, error) {
	if inline := strings.TrimSpace(cfg.ServiceAccountJSON); inline != "" {
		return []byte(inline), nil
	}
	if path := strings.TrimSpace(cfg.ServiceAccountFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// ExportReport creates any missing section sheets, clears them and writes
// every section. A section's previous content never survives an export.
func (c *Client) ExportReport(ctx context.Context, rep core.Report) (ports.ExportResult, error) {
	if c.svc == nil {
		return ports.ExportResult{}, errors.New("sheets service not initialized")
	}

	tables := ports.Tables(rep)
	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = ports.SheetName(c.prefix, tb.Title)
	}

	if err := c.ensureSheets(ctx, names); err != nil {
		return ports.ExportResult{}, err
	}

	clearReq := &gsheet.BatchClearValuesRequest{Ranges: make([]string, len(names))}
	for i, name := range names {
		clearReq.Ranges[i] = ports.QuoteSheet(name)
	}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, clearReq).Context(ctx).Do(); err != nil {
		return ports.ExportResult{}, fmt.Errorf("clear report sheets: %w", err)
	}

	update := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW"}
	rows := 0
	for i, tb := range tables {
		update.Data = append(update.Data, &gsheet.ValueRange{
			Range:  ports.QuoteSheet(names[i]) + "!A1",
			Values: tb.Rows,
		})
		rows += len(tb.Rows)
	}
	resp, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, update).Context(ctx).Do()
	if err != nil {
		return ports.ExportResult{}, fmt.Errorf("write report sheets: %w", err)
	}

	c.logger.InfoContext(ctx, "Report exported to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"sheets", len(names),
		"rows", rows,
		"updated_cells", resp.TotalUpdatedCells)

	return ports.ExportResult{
		Destination: c.spreadsheetID,
		Sheets:      names,
		Rows:        rows,
	}, nil
}

// ensureSheets adds the sheets in names that the spreadsheet lacks.
func (c *Client) ensureSheets(ctx context.Context, names []string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}

	existing := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var requests []*gsheet.Request
	for _, name := range names {
		if existing[name] {
			continue
		}
		requests = append(requests, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		})
	}
	if len(requests) == 0 {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add %d report sheets: %w", len(requests), err)
	}
	c.logger.InfoContext(ctx, "Created report sheets", "count", len(requests))
	return nil
}
