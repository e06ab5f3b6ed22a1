// Package sheets lays a report out as spreadsheet tables for outbound exporters.
package sheets

import (
	"context"

	"datainsight/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportExporter writes a full report to an external destination.
	ReportExporter interface {
		ExportReport(ctx context.Context, rep core.Report) (ExportResult, error)
	}
)

// ExportResult describes what an export wrote.
type ExportResult struct {
	Destination string   `json:"destination"`
	Sheets      []string `json:"sheets"`
	Rows        int      `json:"rows"`
}
