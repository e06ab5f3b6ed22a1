package sheets

import (
	"fmt"
	"math"
	"strings"
	"time"

	"datainsight/internal/core"
)

// Table is one report section as a header row followed by data rows.
type Table struct {
	Title string
	Rows  [][]any
}

// Section titles, one sheet each.
const (
	TitleOverview            = "Overview"
	TitleRevenueByCountry    = "Revenue by Country"
	TitleRevenueByCategory   = "Revenue by Category"
	TitleTopClients          = "Top Clients"
	TitleSalesByMonth        = "Sales by Month"
	TitleSalesByDay          = "Sales by Day"
	TitleClientsByCountry    = "Clients by Country"
	TitleClientsByProfession = "Clients by Profession"
	TitleAgeByCountry        = "Age by Country"
)

// Tables lays rep out in a fixed section order.
func Tables(rep core.Report) []Table {
	return []Table{
		overviewTable(rep),
		revenueTable(TitleRevenueByCountry, "Country", rep.RevenueByCountry),
		revenueTable(TitleRevenueByCategory, "Category", rep.RevenueByCategory),
		topClientsTable(rep.TopClients),
		salesByMonthTable(rep.SalesByMonth),
		salesByDayTable(rep.SalesByDay),
		shareTable(TitleClientsByCountry, "Country", rep.ClientsByCountry),
		shareTable(TitleClientsByProfession, "Profession", rep.ClientsByProfession),
		ageTable(rep.AgeByCountry),
	}
}

// SheetName returns "<prefix> <title>", or title alone for an empty prefix.
func SheetName(prefix, title string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return title
	}
	return prefix + " " + title
}

// QuoteSheet returns name quoted for A1 notation.
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// Round2 rounds v to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func overviewTable(rep core.Report) Table {
	ov := rep.Overview
	return Table{Title: TitleOverview, Rows: [][]any{
		{"Metric", "Value"},
		{"Generated at", rep.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Total clients", ov.TotalClients},
		{"Total transactions", ov.TotalTransactions},
		{"Total revenue", Round2(ov.TotalRevenue)},
		{"Average transaction", Round2(ov.AverageTransaction)},
	}}
}

func revenueTable(title, label string, rows []core.RevenueRow) Table {
	out := [][]any{{label, "Total revenue", "Average amount", "Transactions"}}
	for _, r := range rows {
		out = append(out, []any{r.Key, Round2(r.Total), Round2(r.Average), r.Count})
	}
	return Table{Title: title, Rows: out}
}

func topClientsTable(rows []core.ClientSpend) Table {
	out := [][]any{{"Rank", "Client ID", "Name", "Country", "Total spent", "Transactions"}}
	for i, r := range rows {
		name := strings.TrimSpace(r.FirstName + " " + r.LastName)
		out = append(out, []any{i + 1, r.ClientID, name, r.Country, Round2(r.Total), r.Count})
	}
	return Table{Title: TitleTopClients, Rows: out}
}

func salesByMonthTable(rows []core.MonthSales) Table {
	out := [][]any{{"Month", "Total revenue", "Transactions"}}
	for _, r := range rows {
		out = append(out, []any{fmt.Sprintf("%04d-%02d", r.Year, r.Month), Round2(r.Total), r.Count})
	}
	return Table{Title: TitleSalesByMonth, Rows: out}
}

func salesByDayTable(rows []core.DaySales) Table {
	out := [][]any{{"Date", "Total revenue", "Transactions"}}
	for _, r := range rows {
		out = append(out, []any{r.Date.Format(core.DateLayout), Round2(r.Total), r.Count})
	}
	return Table{Title: TitleSalesByDay, Rows: out}
}

func shareTable(title, label string, rows []core.ShareRow) Table {
	out := [][]any{{label, "Clients", "Percentage"}}
	for _, r := range rows {
		out = append(out, []any{r.Key, r.Count, Round2(r.Percent)})
	}
	return Table{Title: title, Rows: out}
}

func ageTable(rows []core.AgeRow) Table {
	out := [][]any{{"Country", "Average age", "Clients"}}
	for _, r := range rows {
		out = append(out, []any{r.Key, Round2(r.AverageAge), r.Count})
	}
	return Table{Title: TitleAgeByCountry, Rows: out}
}
