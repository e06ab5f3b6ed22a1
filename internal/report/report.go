// Package report renders analytics reports and run summaries for terminals.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"datainsight/internal/core"
	"datainsight/internal/services"
)

const rule = "================================================================"

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func count(n int64) string {
	return humanize.Comma(n)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// WriteText renders rep as sectioned, column-aligned text.
func WriteText(w io.Writer, rep core.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\nANALYTICS REPORT  %s\n%s\n", rule, rep.GeneratedAt.Format(time.RFC3339), rule)
	if rep.Empty {
		fmt.Fprintln(tw, "\nNo data. Generate clients and transactions first.")
		return tw.Flush()
	}

	ov := rep.Overview
	section(tw, "GLOBAL STATISTICS")
	fmt.Fprintf(tw, "Clients\t%s\n", count(ov.TotalClients))
	fmt.Fprintf(tw, "Transactions\t%s\n", count(ov.TotalTransactions))
	fmt.Fprintf(tw, "Total revenue\t%s\n", money(ov.TotalRevenue))
	fmt.Fprintf(tw, "Average transaction\t%s\n", money(ov.AverageTransaction))

	section(tw, "REVENUE BY COUNTRY")
	revenueTable(tw, "Country", rep.RevenueByCountry)

	section(tw, "TOP CLIENTS")
	fmt.Fprintln(tw, "#\tClient\tCountry\tTotal spent\tTransactions")
	for i, c := range rep.TopClients {
		name := strings.TrimSpace(c.FirstName + " " + c.LastName)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, name, c.Country, money(c.Total), count(c.Count))
	}

	section(tw, "REVENUE BY CATEGORY")
	revenueTable(tw, "Category", rep.RevenueByCategory)

	section(tw, "SALES BY MONTH")
	fmt.Fprintln(tw, "Month\tRevenue\tTransactions")
	for _, m := range rep.SalesByMonth {
		fmt.Fprintf(tw, "%04d-%02d\t%s\t%s\n", m.Year, m.Month, money(m.Total), count(m.Count))
	}

	section(tw, "SALES BY DAY")
	fmt.Fprintln(tw, "Date\tRevenue\tTransactions")
	for _, d := range rep.SalesByDay {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Date.Format(core.DateLayout), money(d.Total), count(d.Count))
	}

	section(tw, "CLIENTS BY COUNTRY")
	shareTable(tw, "Country", rep.ClientsByCountry)

	section(tw, "CLIENTS BY PROFESSION")
	shareTable(tw, "Profession", rep.ClientsByProfession)

	section(tw, "AVERAGE AGE BY COUNTRY")
	fmt.Fprintln(tw, "Country\tAverage age\tClients")
	for _, a := range rep.AgeByCountry {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\n", a.Key, a.AverageAge, count(a.Count))
	}

	fmt.Fprintln(tw, "\n"+rule)
	return tw.Flush()
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

func revenueTable(w io.Writer, label string, rows []core.RevenueRow) {
	fmt.Fprintf(w, "%s\tRevenue\tAverage\tTransactions\n", label)
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Key, money(r.Total), money(r.Average), count(r.Count))
	}
}

func shareTable(w io.Writer, label string, rows []core.ShareRow) {
	fmt.Fprintf(w, "%s\tClients\tShare\n", label)
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Key, count(r.Count), pct(r.Percent))
	}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRunSummary prints the committed counts, elapsed time and rate of a run.
func WriteRunSummary(w io.Writer, s services.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Generation complete")
	fmt.Fprintf(tw, "Clients\t%s\t%s\n", count(int64(s.Clients.Committed)), s.Clients.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(tw, "Transactions\t%s\t%s\n", count(int64(s.Transactions.Committed)), s.Transactions.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(tw, "Total\t%s\t%s\n", count(int64(s.Records())), s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(tw, "Rate\t%s records/s\t\n", humanize.FormatFloat("#,###.", s.Rate))
	return tw.Flush()
}
