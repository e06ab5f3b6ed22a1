// Package analytics computes grouped and global statistics over the persisted
// client and transaction population. Reductions run inside the record store when
// it implements records.GroupingStore and in process otherwise; both paths share
// the same ordering rules.
package analytics

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"datainsight/internal/core"
	"datainsight/internal/records"
)

const (
	DefaultTopClients = 10
	DefaultSalesDays  = 30
)

// ReportOptions tunes the parameterized sections of a report.
type ReportOptions struct {
	TopClients int
	SalesDays  int
}

func (o ReportOptions) normalized() ReportOptions {
	if o.TopClients <= 0 {
		o.TopClients = DefaultTopClients
	}
	if o.SalesDays <= 0 {
		o.SalesDays = DefaultSalesDays
	}
	return o
}

// Engine is stateless between calls and safe for concurrent use if the store is.
type Engine struct {
	store    records.Reader
	grouping records.GroupingStore
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLocalReduction ignores store-side grouping even when available.
func WithLocalReduction() Option {
	return func(e *Engine) { e.grouping = nil }
}

func New(store records.Reader, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now, logger: slog.Default()}
	if g, ok := store.(records.GroupingStore); ok {
		e.grouping = g
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// source picks the reduction path for one call.
func (e *Engine) source(ctx context.Context) (source, error) {
	if e.grouping != nil {
		return storeSource{Reader: e.store, GroupingStore: e.grouping}, nil
	}
	snap, err := loadSnapshot(ctx, e.store)
	if err != nil {
		return nil, unavailable("load records", err)
	}
	return snap, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}

func (e *Engine) RevenueByCountry(ctx context.Context) ([]core.RevenueRow, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	return revenue(ctx, src, records.ByClientCountry)
}

func (e *Engine) RevenueByCategory(ctx context.Context) ([]core.RevenueRow, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	return revenue(ctx, src, records.ByCategory)
}

// TopClients ranks clients by total spend. n <= 0 means DefaultTopClients.
func (e *Engine) TopClients(ctx context.Context, n int) ([]core.ClientSpend, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	return topClients(ctx, src, n)
}

func (e *Engine) SalesByMonth(ctx context.Context) ([]core.MonthSales, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	return salesByMonth(ctx, src)
}

// SalesByDay returns daily totals for dates on or after today minus days.
// days <= 0 means DefaultSalesDays.
func (e *Engine) SalesByDay(ctx context.Context, days int) ([]core.DaySales, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	return salesByDay(ctx, src, e.since(days))
}

func (e *Engine) ClientsByCountry(ctx context.Context) ([]core.ShareRow, error) {
	return e.clientShares(ctx, records.ByCountry)
}

func (e *Engine) ClientsByProfession(ctx context.Context) ([]core.ShareRow, error) {
	return e.clientShares(ctx, records.ByProfession)
}

func (e *Engine) clientShares(ctx context.Context, field records.ClientField) ([]core.ShareRow, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	total, err := src.countClients(ctx)
	if err != nil {
		return nil, unavailable("count clients", err)
	}
	return shares(ctx, src, field, total)
}

func (e *Engine) AverageAgeByCountry(ctx context.Context) ([]core.AgeRow, error) {
	src, err := e.source(ctx)
	if err != nil {
		return nil, err
	}
	return ages(ctx, src, records.ByCountry)
}

func (e *Engine) Overview(ctx context.Context) (core.Overview, error) {
	src, err := e.source(ctx)
	if err != nil {
		return core.Overview{}, err
	}
	return overview(ctx, src)
}

// Report computes every section against a single client total. An empty
// population yields a report with Empty set and zero values, not an error.
func (e *Engine) Report(ctx context.Context, opts ReportOptions) (core.Report, error) {
	start := time.Now()
	opts = opts.normalized()

	src, err := e.source(ctx)
	if err != nil {
		return core.Report{}, err
	}

	ov, err := overview(ctx, src)
	if err != nil {
		return core.Report{}, err
	}
	rep := core.Report{
		GeneratedAt: e.now(),
		Empty:       ov.TotalClients == 0,
		Overview:    ov,
	}

	if rep.RevenueByCountry, err = revenue(ctx, src, records.ByClientCountry); err != nil {
		return core.Report{}, err
	}
	if rep.RevenueByCategory, err = revenue(ctx, src, records.ByCategory); err != nil {
		return core.Report{}, err
	}
	if rep.TopClients, err = topClients(ctx, src, opts.TopClients); err != nil {
		return core.Report{}, err
	}
	if rep.SalesByMonth, err = salesByMonth(ctx, src); err != nil {
		return core.Report{}, err
	}
	if rep.SalesByDay, err = salesByDay(ctx, src, e.since(opts.SalesDays)); err != nil {
		return core.Report{}, err
	}
	if rep.ClientsByCountry, err = shares(ctx, src, records.ByCountry, ov.TotalClients); err != nil {
		return core.Report{}, err
	}
	if rep.ClientsByProfession, err = shares(ctx, src, records.ByProfession, ov.TotalClients); err != nil {
		return core.Report{}, err
	}
	if rep.AgeByCountry, err = ages(ctx, src, records.ByCountry); err != nil {
		return core.Report{}, err
	}

	e.logger.DebugContext(ctx, "Report computed",
		"clients", ov.TotalClients, "transactions", ov.TotalTransactions,
		"store_grouping", e.grouping != nil, "duration", time.Since(start).String())
	return rep, nil
}

func (e *Engine) since(days int) time.Time {
	if days <= 0 {
		days = DefaultSalesDays
	}
	return core.CivilDate(e.now()).AddDate(0, 0, -days)
}

func overview(ctx context.Context, src source) (core.Overview, error) {
	var (
		ov  core.Overview
		err error
	)
	if ov.TotalClients, err = src.countClients(ctx); err != nil {
		return core.Overview{}, unavailable("count clients", err)
	}
	if ov.TotalTransactions, err = src.countTransactions(ctx); err != nil {
		return core.Overview{}, unavailable("count transactions", err)
	}
	if ov.TotalRevenue, err = src.totalRevenue(ctx); err != nil {
		return core.Overview{}, unavailable("total revenue", err)
	}
	if ov.AverageTransaction, err = src.averageAmount(ctx); err != nil {
		return core.Overview{}, unavailable("average amount", err)
	}
	return ov, nil
}

func revenue(ctx context.Context, src source, field records.TransactionField) ([]core.RevenueRow, error) {
	rows, err := src.revenueGroups(ctx, field)
	if err != nil {
		return nil, unavailable("revenue by "+string(field), err)
	}
	slices.SortFunc(rows, func(a, b core.RevenueRow) int {
		return byDescThenKey(a.Total, b.Total, a.Key, b.Key)
	})
	return orEmpty(rows), nil
}

func topClients(ctx context.Context, src source, n int) ([]core.ClientSpend, error) {
	if n <= 0 {
		n = DefaultTopClients
	}
	rows, err := src.topClients(ctx, n)
	if err != nil {
		return nil, unavailable("top clients", err)
	}
	slices.SortFunc(rows, func(a, b core.ClientSpend) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.ClientID, b.ClientID)
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return orEmpty(rows), nil
}

func salesByMonth(ctx context.Context, src source) ([]core.MonthSales, error) {
	rows, err := src.salesByMonth(ctx)
	if err != nil {
		return nil, unavailable("sales by month", err)
	}
	slices.SortFunc(rows, func(a, b core.MonthSales) int {
		if c := cmp.Compare(b.Year, a.Year); c != 0 {
			return c
		}
		return cmp.Compare(b.Month, a.Month)
	})
	return orEmpty(rows), nil
}

func salesByDay(ctx context.Context, src source, since time.Time) ([]core.DaySales, error) {
	rows, err := src.salesSince(ctx, since)
	if err != nil {
		return nil, unavailable("sales by day", err)
	}
	slices.SortFunc(rows, func(a, b core.DaySales) int {
		return b.Date.Compare(a.Date)
	})
	return orEmpty(rows), nil
}

func shares(ctx context.Context, src source, field records.ClientField, total int64) ([]core.ShareRow, error) {
	groups, err := src.clientGroups(ctx, field)
	if err != nil {
		return nil, unavailable("clients by "+string(field), err)
	}
	rows := make([]core.ShareRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, core.ShareRow{Key: g.Key, Count: g.Count, Percent: core.Percent(g.Count, total)})
	}
	slices.SortFunc(rows, func(a, b core.ShareRow) int {
		return byDescThenKey(a.Count, b.Count, a.Key, b.Key)
	})
	return rows, nil
}

func ages(ctx context.Context, src source, field records.ClientField) ([]core.AgeRow, error) {
	rows, err := src.ageGroups(ctx, field)
	if err != nil {
		return nil, unavailable("average age by "+string(field), err)
	}
	slices.SortFunc(rows, func(a, b core.AgeRow) int {
		return byDescThenKey(a.AverageAge, b.AverageAge, a.Key, b.Key)
	})
	return orEmpty(rows), nil
}

func byDescThenKey[N cmp.Ordered](a, b N, ka, kb string) int {
	if c := cmp.Compare(b, a); c != 0 {
		return c
	}
	return strings.Compare(ka, kb)
}

func orEmpty[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
