package storage

import (
	"context"
	"fmt"
	"time"

	"datainsight/internal/core"
	"datainsight/internal/records"
)

var clientColumn = map[records.ClientField]string{
	records.ByCountry:    "country",
	records.ByProfession: "profession",
}

func (r *SQLiteRepository) CountClientsGroupedBy(ctx context.Context, field records.ClientField) ([]core.GroupCount, error) {
	col, ok := clientColumn[field]
	if !ok {
		return nil, fmt.Errorf("client field %q: %w", field, core.ErrUnsupportedField)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+col+`, COUNT(*) AS n FROM clients GROUP BY `+col+` ORDER BY n DESC, `+col+` ASC`)
	if err != nil {
		return nil, fmt.Errorf("count clients by %s: %w", field, err)
	}
	defer rows.Close()

	var out []core.GroupCount
	for rows.Next() {
		var g core.GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, fmt.Errorf("scan client group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AverageAgeGroupedBy(ctx context.Context, field records.ClientField) ([]core.AgeRow, error) {
	col, ok := clientColumn[field]
	if !ok {
		return nil, fmt.Errorf("client field %q: %w", field, core.ErrUnsupportedField)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+col+`, AVG(age) AS avg_age, COUNT(*) FROM clients GROUP BY `+col+` ORDER BY avg_age DESC, `+col+` ASC`)
	if err != nil {
		return nil, fmt.Errorf("average age by %s: %w", field, err)
	}
	defer rows.Close()

	var out []core.AgeRow
	for rows.Next() {
		var a core.AgeRow
		if err := rows.Scan(&a.Key, &a.AverageAge, &a.Count); err != nil {
			return nil, fmt.Errorf("scan age group: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SumAvgCountGroupedBy(ctx context.Context, field records.TransactionField) ([]core.RevenueRow, error) {
	var query string
	switch field {
	case records.ByCategory:
		query = `SELECT t.category AS k, SUM(t.amount) AS total, AVG(t.amount), COUNT(*)
FROM transactions t GROUP BY t.category ORDER BY total DESC, k ASC`
	case records.ByClientCountry:
		query = `SELECT COALESCE(c.country, '` + core.UnknownKey + `') AS k, SUM(t.amount) AS total, AVG(t.amount), COUNT(*)
FROM transactions t LEFT JOIN clients c ON c.id = t.client_id
GROUP BY k ORDER BY total DESC, k ASC`
	default:
		return nil, fmt.Errorf("transaction field %q: %w", field, core.ErrUnsupportedField)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("revenue by %s: %w", field, err)
	}
	defer rows.Close()

	var out []core.RevenueRow
	for rows.Next() {
		var row core.RevenueRow
		if err := rows.Scan(&row.Key, &row.Total, &row.Average, &row.Count); err != nil {
			return nil, fmt.Errorf("scan revenue group: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TopClientsBySpend(ctx context.Context, limit int) ([]core.ClientSpend, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.last_name, c.first_name, c.country, SUM(t.amount) AS total, COUNT(t.id)
FROM transactions t JOIN clients c ON c.id = t.client_id
GROUP BY c.id
ORDER BY total DESC, c.id ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top clients: %w", err)
	}
	defer rows.Close()

	var out []core.ClientSpend
	for rows.Next() {
		var s core.ClientSpend
		if err := rows.Scan(&s.ClientID, &s.LastName, &s.FirstName, &s.Country, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("scan client spend: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SalesByMonth(ctx context.Context) ([]core.MonthSales, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT CAST(strftime('%Y', date) AS INTEGER) AS y, CAST(strftime('%m', date) AS INTEGER) AS m,
       SUM(amount), COUNT(*)
FROM transactions
GROUP BY y, m
ORDER BY y DESC, m DESC`)
	if err != nil {
		return nil, fmt.Errorf("sales by month: %w", err)
	}
	defer rows.Close()

	var out []core.MonthSales
	for rows.Next() {
		var s core.MonthSales
		if err := rows.Scan(&s.Year, &s.Month, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("scan month sales: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SalesSince(ctx context.Context, since time.Time) ([]core.DaySales, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT date, SUM(amount), COUNT(*)
FROM transactions
WHERE date >= ?
GROUP BY date
ORDER BY date DESC`, since.Format(core.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("sales since %s: %w", since.Format(core.DateLayout), err)
	}
	defer rows.Close()

	var out []core.DaySales
	for rows.Next() {
		var (
			s    core.DaySales
			date string
		)
		if err := rows.Scan(&date, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("scan day sales: %w", err)
		}
		if s.Date, err = time.Parse(core.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TotalRevenue(ctx context.Context) (float64, error) {
	var total float64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions`).Scan(&total); err != nil {
		return 0, fmt.Errorf("total revenue: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) AverageTransactionAmount(ctx context.Context) (float64, error) {
	var avg float64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(amount), 0) FROM transactions`).Scan(&avg); err != nil {
		return 0, fmt.Errorf("average transaction amount: %w", err)
	}
	return avg, nil
}
