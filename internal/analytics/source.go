package analytics

import (
	"context"
	"fmt"
	"time"

	"datainsight/internal/core"
	"datainsight/internal/records"
)

type source interface {
	countClients(ctx context.Context) (int64, error)
	countTransactions(ctx context.Context) (int64, error)
	clientGroups(ctx context.Context, field records.ClientField) ([]core.GroupCount, error)
	ageGroups(ctx context.Context, field records.ClientField) ([]core.AgeRow, error)
	revenueGroups(ctx context.Context, field records.TransactionField) ([]core.RevenueRow, error)
	topClients(ctx context.Context, limit int) ([]core.ClientSpend, error)
	salesByMonth(ctx context.Context) ([]core.MonthSales, error)
	salesSince(ctx context.Context, since time.Time) ([]core.DaySales, error)
	totalRevenue(ctx context.Context) (float64, error)
	averageAmount(ctx context.Context) (float64, error)
}

// storeSource delegates every reduction to the record store.
type storeSource struct {
	records.Reader
	records.GroupingStore
}

func (s storeSource) countClients(ctx context.Context) (int64, error) {
	return s.CountClients(ctx)
}

func (s storeSource) countTransactions(ctx context.Context) (int64, error) {
	return s.CountTransactions(ctx)
}

func (s storeSource) clientGroups(ctx context.Context, field records.ClientField) ([]core.GroupCount, error) {
	return s.CountClientsGroupedBy(ctx, field)
}

func (s storeSource) ageGroups(ctx context.Context, field records.ClientField) ([]core.AgeRow, error) {
	return s.AverageAgeGroupedBy(ctx, field)
}

func (s storeSource) revenueGroups(ctx context.Context, field records.TransactionField) ([]core.RevenueRow, error) {
	return s.SumAvgCountGroupedBy(ctx, field)
}

func (s storeSource) topClients(ctx context.Context, limit int) ([]core.ClientSpend, error) {
	return s.TopClientsBySpend(ctx, limit)
}

func (s storeSource) salesByMonth(ctx context.Context) ([]core.MonthSales, error) {
	return s.SalesByMonth(ctx)
}

func (s storeSource) salesSince(ctx context.Context, since time.Time) ([]core.DaySales, error) {
	return s.SalesSince(ctx, since)
}

func (s storeSource) totalRevenue(ctx context.Context) (float64, error) {
	return s.TotalRevenue(ctx)
}

func (s storeSource) averageAmount(ctx context.Context) (float64, error) {
	return s.AverageTransactionAmount(ctx)
}

// snapshot reduces a full read of the store in process.
type snapshot struct {
	clients []core.Client
	owners  map[int64]core.Client
	txs     []core.Transaction
}

func loadSnapshot(ctx context.Context, r records.Reader) (*snapshot, error) {
	clients, err := r.FindAllClients(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := r.FindAllTransactions(ctx)
	if err != nil {
		return nil, err
	}
	owners := make(map[int64]core.Client, len(clients))
	for _, c := range clients {
		owners[c.ID] = c
	}
	return &snapshot{clients: clients, owners: owners, txs: txs}, nil
}

func (s *snapshot) countClients(context.Context) (int64, error) {
	return int64(len(s.clients)), nil
}

func (s *snapshot) countTransactions(context.Context) (int64, error) {
	return int64(len(s.txs)), nil
}

func clientKey(c core.Client, field records.ClientField) (string, error) {
	switch field {
	case records.ByCountry:
		return c.Country, nil
	case records.ByProfession:
		return c.Profession, nil
	default:
		return "", fmt.Errorf("client field %q: %w", field, core.ErrUnsupportedField)
	}
}

func (s *snapshot) clientGroups(_ context.Context, field records.ClientField) ([]core.GroupCount, error) {
	counts := map[string]int64{}
	var order []string
	for _, c := range s.clients {
		key, err := clientKey(c, field)
		if err != nil {
			return nil, err
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}
	rows := make([]core.GroupCount, 0, len(order))
	for _, key := range order {
		rows = append(rows, core.GroupCount{Key: key, Count: counts[key]})
	}
	return rows, nil
}

func (s *snapshot) ageGroups(_ context.Context, field records.ClientField) ([]core.AgeRow, error) {
	type acc struct {
		sum   int64
		count int64
	}
	groups := map[string]*acc{}
	var order []string
	for _, c := range s.clients {
		key, err := clientKey(c, field)
		if err != nil {
			return nil, err
		}
		a, ok := groups[key]
		if !ok {
			a = &acc{}
			groups[key] = a
			order = append(order, key)
		}
		a.sum += int64(c.Age)
		a.count++
	}
	rows := make([]core.AgeRow, 0, len(order))
	for _, key := range order {
		a := groups[key]
		rows = append(rows, core.AgeRow{Key: key, AverageAge: core.Average(float64(a.sum), a.count), Count: a.count})
	}
	return rows, nil
}

func (s *snapshot) transactionKey(t core.Transaction, field records.TransactionField) (string, error) {
	switch field {
	case records.ByCategory:
		return t.Category, nil
	case records.ByClientCountry:
		owner, ok := s.owners[t.ClientID]
		if !ok {
			return core.UnknownKey, nil
		}
		return owner.Country, nil
	default:
		return "", fmt.Errorf("transaction field %q: %w", field, core.ErrUnsupportedField)
	}
}

type sums struct {
	total float64
	count int64
}

func (s *snapshot) revenueGroups(_ context.Context, field records.TransactionField) ([]core.RevenueRow, error) {
	groups := map[string]*sums{}
	var order []string
	for _, t := range s.txs {
		key, err := s.transactionKey(t, field)
		if err != nil {
			return nil, err
		}
		g, ok := groups[key]
		if !ok {
			g = &sums{}
			groups[key] = g
			order = append(order, key)
		}
		g.total += t.Amount
		g.count++
	}
	rows := make([]core.RevenueRow, 0, len(order))
	for _, key := range order {
		g := groups[key]
		rows = append(rows, core.RevenueRow{Key: key, Total: g.total, Average: core.Average(g.total, g.count), Count: g.count})
	}
	return rows, nil
}

// topClients returns every owning client; the caller sorts and truncates.
func (s *snapshot) topClients(context.Context, int) ([]core.ClientSpend, error) {
	spend := map[int64]*sums{}
	for _, t := range s.txs {
		if _, ok := s.owners[t.ClientID]; !ok {
			continue
		}
		g, ok := spend[t.ClientID]
		if !ok {
			g = &sums{}
			spend[t.ClientID] = g
		}
		g.total += t.Amount
		g.count++
	}
	rows := make([]core.ClientSpend, 0, len(spend))
	for id, g := range spend {
		c := s.owners[id]
		rows = append(rows, core.ClientSpend{
			ClientID:  id,
			LastName:  c.LastName,
			FirstName: c.FirstName,
			Country:   c.Country,
			Total:     g.total,
			Count:     g.count,
		})
	}
	return rows, nil
}

func (s *snapshot) salesByMonth(context.Context) ([]core.MonthSales, error) {
	type month struct{ year, month int }
	groups := map[month]*sums{}
	for _, t := range s.txs {
		k := month{t.Date.Year(), int(t.Date.Month())}
		g, ok := groups[k]
		if !ok {
			g = &sums{}
			groups[k] = g
		}
		g.total += t.Amount
		g.count++
	}
	rows := make([]core.MonthSales, 0, len(groups))
	for k, g := range groups {
		rows = append(rows, core.MonthSales{Year: k.year, Month: k.month, Total: g.total, Count: g.count})
	}
	return rows, nil
}

func (s *snapshot) salesSince(_ context.Context, since time.Time) ([]core.DaySales, error) {
	groups := map[time.Time]*sums{}
	for _, t := range s.txs {
		day := core.CivilDate(t.Date)
		if day.Before(since) {
			continue
		}
		g, ok := groups[day]
		if !ok {
			g = &sums{}
			groups[day] = g
		}
		g.total += t.Amount
		g.count++
	}
	rows := make([]core.DaySales, 0, len(groups))
	for day, g := range groups {
		rows = append(rows, core.DaySales{Date: day, Total: g.total, Count: g.count})
	}
	return rows, nil
}

func (s *snapshot) totalRevenue(context.Context) (float64, error) {
	var total float64
	for _, t := range s.txs {
		total += t.Amount
	}
	return total, nil
}

func (s *snapshot) averageAmount(ctx context.Context) (float64, error) {
	total, _ := s.totalRevenue(ctx)
	return core.Average(total, int64(len(s.txs))), nil
}
