package core

import "time"

// UnknownKey groups transactions whose owning client cannot be resolved.
const UnknownKey = "unknown"

// RevenueRow is a grouped sum/average/count over transaction amounts.
type RevenueRow struct {
	Key     string  `json:"key"`
	Total   float64 `json:"totalRevenue"`
	Average float64 `json:"averageAmount"`
	Count   int64   `json:"transactionCount"`
}

// ClientSpend is one row of the top-clients ranking.
type ClientSpend struct {
	ClientID  int64   `json:"clientId"`
	LastName  string  `json:"lastName"`
	FirstName string  `json:"firstName"`
	Country   string  `json:"country"`
	Total     float64 `json:"totalSpent"`
	Count     int64   `json:"transactionCount"`
}

// MonthSales aggregates a calendar month.
type MonthSales struct {
	Year  int     `json:"year"`
	Month int     `json:"month"` // 1-12
	Total float64 `json:"totalRevenue"`
	Count int64   `json:"transactionCount"`
}

// DaySales aggregates a single civil date.
type DaySales struct {
	Date  time.Time `json:"date"`
	Total float64   `json:"totalRevenue"`
	Count int64     `json:"transactionCount"`
}

// GroupCount is a raw grouped count as returned by a record store.
type GroupCount struct {
	Key   string
	Count int64
}

// ShareRow is a population count with its share of the global client count.
type ShareRow struct {
	Key     string  `json:"key"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percentage"`
}

// AgeRow is the average client age per group.
type AgeRow struct {
	Key        string  `json:"key"`
	AverageAge float64 `json:"averageAge"`
	Count      int64   `json:"count"`
}

// Overview holds the global scalars of a dataset.
type Overview struct {
	TotalClients       int64   `json:"totalClients"`
	TotalTransactions  int64   `json:"totalTransactions"`
	TotalRevenue       float64 `json:"totalRevenue"`
	AverageTransaction float64 `json:"averageTransaction"`
}

// Report bundles every aggregation computed against one client total.
type Report struct {
	GeneratedAt         time.Time     `json:"generatedAt"`
	Empty               bool          `json:"empty"`
	Overview            Overview      `json:"overview"`
	RevenueByCountry    []RevenueRow  `json:"revenueByCountry"`
	RevenueByCategory   []RevenueRow  `json:"revenueByCategory"`
	TopClients          []ClientSpend `json:"topClients"`
	SalesByMonth        []MonthSales  `json:"salesByMonth"`
	SalesByDay          []DaySales    `json:"salesByDay"`
	ClientsByCountry    []ShareRow    `json:"clientsByCountry"`
	ClientsByProfession []ShareRow    `json:"clientsByProfession"`
	AgeByCountry        []AgeRow      `json:"ageByCountry"`
}

// Percent returns count as a percentage of total, and 0 when total is not positive.
func Percent(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) * 100.0 / float64(total)
}

// Average returns sum/count, and 0 for an empty group.
func Average(sum float64, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return sum / float64(count)
}
