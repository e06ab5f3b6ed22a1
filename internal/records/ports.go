// Package records defines the record store ports consumed by the generator run,
// the batch committer and the aggregation engine.
package records

import (
	"context"
	"io"
	"time"

	"datainsight/internal/core"
)

// ClientField names a client column a store can group by.
type ClientField string

// TransactionField names a dimension transaction revenue can be grouped by.
type TransactionField string

const (
	ByCountry    ClientField = "country"
	ByProfession ClientField = "profession"

	ByClientCountry TransactionField = "country"
	ByCategory      TransactionField = "category"
)

// Ports for the record store.
type (
	// UnitOfWork spans writes that take effect together on Commit.
	UnitOfWork interface {
		CreateClient(ctx context.Context, c core.Client) (core.Client, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// Flush releases buffered state while the unit stays open.
		Flush(ctx context.Context) error
		Commit() error
		Rollback() error
	}

	Beginner interface {
		Begin(ctx context.Context) (UnitOfWork, error)
	}

	ClientReader interface {
		FindAllClients(ctx context.Context) ([]core.Client, error)
		CountClients(ctx context.Context) (int64, error)
	}

	TransactionReader interface {
		FindAllTransactions(ctx context.Context) ([]core.Transaction, error)
		CountTransactions(ctx context.Context) (int64, error)
	}

	// Reader is what the aggregation engine needs at minimum.
	Reader interface {
		ClientReader
		TransactionReader
	}

	// GroupingStore is implemented by stores that can reduce on their side.
	GroupingStore interface {
		CountClientsGroupedBy(ctx context.Context, field ClientField) ([]core.GroupCount, error)
		AverageAgeGroupedBy(ctx context.Context, field ClientField) ([]core.AgeRow, error)
		SumAvgCountGroupedBy(ctx context.Context, field TransactionField) ([]core.RevenueRow, error)
		TopClientsBySpend(ctx context.Context, limit int) ([]core.ClientSpend, error)
		SalesByMonth(ctx context.Context) ([]core.MonthSales, error)
		SalesSince(ctx context.Context, since time.Time) ([]core.DaySales, error)
		TotalRevenue(ctx context.Context) (float64, error)
		AverageTransactionAmount(ctx context.Context) (float64, error)
	}

	// Lookup covers the single-record paths served by the API.
	Lookup interface {
		FindClient(ctx context.Context, id int64) (core.Client, error)
		FindClientsByCountry(ctx context.Context, country string) ([]core.Client, error)
		DeleteClient(ctx context.Context, id int64) error
		TransactionsByClient(ctx context.Context, clientID int64) ([]core.Transaction, error)
		RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	}

	// Store is the full record store handle owned by the caller.
	Store interface {
		Beginner
		Reader
		Lookup
		io.Closer
	}
)

func (f ClientField) IsValid() bool {
	return f == ByCountry || f == ByProfession
}

func (f TransactionField) IsValid() bool {
	return f == ByClientCountry || f == ByCategory
}
