// Package storage is the SQLite record store. Grouped statistics are computed
// with SQL aggregates; each generation run writes through one transaction.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"datainsight/internal/core"
	"datainsight/internal/records"

	_ "modernc.org/sqlite"
)

var (
	_ records.Store         = (*SQLiteRepository)(nil)
	_ records.GroupingStore = (*SQLiteRepository)(nil)
)

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// DSN builds the connection string with the pragmas every connection needs.
func DSN(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("SQLite record store ready", "path", dbPath)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const clientColumns = `id, last_name, first_name, country, age, profession, email, registered_at, status`

const transactionColumns = `id, date, amount, category, description, payment_mode, COALESCE(reference, ''), created_at, client_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (core.Client, error) {
	var (
		c          core.Client
		registered string
		status     string
	)
	if err := s.Scan(&c.ID, &c.LastName, &c.FirstName, &c.Country, &c.Age, &c.Profession,
		&c.Email, &registered, &status); err != nil {
		return core.Client{}, err
	}
	t, err := time.Parse(timestampLayout, registered)
	if err != nil {
		return core.Client{}, fmt.Errorf("parse registered_at %q: %w", registered, err)
	}
	c.RegisteredAt = t
	c.Status = core.ClientStatus(status)
	return c, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t       core.Transaction
		date    string
		created string
	)
	if err := s.Scan(&t.ID, &date, &t.Amount, &t.Category, &t.Description, &t.PaymentMode,
		&t.Reference, &created, &t.ClientID); err != nil {
		return core.Transaction{}, err
	}
	d, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	c, err := time.Parse(timestampLayout, created)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	t.Date, t.CreatedAt = d, c
	return t, nil
}

func (r *SQLiteRepository) queryClients(ctx context.Context, query string, args ...any) ([]core.Client, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindAllClients(ctx context.Context) ([]core.Client, error) {
	out, err := r.queryClients(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("find all clients: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountClients(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) FindAllTransactions(ctx context.Context) ([]core.Transaction, error) {
	out, err := r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("find all transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) FindClient(ctx context.Context, id int64) (core.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Client{}, fmt.Errorf("client %d: %w", id, core.ErrClientNotFound)
	}
	if err != nil {
		return core.Client{}, fmt.Errorf("find client %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) FindClientsByCountry(ctx context.Context, country string) ([]core.Client, error) {
	out, err := r.queryClients(ctx, `SELECT `+clientColumns+` FROM clients WHERE country = ? ORDER BY id`, country)
	if err != nil {
		return nil, fmt.Errorf("find clients in %s: %w", country, err)
	}
	return out, nil
}

// DeleteClient removes the client; its transactions go with it through the cascade.
func (r *SQLiteRepository) DeleteClient(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete client %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete client %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("client %d: %w", id, core.ErrClientNotFound)
	}
	r.logger.InfoContext(ctx, "Client deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) TransactionsByClient(ctx context.Context, clientID int64) ([]core.Transaction, error) {
	out, err := r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE client_id = ? ORDER BY date DESC, id DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("transactions of client %d: %w", clientID, err)
	}
	return out, nil
}

// RecentTransactions returns the newest transactions first; limit <= 0 returns all.
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	out, err := r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return out, nil
}
