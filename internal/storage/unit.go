package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"datainsight/internal/core"
	"datainsight/internal/records"
)

const (
	insertClient = `INSERT INTO clients (last_name, first_name, country, age, profession, email, registered_at, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertTransaction = `INSERT INTO transactions (date, amount, category, description, payment_mode, reference, created_at, client_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// unit is one SQL transaction with its insert statements prepared once.
type unit struct {
	tx         *sql.Tx
	clientStmt *sql.Stmt
	txStmt     *sql.Stmt
	sinceFlush int
}

// Begin opens a unit of work. Nothing it writes is visible to readers until Commit.
func (r *SQLiteRepository) Begin(ctx context.Context) (records.UnitOfWork, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	u := &unit{tx: tx}
	if u.clientStmt, err = tx.PrepareContext(ctx, insertClient); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare client insert: %w", err)
	}
	if u.txStmt, err = tx.PrepareContext(ctx, insertTransaction); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare transaction insert: %w", err)
	}
	return u, nil
}

func (u *unit) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Client{}, fmt.Errorf("validate client: %w", err)
	}
	res, err := u.clientStmt.ExecContext(ctx, c.LastName, c.FirstName, c.Country, c.Age, c.Profession,
		c.Email, c.RegisteredAt.UTC().Format(timestampLayout), string(c.Status))
	if err != nil {
		return core.Client{}, fmt.Errorf("insert client: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Client{}, fmt.Errorf("client id: %w", err)
	}
	u.sinceFlush++
	return c, nil
}

func (u *unit) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}
	var ref any
	if t.Reference != "" {
		ref = t.Reference
	}
	res, err := u.txStmt.ExecContext(ctx, t.Date.Format(core.DateLayout), t.Amount, t.Category, t.Description,
		t.PaymentMode, ref, t.CreatedAt.UTC().Format(timestampLayout), t.ClientID)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return core.Transaction{}, fmt.Errorf("owner %d: %w", t.ClientID, core.ErrClientNotFound)
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	u.sinceFlush++
	return t, nil
}

// Flush asks SQLite to release cached pages held for the rows written so far.
func (u *unit) Flush(ctx context.Context) error {
	if u.sinceFlush == 0 {
		return ctx.Err()
	}
	if _, err := u.tx.ExecContext(ctx, `PRAGMA shrink_memory`); err != nil {
		return fmt.Errorf("shrink memory: %w", err)
	}
	u.sinceFlush = 0
	return nil
}

func (u *unit) Commit() error {
	u.closeStatements()
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback is a no-op on a unit that already finished.
func (u *unit) Rollback() error {
	u.closeStatements()
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (u *unit) closeStatements() {
	if u.clientStmt != nil {
		u.clientStmt.Close()
		u.clientStmt = nil
	}
	if u.txStmt != nil {
		u.txStmt.Close()
		u.txStmt = nil
	}
}
