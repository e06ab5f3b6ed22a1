package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"datainsight/internal/core"
	"datainsight/internal/records"
)

var ErrUnitClosed = errors.New("unit of work already closed")

// Store keeps clients and transactions in memory. It does not group on its side,
// so the aggregation engine reduces its records in-process.
type Store struct {
	mu           sync.Mutex
	clients      []core.Client
	txs          []core.Transaction
	nextClientID int64
	nextTxID     int64
}

var (
	_ records.Store = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// Begin opens a unit of work. Staged writes become visible only on Commit.
func (s *Store) Begin(ctx context.Context) (records.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &unit{store: s, staged: map[int64]struct{}{}}, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) FindAllClients(_ context.Context) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Client(nil), s.clients...), nil
}

func (s *Store) CountClients(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.clients)), nil
}

func (s *Store) FindAllTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...), nil
}

func (s *Store) CountTransactions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.txs)), nil
}

func (s *Store) FindClient(_ context.Context, id int64) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Client{}, fmt.Errorf("client %d: %w", id, core.ErrClientNotFound)
}

func (s *Store) FindClientsByCountry(_ context.Context, country string) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Client
	for _, c := range s.clients {
		if c.Country == country {
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteClient removes the client and every transaction it owns.
func (s *Store) DeleteClient(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, c := range s.clients {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("client %d: %w", id, core.ErrClientNotFound)
	}
	s.clients = append(s.clients[:idx], s.clients[idx+1:]...)

	kept := s.txs[:0]
	for _, t := range s.txs {
		if t.ClientID != id {
			kept = append(kept, t)
		}
	}
	s.txs = kept
	return nil
}

func (s *Store) TransactionsByClient(_ context.Context, clientID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	var out []core.Transaction
	for _, t := range s.txs {
		if t.ClientID == clientID {
			out = append(out, t)
		}
	}
	s.mu.Unlock()
	sortRecent(out)
	return out, nil
}

func (s *Store) RecentTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	out := append([]core.Transaction(nil), s.txs...)
	s.mu.Unlock()
	sortRecent(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortRecent(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID > txs[j].ID
	})
}

func (s *Store) hasClient(id int64) bool {
	for _, c := range s.clients {
		if c.ID == id {
			return true
		}
	}
	return false
}

type unit struct {
	store   *Store
	clients []core.Client
	txs     []core.Transaction
	staged  map[int64]struct{}
	closed  bool
}

func (u *unit) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	if u.closed {
		return core.Client{}, ErrUnitClosed
	}
	if err := ctx.Err(); err != nil {
		return core.Client{}, err
	}
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Client{}, fmt.Errorf("validate client: %w", err)
	}

	u.store.mu.Lock()
	u.store.nextClientID++
	c.ID = u.store.nextClientID
	u.store.mu.Unlock()

	u.clients = append(u.clients, c)
	u.staged[c.ID] = struct{}{}
	return c, nil
}

func (u *unit) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if u.closed {
		return core.Transaction{}, ErrUnitClosed
	}
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	u.store.mu.Lock()
	_, staged := u.staged[t.ClientID]
	if !staged && !u.store.hasClient(t.ClientID) {
		u.store.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("owner %d: %w", t.ClientID, core.ErrClientNotFound)
	}
	u.store.nextTxID++
	t.ID = u.store.nextTxID
	u.store.mu.Unlock()

	u.txs = append(u.txs, t)
	return t, nil
}

// Flush has nothing to release: staged writes must survive until Commit.
func (u *unit) Flush(ctx context.Context) error {
	if u.closed {
		return ErrUnitClosed
	}
	return ctx.Err()
}

func (u *unit) Commit() error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.clients = append(u.store.clients, u.clients...)
	u.store.txs = append(u.store.txs, u.txs...)
	u.clients, u.txs = nil, nil
	return nil
}

func (u *unit) Rollback() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.clients, u.txs = nil, nil
	return nil
}
