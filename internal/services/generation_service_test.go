package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"datainsight/internal/amqp"
	"datainsight/internal/batch"
	"datainsight/internal/core"
	"datainsight/internal/generator"
	"datainsight/internal/records"
	"datainsight/internal/records/memory"
)

type recordingPublisher struct {
	msgs    []*amqp.RunCompletedMessage
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (p *recordingPublisher) PublishRunCompleted(_ context.Context, msg *amqp.RunCompletedMessage) error {
	if p.entered != nil {
		close(p.entered)
	}
	if p.block != nil {
		<-p.block
	}
	p.msgs = append(p.msgs, msg)
	return p.err
}

// noBeginStore fails the test if a unit of work is opened.
type noBeginStore struct {
	*memory.Store
	t *testing.T
}

func (s noBeginStore) Begin(ctx context.Context) (records.UnitOfWork, error) {
	s.t.Fatal("unexpected unit of work")
	return nil, nil
}

// failingTxStore fails the transaction write that follows failAfter successful ones.
type failingTxStore struct {
	*memory.Store
	failAfter int
	written   *int
}

func (s failingTxStore) Begin(ctx context.Context) (records.UnitOfWork, error) {
	uow, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return failingTxUnit{UnitOfWork: uow, store: s}, nil
}

type failingTxUnit struct {
	records.UnitOfWork
	store failingTxStore
}

func (u failingTxUnit) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if *u.store.written >= u.store.failAfter {
		return core.Transaction{}, errors.New("disk full")
	}
	*u.store.written++
	return u.UnitOfWork.CreateTransaction(ctx, t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(store GenerationStore, pub RunPublisher) *GenerationService {
	gen := generator.NewSeeded(1)
	return NewGenerationService(store, gen, batch.New(store, batch.WithLogger(quietLogger())), pub, quietLogger())
}

func TestGenerationParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  GenerationParams
		wantErr bool
	}{
		{"minimum", GenerationParams{1, 1}, false},
		{"maximum", GenerationParams{MaxClients, MaxTransactionsPerClient}, false},
		{"zero clients", GenerationParams{0, 5}, true},
		{"too many clients", GenerationParams{MaxClients + 1, 5}, true},
		{"zero transactions", GenerationParams{10, 0}, true},
		{"too many transactions", GenerationParams{10, MaxTransactionsPerClient + 1}, true},
		{"negative both", GenerationParams{-1, -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr && !errors.Is(err, core.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunRejectsInvalidParamsBeforeTouchingStore(t *testing.T) {
	svc := newService(noBeginStore{Store: memory.New(), t: t}, nil)
	_, err := svc.Run(context.Background(), GenerationParams{NumClients: 0, TransactionsPerClient: 5})
	if !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRunCommitsBothPhasesAndPublishes(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	svc := newService(store, pub)

	summary, err := svc.Run(context.Background(), GenerationParams{NumClients: 10, TransactionsPerClient: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Clients.Committed != 10 || summary.Transactions.Committed != 30 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Records() != 40 {
		t.Fatalf("records = %d", summary.Records())
	}

	ctx := context.Background()
	if n, _ := store.CountClients(ctx); n != 10 {
		t.Fatalf("store holds %d clients", n)
	}
	if n, _ := store.CountTransactions(ctx); n != 30 {
		t.Fatalf("store holds %d transactions", n)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.Clients != 10 || msg.Transactions != 30 || msg.TxRunID != summary.Transactions.RunID {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestPublishFailureDoesNotFailRun(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newService(memory.New(), pub)
	if _, err := svc.Run(context.Background(), GenerationParams{NumClients: 2, TransactionsPerClient: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateTransactionsWithoutClients(t *testing.T) {
	svc := newService(noBeginStore{Store: memory.New(), t: t}, nil)
	_, err := svc.GenerateTransactions(context.Background(), 5)
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestTransactionsCoverEveryPersistedClient(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()

	if _, err := svc.GenerateClients(ctx, 4); err != nil {
		t.Fatalf("clients: %v", err)
	}
	if _, err := svc.GenerateClients(ctx, 3); err != nil {
		t.Fatalf("clients: %v", err)
	}
	res, err := svc.GenerateTransactions(ctx, 2)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if res.Total != 14 || res.Committed != 14 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestConcurrentRunIsRejected(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{}), entered: make(chan struct{})}
	svc := newService(memory.New(), pub)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), GenerationParams{NumClients: 1, TransactionsPerClient: 1})
		done <- err
	}()

	select {
	case <-pub.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached publish")
	}

	if _, err := svc.Run(context.Background(), GenerationParams{NumClients: 1, TransactionsPerClient: 1}); !errors.Is(err, core.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	close(pub.block)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestTransactionFailureLeavesNoTransactions(t *testing.T) {
	mem := memory.New()
	store := failingTxStore{Store: mem, failAfter: 300, written: new(int)}
	pub := &recordingPublisher{}
	svc := newService(store, pub)
	ctx := context.Background()

	summary, err := svc.Run(ctx, GenerationParams{NumClients: 50, TransactionsPerClient: 10})
	if !errors.Is(err, core.ErrStoreFailure) {
		t.Fatalf("expected ErrStoreFailure, got %v", err)
	}

	var runErr *batch.RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *batch.RunError in %v", err)
	}
	if runErr.Kind != "transactions" || runErr.Attempted != 300 || runErr.Total != 500 || runErr.Committed != 0 {
		t.Fatalf("unexpected run error %+v", runErr)
	}
	if n, _ := mem.CountTransactions(ctx); n != 0 {
		t.Fatalf("store holds %d transactions after failure", n)
	}

	// the clients phase had already committed and is reported as such
	var partial *PartialRunError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialRunError, got %T", err)
	}
	if partial.Summary.Clients.Committed != 50 || partial.Summary.Transactions.Committed != 0 {
		t.Fatalf("unexpected partial summary %+v", partial.Summary)
	}
	if summary.Clients.Committed != 50 || summary.Records() != 50 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if n, _ := mem.CountClients(ctx); n != 50 {
		t.Fatalf("store holds %d clients", n)
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("failed run published %d messages", len(pub.msgs))
	}
}

type unavailableStore struct{ *memory.Store }

func (unavailableStore) Begin(context.Context) (records.UnitOfWork, error) {
	return nil, errors.New("database is locked")
}

func TestFailureBeforeAnyCommitIsNotPartial(t *testing.T) {
	svc := newService(unavailableStore{memory.New()}, nil)

	summary, err := svc.Run(context.Background(), GenerationParams{NumClients: 5, TransactionsPerClient: 1})
	if !errors.Is(err, core.ErrStoreFailure) {
		t.Fatalf("expected ErrStoreFailure, got %v", err)
	}
	var partial *PartialRunError
	if errors.As(err, &partial) {
		t.Fatalf("nothing was committed, got %v", err)
	}
	if summary.Records() != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
