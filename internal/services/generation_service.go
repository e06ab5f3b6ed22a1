package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"datainsight/internal/amqp"
	"datainsight/internal/batch"
	"datainsight/internal/core"
	"datainsight/internal/generator"
	"datainsight/internal/records"
)

const (
	MaxClients               = 10000
	MaxTransactionsPerClient = 100
)

// GenerationParams sizes one generation run.
type GenerationParams struct {
	NumClients            int `json:"numClients"`
	TransactionsPerClient int `json:"transactionsPerClient"`
}

// Validate checks both bounds and reports every violation.
func (p GenerationParams) Validate() error {
	var problems []string
	if p.NumClients < 1 || p.NumClients > MaxClients {
		problems = append(problems, fmt.Sprintf("numClients must be between 1 and %d, got %d", MaxClients, p.NumClients))
	}
	if p.TransactionsPerClient < 1 || p.TransactionsPerClient > MaxTransactionsPerClient {
		problems = append(problems, fmt.Sprintf("transactionsPerClient must be between 1 and %d, got %d",
			MaxTransactionsPerClient, p.TransactionsPerClient))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", core.ErrInvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}

// RunSummary reports both phases of a completed run.
type RunSummary struct {
	Clients      batch.Result  `json:"clients"`
	Transactions batch.Result  `json:"transactions"`
	Elapsed      time.Duration `json:"elapsed"`
	Rate         float64       `json:"ratePerSecond"`
}

// Records is the number of records committed by the run.
func (s RunSummary) Records() int {
	return s.Clients.Committed + s.Transactions.Committed
}

// RunPublisher announces completed runs.
type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, msg *amqp.RunCompletedMessage) error
}

// GenerationStore is what a run needs from the record store.
type GenerationStore interface {
	records.Beginner
	records.ClientReader
}

// GenerationService orchestrates generation runs. Only one run executes at a
// time; a concurrent request gets core.ErrRunInProgress.
type GenerationService struct {
	store     GenerationStore
	gen       *generator.Generator
	committer *batch.Committer
	publisher RunPublisher
	logger    *slog.Logger
	now       func() time.Time

	running sync.Mutex
}

func NewGenerationService(store GenerationStore, gen *generator.Generator, committer *batch.Committer, publisher RunPublisher, logger *slog.Logger) *GenerationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{
		store:     store,
		gen:       gen,
		committer: committer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Run generates params.NumClients clients, then params.TransactionsPerClient
// transactions for every client in the store, each phase in its own unit of work.
// The summary is returned on failure too; when it holds committed records the
// error is a *PartialRunError.
func (s *GenerationService) Run(ctx context.Context, params GenerationParams) (RunSummary, error) {
	err := params.Validate()
	if err != nil {
		return RunSummary{}, err
	}
	if !s.running.TryLock() {
		return RunSummary{}, core.ErrRunInProgress
	}
	defer s.running.Unlock()

	start := s.now()
	s.logger.InfoContext(ctx, "Generation requested",
		"num_clients", params.NumClients, "transactions_per_client", params.TransactionsPerClient)

	var summary RunSummary
	summary.Clients, err = s.generateClients(ctx, params.NumClients)
	if err == nil {
		summary.Transactions, err = s.generateTransactions(ctx, params.TransactionsPerClient)
	}
	summary.Elapsed = s.now().Sub(start)
	if secs := summary.Elapsed.Seconds(); secs > 0 {
		summary.Rate = float64(summary.Records()) / secs
	}

	if err != nil {
		if summary.Records() > 0 {
			return summary, &PartialRunError{Summary: summary, Err: err}
		}
		return summary, err
	}

	s.publish(ctx, summary)
	return summary, nil
}

// PartialRunError reports a failed run that left committed records behind,
// typically the clients phase when the transactions phase failed.
type PartialRunError struct {
	Summary RunSummary
	Err     error
}

func (e *PartialRunError) Error() string {
	return fmt.Sprintf("run incomplete: %d clients and %d transactions committed before failure: %v",
		e.Summary.Clients.Committed, e.Summary.Transactions.Committed, e.Err)
}

func (e *PartialRunError) Unwrap() error { return e.Err }

// GenerateClients commits n new clients in one unit of work.
func (s *GenerationService) GenerateClients(ctx context.Context, n int) (batch.Result, error) {
	if !s.running.TryLock() {
		return batch.Result{}, core.ErrRunInProgress
	}
	defer s.running.Unlock()
	return s.generateClients(ctx, n)
}

// GenerateTransactions commits perClient transactions for every persisted client.
func (s *GenerationService) GenerateTransactions(ctx context.Context, perClient int) (batch.Result, error) {
	if !s.running.TryLock() {
		return batch.Result{}, core.ErrRunInProgress
	}
	defer s.running.Unlock()
	return s.generateTransactions(ctx, perClient)
}

func (s *GenerationService) generateClients(ctx context.Context, n int) (batch.Result, error) {
	seq, err := s.gen.Clients(n)
	if err != nil {
		return batch.Result{}, err
	}
	res, err := batch.Run(ctx, s.committer, "clients", n, seq, writeClient)
	if err != nil {
		return res, fmt.Errorf("generate clients: %w", err)
	}
	return res, nil
}

func (s *GenerationService) generateTransactions(ctx context.Context, perClient int) (batch.Result, error) {
	if perClient <= 0 {
		return batch.Result{}, fmt.Errorf("transactions per client %d: %w", perClient, core.ErrInvalidArgument)
	}
	owners, err := s.store.FindAllClients(ctx)
	if err != nil {
		return batch.Result{}, fmt.Errorf("load transaction owners: %w: %w", core.ErrStoreUnavailable, err)
	}
	seq, err := s.gen.Transactions(owners, perClient)
	if err != nil {
		return batch.Result{}, err
	}
	res, err := batch.Run(ctx, s.committer, "transactions", len(owners)*perClient, seq, writeTransaction)
	if err != nil {
		return res, fmt.Errorf("generate transactions: %w", err)
	}
	return res, nil
}

func (s *GenerationService) publish(ctx context.Context, summary RunSummary) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No run publisher configured, skipping notification")
		return
	}
	msg := amqp.NewRunCompletedMessage(summary.Clients.RunID, summary.Transactions.RunID,
		summary.Clients.Committed, summary.Transactions.Committed, summary.Elapsed, summary.Rate)
	if err := s.publisher.PublishRunCompleted(ctx, msg); err != nil {
		// the run is already committed
		s.logger.ErrorContext(ctx, "Failed to publish run completed message", "error", err)
	}
}

func writeClient(ctx context.Context, uow records.UnitOfWork, c core.Client) error {
	_, err := uow.CreateClient(ctx, c)
	return err
}

func writeTransaction(ctx context.Context, uow records.UnitOfWork, t core.Transaction) error {
	_, err := uow.CreateTransaction(ctx, t)
	return err
}
