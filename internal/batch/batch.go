// Package batch submits generated records to a record store in fixed-size batches
// inside a unit of work, flushing after each batch and committing once at the end
// unless a commit strategy says otherwise.
package batch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"datainsight/internal/core"
	"datainsight/internal/records"
)

// DefaultBatchSize is the number of records submitted between two flushes.
const DefaultBatchSize = 50

// WriteFunc submits one record to the open unit of work.
type WriteFunc[T any] func(ctx context.Context, uow records.UnitOfWork, item T) error

// Progress is reported once per completed batch.
type Progress struct {
	RunID uuid.UUID
	Kind  string
	Batch int
	Done  int
	Total int
}

type ProgressFunc func(Progress)

// Result describes a successful run.
type Result struct {
	RunID     uuid.UUID     `json:"runId"`
	Kind      string        `json:"kind"`
	Total     int           `json:"total"`
	Attempted int           `json:"attempted"`
	Committed int           `json:"committed"`
	Batches   int           `json:"batches"`
	Elapsed   time.Duration `json:"elapsed"`
	Rate      float64       `json:"ratePerSecond"`
}

// RunError reports a failed run together with how far it got.
type RunError struct {
	RunID     uuid.UUID
	Kind      string
	Attempted int
	Total     int
	Committed int
	Err       error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s run failed: attempted %d of %d, %d committed: %v",
		e.Kind, e.Attempted, e.Total, e.Committed, e.Err)
}

// Unwrap exposes the cause and, unless the run was cancelled, core.ErrStoreFailure.
func (e *RunError) Unwrap() []error {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return []error{e.Err}
	}
	return []error{core.ErrStoreFailure, e.Err}
}

// Strategy decides when the committer commits before the end of a run.
type Strategy struct {
	name  string
	every int
}

// AllOrNothing commits once, after the last record.
func AllOrNothing() Strategy {
	return Strategy{name: "all-or-nothing"}
}

// EveryNBatches commits after every n batches. Non-positive n means AllOrNothing.
func EveryNBatches(n int) Strategy {
	if n <= 0 {
		return AllOrNothing()
	}
	return Strategy{name: fmt.Sprintf("every-%d-batches", n), every: n}
}

func (s Strategy) String() string {
	if s.name == "" {
		return AllOrNothing().name
	}
	return s.name
}

func (s Strategy) commitAfter(batches int) bool {
	return s.every > 0 && batches%s.every == 0
}

// Committer runs batched writes against a record store. A Committer is
// stateless between runs; callers serialize runs on the same store.
type Committer struct {
	store     records.Beginner
	batchSize int
	strategy  Strategy
	progress  ProgressFunc
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Committer)

func WithStrategy(s Strategy) Option {
	return func(c *Committer) { c.strategy = s }
}

func WithProgress(fn ProgressFunc) Option {
	return func(c *Committer) { c.progress = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Committer) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Committer) { c.now = now }
}

// WithBatchSize overrides DefaultBatchSize. Intended for tests.
func WithBatchSize(n int) Option {
	return func(c *Committer) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

func New(store records.Beginner, opts ...Option) *Committer {
	c := &Committer{
		store:     store,
		batchSize: DefaultBatchSize,
		strategy:  AllOrNothing(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Committer) BatchSize() int { return c.batchSize }

func (c *Committer) Strategy() Strategy { return c.strategy }

// Run submits every record of seq through write. total is only used for
// reporting. On any failure the open unit of work is rolled back and a
// *RunError is returned.
func Run[T any](ctx context.Context, c *Committer, kind string, total int, seq iter.Seq[T], write WriteFunc[T]) (Result, error) {
	start := c.now()
	res := Result{RunID: uuid.New(), Kind: kind, Total: total}
	logger := c.logger.With("run_id", res.RunID.String(), "kind", kind)

	var uow records.UnitOfWork
	fail := func(cause error) (Result, error) {
		if uow != nil {
			if rbErr := uow.Rollback(); rbErr != nil {
				logger.WarnContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
		res.Elapsed = c.now().Sub(start)
		logger.ErrorContext(ctx, "Generation run failed",
			"attempted", res.Attempted, "total", total, "committed", res.Committed, "error", cause)
		return res, &RunError{
			RunID:     res.RunID,
			Kind:      kind,
			Attempted: res.Attempted,
			Total:     total,
			Committed: res.Committed,
			Err:       cause,
		}
	}

	logger.InfoContext(ctx, "Generation run started",
		"total", total, "batch_size", c.batchSize, "strategy", c.strategy.String())

	var err error
	if uow, err = c.store.Begin(ctx); err != nil {
		uow = nil
		return fail(fmt.Errorf("begin unit of work: %w", err))
	}

	pending := 0
	for item := range seq {
		if err := write(ctx, uow, item); err != nil {
			return fail(fmt.Errorf("write %s #%d: %w", kind, res.Attempted+1, err))
		}
		res.Attempted++
		pending++
		if res.Attempted%c.batchSize != 0 {
			continue
		}

		if err := c.endBatch(ctx, uow, &res); err != nil {
			return fail(err)
		}
		if c.strategy.commitAfter(res.Batches) {
			if err := uow.Commit(); err != nil {
				return fail(fmt.Errorf("commit after batch %d: %w", res.Batches, err))
			}
			res.Committed += pending
			pending = 0
			logger.DebugContext(ctx, "Intermediate commit", "batch", res.Batches, "committed", res.Committed)
			if uow, err = c.store.Begin(ctx); err != nil {
				uow = nil
				return fail(fmt.Errorf("begin unit of work: %w", err))
			}
		}
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("cancelled after batch %d: %w", res.Batches, err))
		}
	}

	if res.Attempted%c.batchSize != 0 {
		if err := c.endBatch(ctx, uow, &res); err != nil {
			return fail(err)
		}
	}
	if err := uow.Commit(); err != nil {
		return fail(fmt.Errorf("final commit: %w", err))
	}
	res.Committed += pending

	res.Elapsed = c.now().Sub(start)
	res.Rate = rate(res.Committed, res.Elapsed)
	logger.InfoContext(ctx, "Generation run committed",
		"committed", res.Committed, "batches", res.Batches,
		"elapsed", res.Elapsed.String(), "rate_per_sec", fmt.Sprintf("%.0f", res.Rate))
	return res, nil
}

func (c *Committer) endBatch(ctx context.Context, uow records.UnitOfWork, res *Result) error {
	res.Batches++
	if err := uow.Flush(ctx); err != nil {
		return fmt.Errorf("flush batch %d: %w", res.Batches, err)
	}
	if c.progress != nil {
		c.progress(Progress{
			RunID: res.RunID,
			Kind:  res.Kind,
			Batch: res.Batches,
			Done:  res.Attempted,
			Total: res.Total,
		})
	}
	return nil
}

func rate(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}
