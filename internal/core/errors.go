package core

import "errors"

// Failure kinds shared by the generator, the committer and the aggregation engine.
// Callers match them with errors.Is.
var (
	// ErrInvalidArgument reports out-of-range or missing run parameters.
	// It is always returned before the record store is touched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoData reports an operation that needs clients against an empty population.
	ErrNoData = errors.New("no data")

	// ErrStoreUnavailable wraps every read failure surfaced by the aggregation engine.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrStoreFailure wraps every persistence failure during a generation run.
	ErrStoreFailure = errors.New("record store failure")
)
