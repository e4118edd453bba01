package backend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Provider names a backend implementation.
type Provider string

const (
	ProviderMemory  Provider = "memory"
	ProviderNeo4j   Provider = "neo4j"
	ProviderLadybug Provider = "ladybug"
)

var (
	// ErrUnsupportedQuery is returned for structurally invalid queries.
	ErrUnsupportedQuery = errors.New("unsupported structured query")
	// ErrClosed is returned when executing against a closed backend.
	ErrClosed = errors.New("backend is closed")
)

// QueryError wraps a failure reported by the underlying graph store.
type QueryError struct {
	Provider Provider
	Query    string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Provider, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for QueryError.
func (e *QueryError) Is(target error) bool {
	_, ok := target.(*QueryError)
	return ok
}

// Backend executes structured queries against a knowledge base.
//
// Every execution is recorded in the accumulator passed by the caller, so
// concurrent requests sharing one Backend never read each other's counters.
// A nil accumulator is valid and records nothing.
type Backend interface {
	Execute(ctx context.Context, q *StructuredQuery, acc *Accumulator) ([]Row, error)
	Provider() Provider
	Close() error
}

// Accumulator counts backend queries and their cumulative time for one
// request. It is safe for concurrent use.
type Accumulator struct {
	queries atomic.Int64
	nanos   atomic.Int64
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Record adds one executed query taking d.
func (a *Accumulator) Record(d time.Duration) {
	if a == nil {
		return
	}
	a.queries.Add(1)
	a.nanos.Add(int64(d))
}

// Queries returns the number of recorded queries.
func (a *Accumulator) Queries() int64 {
	if a == nil {
		return 0
	}
	return a.queries.Load()
}

// TotalTime returns the cumulative recorded query time.
func (a *Accumulator) TotalTime() time.Duration {
	if a == nil {
		return 0
	}
	return time.Duration(a.nanos.Load())
}

// Snapshot captures the counters at one instant.
type Snapshot struct {
	Queries   int64
	TotalTime time.Duration
}

// Snapshot returns the current counters.
func (a *Accumulator) Snapshot() Snapshot {
	return Snapshot{Queries: a.Queries(), TotalTime: a.TotalTime()}
}

// Since returns the counters accumulated after an earlier snapshot.
func (s Snapshot) Since(earlier Snapshot) Snapshot {
	return Snapshot{
		Queries:   s.Queries - earlier.Queries,
		TotalTime: s.TotalTime - earlier.TotalTime,
	}
}

// track records the duration since start into acc.
func track(acc *Accumulator, start time.Time) {
	acc.Record(time.Since(start))
}
