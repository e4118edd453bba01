// Package execution fetches the results of ranked query candidates.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/aqqu/pkg/backend"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/utils"
)

// DefaultLimit is the number of ranked candidates executed by default.
const DefaultLimit = 200

// ErrNegativeLimit is returned for limits below zero.
var ErrNegativeLimit = errors.New("execution limit must not be negative")

// TranslationResult pairs an executed candidate with its non-empty rows.
type TranslationResult struct {
	Candidate *patterns.Candidate
	Rows      []backend.Row
}

// Stats aggregates one execution pass.
type Stats struct {
	// Considered is the number of candidates kept after truncation.
	Considered int
	// Truncated is the number of lower-ranked candidates dropped by the limit.
	Truncated  int
	Executed   int
	SoftMisses int
	Results    int
	Rows       int
	// Values is the number of cells over all result rows.
	Values  int
	Queries int64
	Time    time.Duration
}

// Executor runs ranked candidates against their backends.
type Executor struct {
	maxConcurrency int
	includeName    bool
	logger         *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxConcurrency fetches up to n candidates in parallel. Results keep
// rank order regardless.
func WithMaxConcurrency(n int) Option {
	return func(e *Executor) { e.maxConcurrency = n }
}

// WithIncludeName controls whether rows carry display names.
func WithIncludeName(include bool) Option {
	return func(e *Executor) { e.includeName = include }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor creates a sequential executor that includes names.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{maxConcurrency: 1, includeName: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute fetches at most limit candidates in rank order. Candidates without
// rows are skipped. The first backend error, in rank order, is returned.
func (e *Executor) Execute(ctx context.Context, ranked []*patterns.Candidate, limit int, acc *backend.Accumulator) ([]TranslationResult, Stats, error) {
	var stats Stats
	if limit < 0 {
		return nil, stats, fmt.Errorf("%w: %d", ErrNegativeLimit, limit)
	}
	if acc == nil {
		acc = backend.NewAccumulator()
	}

	kept := ranked
	if len(kept) > limit {
		e.logger.Info("Truncating returned candidates", "limit", limit, "candidates", len(ranked))
		kept = kept[:limit]
		stats.Truncated = len(ranked) - limit
	}
	stats.Considered = len(kept)

	before := acc.Snapshot()
	rows, err := e.fetch(ctx, kept, acc)
	delta := acc.Snapshot().Since(before)
	stats.Queries, stats.Time = delta.Queries, delta.TotalTime
	if err != nil {
		return nil, stats, err
	}

	results := make([]TranslationResult, 0, len(kept))
	for i, c := range kept {
		stats.Executed++
		if len(rows[i]) == 0 {
			stats.SoftMisses++
			e.logger.Debug("Candidate returned no rows", "candidate", c.String())
			continue
		}
		results = append(results, TranslationResult{Candidate: c, Rows: rows[i]})
		stats.Rows += len(rows[i])
		for _, row := range rows[i] {
			stats.Values += len(row)
		}
	}
	stats.Results = len(results)
	return results, stats, nil
}

func (e *Executor) fetch(ctx context.Context, kept []*patterns.Candidate, acc *backend.Accumulator) ([][]backend.Row, error) {
	if e.maxConcurrency <= 1 || len(kept) <= 1 {
		out := make([][]backend.Row, len(kept))
		for i, c := range kept {
			rows, err := c.Result(ctx, acc, e.includeName)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch %s: %w", c, err)
			}
			out[i] = rows
		}
		return out, nil
	}

	functions := make([]func() ([]backend.Row, error), len(kept))
	for i, c := range kept {
		functions[i] = func() ([]backend.Row, error) {
			return c.Result(ctx, acc, e.includeName)
		}
	}
	out, errs := utils.ExecuteWithResults(ctx, e.maxConcurrency, functions...)
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", kept[i], err)
		}
	}
	return out, nil
}
