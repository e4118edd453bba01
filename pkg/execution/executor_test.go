package execution

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/aqqu/pkg/backend"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/types"
)

func testBackend() *backend.MemoryBackend {
	b := backend.NewMemoryBackend()
	b.AddTriple("m.france", "capital", "m.paris")
	b.SetName("m.paris", "Paris")
	b.AddTriple("m.france", "contains", "m.paris")
	b.AddTriple("m.france", "contains", "m.lyon")
	return b
}

func candidate(b backend.Backend, relation string) *patterns.Candidate {
	france := &types.IdentifiedEntity{Entity: types.Entity{ID: "m.france"}, Span: types.Span{Start: 0, End: 1}}
	return patterns.NewCandidate(patterns.ERT, nil, []*types.IdentifiedEntity{france}, []string{relation}, b)
}

func TestExecuteSkipsSoftMisses(t *testing.T) {
	b := testBackend()
	ranked := []*patterns.Candidate{
		candidate(b, "anthem"),
		candidate(b, "capital"),
		candidate(b, "currency"),
		candidate(b, "contains"),
	}
	acc := backend.NewAccumulator()

	results, stats, err := NewExecutor().Execute(context.Background(), ranked, DefaultLimit, acc)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Same(t, ranked[1], results[0].Candidate)
	assert.Equal(t, []backend.Row{{"m.paris", "Paris"}}, results[0].Rows)
	assert.Same(t, ranked[3], results[1].Candidate)
	assert.Len(t, results[1].Rows, 2)

	assert.Equal(t, Stats{
		Considered: 4,
		Executed:   4,
		SoftMisses: 2,
		Results:    2,
		Rows:       3,
		Values:     6,
		Queries:    4,
		Time:       stats.Time,
	}, stats)
	assert.Equal(t, int64(4), acc.Queries())
}

func TestExecuteLimit(t *testing.T) {
	b := testBackend()
	ranked := []*patterns.Candidate{candidate(b, "capital"), candidate(b, "contains"), candidate(b, "anthem")}

	for k := 0; k <= 4; k++ {
		t.Run(fmt.Sprintf("limit=%d", k), func(t *testing.T) {
			results, stats, err := NewExecutor().Execute(context.Background(), ranked, k, nil)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(results), k)
			for _, r := range results {
				assert.NotEmpty(t, r.Rows)
			}
			assert.Equal(t, max(len(ranked)-k, 0), stats.Truncated)
		})
	}
}

func TestExecuteZeroLimit(t *testing.T) {
	b := testBackend()
	results, stats, err := NewExecutor().Execute(context.Background(), []*patterns.Candidate{candidate(b, "capital")}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), stats.Queries)
	assert.Equal(t, 1, stats.Truncated)
}

func TestExecuteNegativeLimit(t *testing.T) {
	_, _, err := NewExecutor().Execute(context.Background(), nil, -1, nil)
	assert.ErrorIs(t, err, ErrNegativeLimit)
}

type brokenBackend struct{}

func (brokenBackend) Execute(ctx context.Context, q *backend.StructuredQuery, acc *backend.Accumulator) ([]backend.Row, error) {
	acc.Record(0)
	return nil, errors.New("connection reset")
}
func (brokenBackend) Provider() backend.Provider { return "broken" }
func (brokenBackend) Close() error               { return nil }

func TestExecutePropagatesBackendErrors(t *testing.T) {
	b := testBackend()
	ranked := []*patterns.Candidate{candidate(b, "capital"), candidate(brokenBackend{}, "capital")}

	for _, n := range []int{1, 4} {
		_, stats, err := NewExecutor(WithMaxConcurrency(n)).Execute(context.Background(), ranked, 10, nil)
		assert.ErrorContains(t, err, "connection reset")
		assert.Equal(t, int64(2), stats.Queries)
	}
}

func TestExecuteParallelKeepsRankOrder(t *testing.T) {
	b := testBackend()
	var ranked []*patterns.Candidate
	for i := 0; i < 20; i++ {
		rel := "capital"
		if i%2 == 1 {
			rel = "contains"
		}
		ranked = append(ranked, candidate(b, rel))
	}
	acc := backend.NewAccumulator()

	results, stats, err := NewExecutor(WithMaxConcurrency(4), WithIncludeName(false)).Execute(context.Background(), ranked, 20, acc)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Same(t, ranked[i], r.Candidate)
	}
	assert.Equal(t, []backend.Row{{"m.paris"}}, results[0].Rows)
	assert.Equal(t, int64(20), stats.Queries)
	assert.Equal(t, int64(20), acc.Queries())
}
