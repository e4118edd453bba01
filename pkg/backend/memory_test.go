package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryBackend(t *testing.T) *MemoryBackend {
	t.Helper()
	b := NewMemoryBackend()
	err := b.LoadFixture(context.Background(), &Fixture{
		Entities: []FixtureEntity{
			{ID: "m.france", Name: "France", Types: []string{"location.country"}},
			{ID: "m.paris", Name: "Paris", Types: []string{"location.city"}},
			{ID: "m.lyon", Name: "Lyon", Types: []string{"location.city"}},
			{ID: "m.macron", Name: "Emmanuel Macron"},
			{ID: "m.cvt1", Mediator: true},
		},
		Triples: [][3]string{
			{"m.france", "location.country.capital", "m.paris"},
			{"m.france", "location.location.contains", "m.paris"},
			{"m.france", "location.location.contains", "m.lyon"},
			{"m.france", "government.governmental_jurisdiction.governing_officials", "m.cvt1"},
			{"m.cvt1", "government.government_position_held.office_holder", "m.macron"},
		},
	})
	require.NoError(t, err)
	return b
}

func TestMemoryBackendSingleHop(t *testing.T) {
	b := newTestMemoryBackend(t)
	acc := NewAccumulator()

	rows, err := b.Execute(context.Background(), &StructuredQuery{
		Patterns: []Pattern{{Subject: C("m.france"), Predicate: C("location.country.capital"), Object: V("x")}},
		Select:   []Projection{{Var: "x"}, {Var: "x", Name: true}},
	}, acc)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"m.paris", "Paris"}}, rows)
	assert.Equal(t, int64(1), acc.Queries())
	assert.True(t, acc.TotalTime() >= 0)
}

func TestMemoryBackendDistinctRelations(t *testing.T) {
	b := newTestMemoryBackend(t)

	rows, err := b.Execute(context.Background(), &StructuredQuery{
		Patterns: []Pattern{{Subject: C("m.france"), Predicate: V("r"), Object: V("x")}},
		Filters:  []Filter{{Var: "r", NotEqual: TypeRelation}},
		Select:   []Projection{{Var: "r"}},
		Distinct: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"government.governmental_jurisdiction.governing_officials"},
		{"location.country.capital"},
		{"location.location.contains"},
	}, rows)
}

func TestMemoryBackendMediatorJoin(t *testing.T) {
	b := newTestMemoryBackend(t)

	rows, err := b.Execute(context.Background(), &StructuredQuery{
		Patterns: []Pattern{
			{Subject: C("m.france"), Predicate: V("r1"), Object: V("m")},
			{Subject: V("m"), Predicate: C(TypeRelation), Object: C(MediatorType)},
			{Subject: V("m"), Predicate: V("r2"), Object: V("x")},
		},
		Filters:  []Filter{{Var: "r2", NotEqual: TypeRelation}},
		Select:   []Projection{{Var: "r1"}, {Var: "r2"}},
		Distinct: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Row{{
		"government.governmental_jurisdiction.governing_officials",
		"government.government_position_held.office_holder",
	}}, rows)
}

func TestMemoryBackendCountAndLimit(t *testing.T) {
	b := newTestMemoryBackend(t)
	q := &StructuredQuery{
		Patterns: []Pattern{{Subject: C("m.france"), Predicate: C("location.location.contains"), Object: V("x")}},
		Select:   []Projection{{Var: "x", Count: true}},
	}

	rows, err := b.Execute(context.Background(), q, nil)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"2"}}, rows)

	q.Select = []Projection{{Var: "x"}}
	q.Limit = 1
	rows, err = b.Execute(context.Background(), q, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryBackendNoMatch(t *testing.T) {
	b := newTestMemoryBackend(t)
	rows, err := b.Execute(context.Background(), &StructuredQuery{
		Patterns: []Pattern{{Subject: C("m.nowhere"), Predicate: V("r"), Object: V("x")}},
		Select:   []Projection{{Var: "x"}},
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryBackendRejectsInvalidQuery(t *testing.T) {
	b := newTestMemoryBackend(t)
	acc := NewAccumulator()

	_, err := b.Execute(context.Background(), &StructuredQuery{
		Patterns: []Pattern{{Subject: C("m.france"), Predicate: V("r"), Object: V("x")}},
		Select:   []Projection{{Var: "y"}},
	}, acc)
	assert.ErrorIs(t, err, ErrUnsupportedQuery)
	assert.Equal(t, int64(1), acc.Queries())
}

func TestMemoryBackendClosed(t *testing.T) {
	b := newTestMemoryBackend(t)
	require.NoError(t, b.Close())

	_, err := b.Execute(context.Background(), &StructuredQuery{
		Patterns: []Pattern{{Subject: C("m.france"), Predicate: V("r"), Object: V("x")}},
		Select:   []Projection{{Var: "x"}},
	}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}
