package patterns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/aqqu/pkg/backend"
	"github.com/soundprediction/aqqu/pkg/types"
)

func testBackend(t *testing.T) *backend.MemoryBackend {
	t.Helper()
	b := backend.NewMemoryBackend()
	require.NoError(t, b.LoadFixture(context.Background(), &backend.Fixture{
		Entities: []backend.FixtureEntity{
			{ID: "m.france", Name: "France", Types: []string{"location.country"}},
			{ID: "m.paris", Name: "Paris", Types: []string{"location.city"}},
			{ID: "m.president", Name: "President"},
			{ID: "m.macron", Name: "Emmanuel Macron", Types: []string{"people.person"}},
			{ID: "m.cvt1", Mediator: true},
		},
		Triples: [][3]string{
			{"m.france", "location.country.capital", "m.paris"},
			{"m.france", "government.jurisdiction.officials", "m.cvt1"},
			{"m.cvt1", "government.position_held.office_holder", "m.macron"},
			{"m.cvt1", "government.position_held.basic_title", "m.president"},
		},
	}))
	return b
}

func mention(id, name string, start, end int) *types.IdentifiedEntity {
	return &types.IdentifiedEntity{
		Entity:  types.Entity{ID: id, Name: name},
		Span:    types.Span{Start: start, End: end},
		Surface: name,
		Score:   1,
	}
}

type staticOracle map[string][]string

func (o staticOracle) Relations(q *types.Query, e *types.IdentifiedEntity) []string {
	return o[e.ID()]
}

func annotatedQuery(t *testing.T, entities []*types.IdentifiedEntity, oracle types.RelationOracle) *types.Query {
	t.Helper()
	q := types.NewQuery("who is the president of france")
	require.NoError(t, q.SetTokens([]types.Token{{Text: "who"}}))
	require.NoError(t, q.SetIdentifiedEntities(entities))
	require.NoError(t, q.SetTargetType(&types.AnswerType{Class: types.AnswerClassEntity, TargetTypes: []string{"people.person"}}))
	require.NoError(t, q.SetContentTokens(nil))
	require.NoError(t, q.SetRelationOracle(oracle))
	q.Freeze()
	return q
}

func relations(cands []*Candidate) [][]string {
	out := make([][]string, len(cands))
	for i, c := range cands {
		out[i] = c.Relations
	}
	return out
}

func TestTemplatesOrder(t *testing.T) {
	assert.Equal(t, []Template{ERT, ERMRT, ERMRERT}, Templates)
	assert.Equal(t, "ERMRT", ERMRT.String())
	assert.Equal(t, 3, ERMRERT.Hops())
}

func TestMatchERT(t *testing.T) {
	b := testBackend(t)
	q := annotatedQuery(t, []*types.IdentifiedEntity{mention("m.france", "france", 5, 6)}, nil)
	e := NewExtender(types.DefaultRankerParameters(), nil)
	acc := backend.NewAccumulator()

	cands, err := e.MatchERT(context.Background(), q, b, acc)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"location.country.capital"}}, relations(cands))
	assert.Equal(t, int64(2), acc.Queries())

	rows, err := cands[0].Result(context.Background(), acc, true)
	require.NoError(t, err)
	assert.Equal(t, []backend.Row{{"m.paris", "Paris"}}, rows)
	assert.Equal(t, int64(3), acc.Queries())
}

func TestMatchERMRT(t *testing.T) {
	b := testBackend(t)
	q := annotatedQuery(t, []*types.IdentifiedEntity{mention("m.france", "france", 5, 6)}, nil)
	e := NewExtender(types.DefaultRankerParameters(), nil)

	cands, err := e.Match(context.Background(), ERMRT, q, b, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"government.jurisdiction.officials", "government.position_held.basic_title"},
		{"government.jurisdiction.officials", "government.position_held.office_holder"},
	}, relations(cands))
}

func TestMatchERMRERT(t *testing.T) {
	b := testBackend(t)
	q := annotatedQuery(t, []*types.IdentifiedEntity{
		mention("m.france", "france", 5, 6),
		mention("m.president", "president", 3, 4),
	}, nil)
	e := NewExtender(types.DefaultRankerParameters(), nil)

	cands, err := e.MatchERMRERT(context.Background(), q, b, nil)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, []string{"m.france", "m.president"}, cands[0].EntityIDs())
	assert.Equal(t, []string{
		"government.jurisdiction.officials",
		"government.position_held.basic_title",
		"government.position_held.office_holder",
	}, cands[0].Relations)

	rows, err := cands[0].Result(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, []backend.Row{{"m.macron"}}, rows)
}

func TestMatchSkipsOverlappingPairs(t *testing.T) {
	b := testBackend(t)
	q := annotatedQuery(t, []*types.IdentifiedEntity{
		mention("m.france", "france", 3, 5),
		mention("m.president", "president", 4, 5),
	}, nil)

	cands, err := NewExtender(types.DefaultRankerParameters(), nil).MatchERMRERT(context.Background(), q, b, nil)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestMatchNoEntities(t *testing.T) {
	b := testBackend(t)
	q := annotatedQuery(t, nil, nil)
	e := NewExtender(types.DefaultRankerParameters(), nil)
	acc := backend.NewAccumulator()

	for _, tmpl := range Templates {
		cands, err := e.Match(context.Background(), tmpl, q, b, acc)
		require.NoError(t, err)
		assert.Empty(t, cands, tmpl.String())
	}
	assert.Equal(t, int64(0), acc.Queries())
}

func TestOracleRestrictsFirstHop(t *testing.T) {
	b := testBackend(t)
	oracle := staticOracle{"m.france": {"location.country.capital"}}
	q := annotatedQuery(t, []*types.IdentifiedEntity{mention("m.france", "france", 5, 6)}, oracle)
	e := NewExtender(types.DefaultRankerParameters(), nil)

	ert, err := e.MatchERT(context.Background(), q, b, nil)
	require.NoError(t, err)
	assert.Len(t, ert, 1)

	ermrt, err := e.MatchERMRT(context.Background(), q, b, nil)
	require.NoError(t, err)
	assert.Empty(t, ermrt)
}

func TestRestrictAnswerType(t *testing.T) {
	b := testBackend(t)
	q := annotatedQuery(t, []*types.IdentifiedEntity{mention("m.france", "france", 5, 6)}, nil)
	params := types.DefaultRankerParameters()
	params.RestrictAnswerType = true
	e := NewExtender(params, nil)

	cands, err := e.MatchERMRT(context.Background(), q, b, nil)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	title, err := cands[0].Result(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Nil(t, title)

	holder, err := cands[1].Result(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, []backend.Row{{"m.macron"}}, holder)
}

func TestCountCandidate(t *testing.T) {
	b := testBackend(t)
	q := types.NewQuery("how many capitals does france have")
	require.NoError(t, q.SetTokens(nil))
	require.NoError(t, q.SetIdentifiedEntities(nil))
	require.NoError(t, q.SetTargetType(&types.AnswerType{Class: types.AnswerClassCount}))
	require.NoError(t, q.SetCountQuery(true))

	c := NewCandidate(ERT, q, []*types.IdentifiedEntity{mention("m.france", "france", 5, 6)}, []string{"location.country.capital"}, b)
	rows, err := c.Result(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, []backend.Row{{"1"}}, rows)

	c = NewCandidate(ERT, q, []*types.IdentifiedEntity{mention("m.paris", "paris", 0, 1)}, []string{"location.country.capital"}, b)
	rows, err = c.Result(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestMatchWithIgnoresCurrentParameters(t *testing.T) {
	b := testBackend(t)
	q := annotatedQuery(t, []*types.IdentifiedEntity{mention("m.france", "france", 5, 6)}, nil)
	e := NewExtender(types.DefaultRankerParameters(), nil)

	started := types.DefaultRankerParameters()
	started.RestrictAnswerType = true
	cands, err := e.MatchWith(context.Background(), ERMRT, started, q, b, nil)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	title, err := cands[0].Result(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Nil(t, title)
	assert.False(t, e.Parameters().RestrictAnswerType)
}

func TestMaxRelationsBoundsTuplesPerEntity(t *testing.T) {
	b := testBackend(t)
	q := annotatedQuery(t, []*types.IdentifiedEntity{mention("m.france", "france", 5, 6)}, nil)
	params := types.DefaultRankerParameters()
	params.MaxRelationsPerEntity = 1
	e := NewExtender(params, nil)

	cands, err := e.MatchERMRT(context.Background(), q, b, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"government.jurisdiction.officials", "government.position_held.basic_title"},
	}, relations(cands))
}
