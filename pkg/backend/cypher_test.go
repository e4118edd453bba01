package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCypherSingleHop(t *testing.T) {
	cypher, params, err := BuildCypher(&StructuredQuery{
		Patterns: []Pattern{{Subject: C("m.france"), Predicate: C("location.country.capital"), Object: V("x")}},
		Select:   []Projection{{Var: "x"}, {Var: "x", Name: true}},
		Distinct: true,
		Limit:    10,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (s0:Entity)-[r0:RELATION]->(v_x:Entity) WHERE s0.mid = $p0 AND r0.name = $p1 "+
			"RETURN DISTINCT v_x.mid AS c0, coalesce(v_x.name, v_x.mid) AS c1 ORDER BY c0, c1 LIMIT 10",
		cypher)
	assert.Equal(t, map[string]any{"p0": "m.france", "p1": "location.country.capital"}, params)
}

func TestBuildCypherMediatorAndFilters(t *testing.T) {
	cypher, params, err := BuildCypher(&StructuredQuery{
		Patterns: []Pattern{
			{Subject: C("m.france"), Predicate: V("r1"), Object: V("m")},
			{Subject: V("m"), Predicate: V("r2"), Object: V("x")},
		},
		Filters: []Filter{{Var: "r2", NotEqual: TypeRelation}},
		Select:  []Projection{{Var: "r1"}, {Var: "r2"}},
	})
	require.NoError(t, err)

	assert.Contains(t, cypher, "(s0:Entity)-[r0:RELATION]->(v_m:Entity), (v_m)-[r1:RELATION]->(v_x:Entity)")
	assert.Contains(t, cypher, "r1.name <> $p1")
	assert.Contains(t, cypher, "RETURN r0.name AS c0, r1.name AS c1")
	assert.Equal(t, TypeRelation, params["p1"])
}

func TestBuildCypherCount(t *testing.T) {
	cypher, _, err := BuildCypher(&StructuredQuery{
		Patterns: []Pattern{{Subject: C("m.france"), Predicate: C("location.location.contains"), Object: V("x")}},
		Select:   []Projection{{Var: "x", Count: true}},
	})
	require.NoError(t, err)
	assert.Contains(t, cypher, "RETURN count(DISTINCT v_x.mid) AS c0")
	assert.NotContains(t, cypher, "ORDER BY")
}

func TestBuildCypherRejectsMixedVariableUse(t *testing.T) {
	_, _, err := BuildCypher(&StructuredQuery{
		Patterns: []Pattern{
			{Subject: C("m.france"), Predicate: V("r"), Object: V("x")},
			{Subject: V("r"), Predicate: C("p"), Object: V("y")},
		},
		Select: []Projection{{Var: "x"}},
	})
	assert.ErrorIs(t, err, ErrUnsupportedQuery)
}
