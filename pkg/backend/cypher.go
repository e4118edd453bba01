package backend

import (
	"fmt"
	"strings"
)

// Graph schema shared by the Cypher backends:
//
//	(:Entity {mid, name})-[:RELATION {name}]->(:Entity {mid, name})
const (
	entityLabel   = "Entity"
	relationLabel = "RELATION"
)

// cypherBuilder translates a StructuredQuery into a parameterized Cypher
// query over the shared graph schema.
type cypherBuilder struct {
	params     map[string]any
	nodeIdents map[string]string // variable -> node identifier
	relIdents  map[string]string // variable -> relationship identifier
	declared   map[string]bool
	where      []string
}

// BuildCypher renders q as Cypher and returns the query text and parameters.
func BuildCypher(q *StructuredQuery) (string, map[string]any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	b := &cypherBuilder{
		params:     make(map[string]any),
		nodeIdents: make(map[string]string),
		relIdents:  make(map[string]string),
		declared:   make(map[string]bool),
	}

	relVars := q.relationVars()
	for _, p := range q.Patterns {
		for _, t := range []Term{p.Subject, p.Object} {
			if t.IsVar() && relVars[t.Var] {
				return "", nil, fmt.Errorf("%w: ?%s used as node and relation", ErrUnsupportedQuery, t.Var)
			}
		}
	}

	matches := make([]string, 0, len(q.Patterns))
	for i, p := range q.Patterns {
		subject := b.node(p.Subject, fmt.Sprintf("s%d", i))
		object := b.node(p.Object, fmt.Sprintf("o%d", i))
		rel := fmt.Sprintf("r%d", i)

		if p.Predicate.IsVar() {
			if first, ok := b.relIdents[p.Predicate.Var]; ok {
				b.where = append(b.where, fmt.Sprintf("%s.name = %s.name", rel, first))
			} else {
				b.relIdents[p.Predicate.Var] = rel
			}
		} else {
			b.where = append(b.where, fmt.Sprintf("%s.name = %s", rel, b.param(p.Predicate.Value)))
		}

		matches = append(matches, fmt.Sprintf("%s-[%s:%s]->%s", subject, rel, relationLabel, object))
	}

	for _, f := range q.Filters {
		b.where = append(b.where, fmt.Sprintf("%s <> %s", b.ref(f.Var, false), b.param(f.NotEqual)))
	}

	var sb strings.Builder
	sb.WriteString("MATCH ")
	sb.WriteString(strings.Join(matches, ", "))
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}

	sb.WriteString(" RETURN ")
	if q.Distinct {
		sb.WriteString("DISTINCT ")
	}
	columns := make([]string, len(q.Select))
	for i, p := range q.Select {
		expr := b.ref(p.Var, p.Name)
		if p.Count {
			expr = fmt.Sprintf("count(DISTINCT %s)", b.ref(p.Var, false))
		}
		columns[i] = fmt.Sprintf("%s AS c%d", expr, i)
	}
	sb.WriteString(strings.Join(columns, ", "))

	if len(q.Select) > 0 && !q.Select[0].Count {
		order := make([]string, len(q.Select))
		for i := range q.Select {
			order[i] = fmt.Sprintf("c%d", i)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(order, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}

	return sb.String(), b.params, nil
}

func (b *cypherBuilder) param(value string) string {
	name := fmt.Sprintf("p%d", len(b.params))
	b.params[name] = value
	return "$" + name
}

// node returns the pattern text for a node term, declaring its label on
// first use and constraining constants by mid.
func (b *cypherBuilder) node(t Term, fallback string) string {
	if !t.IsVar() {
		b.where = append(b.where, fmt.Sprintf("%s.mid = %s", fallback, b.param(t.Value)))
		return fmt.Sprintf("(%s:%s)", fallback, entityLabel)
	}
	ident, ok := b.nodeIdents[t.Var]
	if !ok {
		ident = "v_" + t.Var
		b.nodeIdents[t.Var] = ident
	}
	if b.declared[ident] {
		return fmt.Sprintf("(%s)", ident)
	}
	b.declared[ident] = true
	return fmt.Sprintf("(%s:%s)", ident, entityLabel)
}

// ref returns the expression for a variable's value.
func (b *cypherBuilder) ref(v string, name bool) string {
	if rel, ok := b.relIdents[v]; ok {
		return rel + ".name"
	}
	ident := b.nodeIdents[v]
	if name {
		return fmt.Sprintf("coalesce(%s.name, %s.mid)", ident, ident)
	}
	return ident + ".mid"
}
