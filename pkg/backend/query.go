package backend

import (
	"fmt"
	"strings"
)

// Well-known relations of the knowledge-base schema.
const (
	// TypeRelation links an entity to one of its types.
	TypeRelation = "type.object.type"
	// MediatorType is the type carried by mediator (CVT) nodes.
	MediatorType = "base.mediator"
)

// Term is either a variable or a constant in a triple pattern.
type Term struct {
	Var   string `json:"var,omitempty" yaml:"var,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// V returns a variable term.
func V(name string) Term { return Term{Var: name} }

// C returns a constant term.
func C(value string) Term { return Term{Value: value} }

// IsVar reports whether the term is a variable.
func (t Term) IsVar() bool { return t.Var != "" }

func (t Term) String() string {
	if t.IsVar() {
		return "?" + t.Var
	}
	return t.Value
}

// Pattern is a single subject-predicate-object triple pattern.
type Pattern struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s %s %s", p.Subject, p.Predicate, p.Object)
}

// Filter excludes solutions where Var is bound to NotEqual.
type Filter struct {
	Var      string `json:"var"`
	NotEqual string `json:"not_equal"`
}

// Projection selects one output column.
type Projection struct {
	Var string `json:"var"`
	// Name returns the display name of a node instead of its id.
	Name bool `json:"name,omitempty"`
	// Count returns the number of distinct bindings of Var.
	Count bool `json:"count,omitempty"`
}

// StructuredQuery is a backend-neutral conjunctive graph query.
type StructuredQuery struct {
	Patterns []Pattern    `json:"patterns"`
	Filters  []Filter     `json:"filters,omitempty"`
	Select   []Projection `json:"select"`
	Distinct bool         `json:"distinct,omitempty"`
	Limit    int          `json:"limit,omitempty"`
}

// Row is one result row, aligned with the query projections.
type Row []string

// Validate checks that every projected or filtered variable is bound by a pattern.
func (q *StructuredQuery) Validate() error {
	if q == nil || len(q.Patterns) == 0 {
		return fmt.Errorf("%w: no patterns", ErrUnsupportedQuery)
	}
	if len(q.Select) == 0 {
		return fmt.Errorf("%w: no projections", ErrUnsupportedQuery)
	}
	bound := q.boundVars()
	for _, p := range q.Select {
		if !bound[p.Var] {
			return fmt.Errorf("%w: projected variable ?%s is unbound", ErrUnsupportedQuery, p.Var)
		}
	}
	for _, f := range q.Filters {
		if !bound[f.Var] {
			return fmt.Errorf("%w: filtered variable ?%s is unbound", ErrUnsupportedQuery, f.Var)
		}
	}
	hasCount := false
	for _, p := range q.Select {
		hasCount = hasCount || p.Count
	}
	if hasCount && len(q.Select) > 1 {
		return fmt.Errorf("%w: count must be the only projection", ErrUnsupportedQuery)
	}
	return nil
}

func (q *StructuredQuery) boundVars() map[string]bool {
	bound := make(map[string]bool)
	for _, p := range q.Patterns {
		for _, t := range []Term{p.Subject, p.Predicate, p.Object} {
			if t.IsVar() {
				bound[t.Var] = true
			}
		}
	}
	return bound
}

// relationVars returns the variables used in predicate position.
func (q *StructuredQuery) relationVars() map[string]bool {
	vars := make(map[string]bool)
	for _, p := range q.Patterns {
		if p.Predicate.IsVar() {
			vars[p.Predicate.Var] = true
		}
	}
	return vars
}

func (q *StructuredQuery) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, p := range q.Select {
		if i > 0 {
			b.WriteString(" ")
		}
		switch {
		case p.Count:
			fmt.Fprintf(&b, "COUNT(?%s)", p.Var)
		case p.Name:
			fmt.Fprintf(&b, "NAME(?%s)", p.Var)
		default:
			fmt.Fprintf(&b, "?%s", p.Var)
		}
	}
	b.WriteString(" WHERE {")
	for _, p := range q.Patterns {
		fmt.Fprintf(&b, " %s .", p)
	}
	for _, f := range q.Filters {
		fmt.Fprintf(&b, " FILTER(?%s != %s)", f.Var, f.NotEqual)
	}
	b.WriteString(" }")
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String()
}
