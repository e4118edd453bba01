package patterns

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/aqqu/pkg/backend"
	"github.com/soundprediction/aqqu/pkg/types"
)

// Template identifies a structural query family.
type Template int

const (
	ERT Template = iota
	ERMRT
	ERMRERT
)

// Templates lists the template families in matching order. Candidates are
// concatenated in this order and ranking ties keep it.
var Templates = []Template{ERT, ERMRT, ERMRERT}

func (t Template) String() string {
	switch t {
	case ERT:
		return "ERT"
	case ERMRT:
		return "ERMRT"
	case ERMRERT:
		return "ERMRERT"
	default:
		return fmt.Sprintf("Template(%d)", int(t))
	}
}

// Hops returns the number of relations in the template.
func (t Template) Hops() int {
	return int(t) + 1
}

const answerVar = "x"

// Candidate is a template instantiated with entities and relations.
type Candidate struct {
	Template Template
	Query    *types.Query
	// Entities holds the root entity and, for ERMRERT, the constraining entity.
	Entities []*types.IdentifiedEntity
	// Relations are ordered along the pattern: first hop first.
	Relations  []string
	TargetType *types.AnswerType
	Count      bool
	// Score is assigned by a ranker.
	Score float64
	// Features are the ranking features behind Score.
	Features map[string]float64

	backend      backend.Backend
	restrictType bool
}

// Backend returns the backend the candidate was matched against.
func (c *Candidate) Backend() backend.Backend {
	return c.backend
}

// StructuredQuery renders the candidate as a backend query. With
// includeName each answer row carries the display name after the id.
func (c *Candidate) StructuredQuery(includeName bool) *backend.StructuredQuery {
	q := &backend.StructuredQuery{Distinct: true}
	root := c.Entities[0].ID()

	switch c.Template {
	case ERT:
		q.Patterns = []backend.Pattern{
			{Subject: backend.C(root), Predicate: backend.C(c.Relations[0]), Object: backend.V(answerVar)},
		}
	case ERMRT:
		q.Patterns = []backend.Pattern{
			{Subject: backend.C(root), Predicate: backend.C(c.Relations[0]), Object: backend.V("m")},
			{Subject: backend.V("m"), Predicate: backend.C(c.Relations[1]), Object: backend.V(answerVar)},
		}
	case ERMRERT:
		q.Patterns = []backend.Pattern{
			{Subject: backend.C(root), Predicate: backend.C(c.Relations[0]), Object: backend.V("m")},
			{Subject: backend.V("m"), Predicate: backend.C(c.Relations[1]), Object: backend.C(c.Entities[1].ID())},
			{Subject: backend.V("m"), Predicate: backend.C(c.Relations[2]), Object: backend.V(answerVar)},
		}
		q.Filters = append(q.Filters, backend.Filter{Var: answerVar, NotEqual: c.Entities[1].ID()})
	}
	q.Filters = append(q.Filters, backend.Filter{Var: answerVar, NotEqual: root})

	if c.restrictType && c.TargetType != nil && len(c.TargetType.TargetTypes) > 0 {
		q.Patterns = append(q.Patterns, backend.Pattern{
			Subject:   backend.V(answerVar),
			Predicate: backend.C(backend.TypeRelation),
			Object:    backend.C(c.TargetType.TargetTypes[0]),
		})
	}

	switch {
	case c.Count:
		q.Select = []backend.Projection{{Var: answerVar, Count: true}}
	case includeName:
		q.Select = []backend.Projection{{Var: answerVar}, {Var: answerVar, Name: true}}
	default:
		q.Select = []backend.Projection{{Var: answerVar}}
	}
	return q
}

// Result executes the candidate and returns its rows. A nil result means the
// candidate produced nothing: no rows, or a count of zero.
func (c *Candidate) Result(ctx context.Context, acc *backend.Accumulator, includeName bool) ([]backend.Row, error) {
	if c.backend == nil {
		return nil, fmt.Errorf("candidate %s has no backend", c)
	}
	rows, err := c.backend.Execute(ctx, c.StructuredQuery(includeName), acc)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if c.Count && len(rows) == 1 && len(rows[0]) == 1 && rows[0][0] == "0" {
		return nil, nil
	}
	return rows, nil
}

// EntityIDs returns the ids of the candidate's entities.
func (c *Candidate) EntityIDs() []string {
	ids := make([]string, len(c.Entities))
	for i, e := range c.Entities {
		ids[i] = e.ID()
	}
	return ids
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%s(%s; %s)", c.Template, strings.Join(c.EntityIDs(), ", "), strings.Join(c.Relations, " -> "))
}

// NewCandidate creates an unscored candidate bound to b. The target type and
// count flag are taken from q.
func NewCandidate(t Template, q *types.Query, entities []*types.IdentifiedEntity, relations []string, b backend.Backend) *Candidate {
	c := &Candidate{
		Template:  t,
		Query:     q,
		Entities:  entities,
		Relations: relations,
		backend:   b,
	}
	if q != nil {
		c.TargetType = q.TargetType()
		c.Count = q.IsCountQuery()
	}
	return c
}
