package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soundprediction/aqqu/pkg/backend"
	"github.com/soundprediction/aqqu/pkg/types"
)

type matchFunc func(e *Extender, ctx context.Context, params types.RankerParameters, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error)

var matchers = map[Template]matchFunc{
	ERT:     (*Extender).matchERT,
	ERMRT:   (*Extender).matchERMRT,
	ERMRERT: (*Extender).matchERMRERT,
}

// Extender matches query templates against a backend. Its parameters follow
// the active ranker and may be swapped while matches run.
type Extender struct {
	mu     sync.RWMutex
	params types.RankerParameters
	logger *slog.Logger
}

// NewExtender creates an extender using params.
func NewExtender(params types.RankerParameters, logger *slog.Logger) *Extender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extender{params: params, logger: logger}
}

// SetParameters replaces the ranking parameters.
func (e *Extender) SetParameters(params types.RankerParameters) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = params
}

// Parameters returns the current ranking parameters.
func (e *Extender) Parameters() types.RankerParameters {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// Match runs the matcher of template t with the current parameters.
func (e *Extender) Match(ctx context.Context, t Template, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error) {
	return e.MatchWith(ctx, t, e.Parameters(), q, b, acc)
}

// MatchWith runs the matcher of template t with params, ignoring the
// extender's current parameters.
func (e *Extender) MatchWith(ctx context.Context, t Template, params types.RankerParameters, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error) {
	m, ok := matchers[t]
	if !ok {
		return nil, fmt.Errorf("no matcher for template %s", t)
	}
	return m(e, ctx, params, q, b, acc)
}

// MatchERT finds single relations from an identified entity to a non-mediator node.
func (e *Extender) MatchERT(ctx context.Context, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error) {
	return e.matchERT(ctx, e.Parameters(), q, b, acc)
}

// MatchERMRT finds relation pairs through a mediator node.
func (e *Extender) MatchERMRT(ctx context.Context, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error) {
	return e.matchERMRT(ctx, e.Parameters(), q, b, acc)
}

// MatchERMRERT finds mediators joining two non-overlapping entities and a
// third relation from the mediator to the answer.
func (e *Extender) MatchERMRERT(ctx context.Context, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error) {
	return e.matchERMRERT(ctx, e.Parameters(), q, b, acc)
}

func (e *Extender) matchERT(ctx context.Context, params types.RankerParameters, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error) {
	var out []*Candidate
	for _, ent := range uniqueEntities(q.IdentifiedEntities()) {
		all, err := e.relations(ctx, b, acc, params, relationsQuery(ent.ID()))
		if err != nil {
			return nil, err
		}
		mediated, err := e.relations(ctx, b, acc, params, mediatorRelationsQuery(ent.ID()))
		if err != nil {
			return nil, err
		}
		viaMediator := make(map[string]bool, len(mediated))
		for _, row := range mediated {
			viaMediator[row[0]] = true
		}

		allowed := oracleFilter(q, ent)
		for _, row := range all {
			rel := row[0]
			if viaMediator[rel] || !allowed(rel) {
				continue
			}
			out = append(out, e.candidate(ERT, q, []*types.IdentifiedEntity{ent}, []string{rel}, b, params))
		}
	}
	e.logger.Debug("Matched template", "template", ERT.String(), "candidates", len(out))
	return out, nil
}

func (e *Extender) matchERMRT(ctx context.Context, params types.RankerParameters, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error) {
	var out []*Candidate
	for _, ent := range uniqueEntities(q.IdentifiedEntities()) {
		rows, err := e.relations(ctx, b, acc, params, &backend.StructuredQuery{
			Patterns: []backend.Pattern{
				{Subject: backend.C(ent.ID()), Predicate: backend.V("r1"), Object: backend.V("m")},
				{Subject: backend.V("m"), Predicate: backend.C(backend.TypeRelation), Object: backend.C(backend.MediatorType)},
				{Subject: backend.V("m"), Predicate: backend.V("r2"), Object: backend.V(answerVar)},
			},
			Filters: []backend.Filter{
				{Var: "r2", NotEqual: backend.TypeRelation},
				{Var: answerVar, NotEqual: ent.ID()},
			},
			Select: []backend.Projection{{Var: "r1"}, {Var: "r2"}},
		})
		if err != nil {
			return nil, err
		}

		allowed := oracleFilter(q, ent)
		for _, row := range rows {
			if !allowed(row[0]) {
				continue
			}
			out = append(out, e.candidate(ERMRT, q, []*types.IdentifiedEntity{ent}, []string{row[0], row[1]}, b, params))
		}
	}
	e.logger.Debug("Matched template", "template", ERMRT.String(), "candidates", len(out))
	return out, nil
}

func (e *Extender) matchERMRERT(ctx context.Context, params types.RankerParameters, q *types.Query, b backend.Backend, acc *backend.Accumulator) ([]*Candidate, error) {
	entities := uniqueEntities(q.IdentifiedEntities())
	var out []*Candidate
	for _, first := range entities {
		allowed := oracleFilter(q, first)
		for _, second := range entities {
			if first.ID() == second.ID() || first.Span.Overlaps(second.Span) {
				continue
			}
			rows, err := e.relations(ctx, b, acc, params, &backend.StructuredQuery{
				Patterns: []backend.Pattern{
					{Subject: backend.C(first.ID()), Predicate: backend.V("r1"), Object: backend.V("m")},
					{Subject: backend.V("m"), Predicate: backend.C(backend.TypeRelation), Object: backend.C(backend.MediatorType)},
					{Subject: backend.V("m"), Predicate: backend.V("r2"), Object: backend.C(second.ID())},
					{Subject: backend.V("m"), Predicate: backend.V("r3"), Object: backend.V(answerVar)},
				},
				Filters: []backend.Filter{
					{Var: "r3", NotEqual: backend.TypeRelation},
					{Var: answerVar, NotEqual: first.ID()},
					{Var: answerVar, NotEqual: second.ID()},
				},
				Select: []backend.Projection{{Var: "r1"}, {Var: "r2"}, {Var: "r3"}},
			})
			if err != nil {
				return nil, err
			}
			for _, row := range rows {
				if !allowed(row[0]) {
					continue
				}
				out = append(out, e.candidate(ERMRERT, q, []*types.IdentifiedEntity{first, second}, []string{row[0], row[1], row[2]}, b, params))
			}
		}
	}
	e.logger.Debug("Matched template", "template", ERMRERT.String(), "candidates", len(out))
	return out, nil
}

func (e *Extender) candidate(t Template, q *types.Query, entities []*types.IdentifiedEntity, relations []string, b backend.Backend, params types.RankerParameters) *Candidate {
	c := NewCandidate(t, q, entities, relations, b)
	c.restrictType = params.RestrictAnswerType
	return c
}

// relations runs a DISTINCT relation query bounded by MaxRelationsPerEntity.
// For the mediator templates the bound applies to the relation tuples of one
// entity (or entity pair), not to each hop separately.
func (e *Extender) relations(ctx context.Context, b backend.Backend, acc *backend.Accumulator, params types.RankerParameters, q *backend.StructuredQuery) ([]backend.Row, error) {
	q.Distinct = true
	if params.MaxRelationsPerEntity > 0 {
		q.Limit = params.MaxRelationsPerEntity
	}
	rows, err := b.Execute(ctx, q, acc)
	if err != nil {
		return nil, fmt.Errorf("relation lookup failed: %w", err)
	}
	return rows, nil
}

func relationsQuery(id string) *backend.StructuredQuery {
	return &backend.StructuredQuery{
		Patterns: []backend.Pattern{{Subject: backend.C(id), Predicate: backend.V("r"), Object: backend.V(answerVar)}},
		Filters:  []backend.Filter{{Var: "r", NotEqual: backend.TypeRelation}},
		Select:   []backend.Projection{{Var: "r"}},
	}
}

func mediatorRelationsQuery(id string) *backend.StructuredQuery {
	return &backend.StructuredQuery{
		Patterns: []backend.Pattern{
			{Subject: backend.C(id), Predicate: backend.V("r"), Object: backend.V("m")},
			{Subject: backend.V("m"), Predicate: backend.C(backend.TypeRelation), Object: backend.C(backend.MediatorType)},
		},
		Select: []backend.Projection{{Var: "r"}},
	}
}

// uniqueEntities keeps the first mention of each entity id.
func uniqueEntities(entities []*types.IdentifiedEntity) []*types.IdentifiedEntity {
	seen := make(map[string]bool, len(entities))
	out := make([]*types.IdentifiedEntity, 0, len(entities))
	for _, ent := range entities {
		if seen[ent.ID()] {
			continue
		}
		seen[ent.ID()] = true
		out = append(out, ent)
	}
	return out
}

// oracleFilter returns a predicate over first-hop relations. An absent oracle
// or an empty preference list allows every relation.
func oracleFilter(q *types.Query, ent *types.IdentifiedEntity) func(string) bool {
	oracle := q.RelationOracle()
	if oracle == nil {
		return func(string) bool { return true }
	}
	preferred := oracle.Relations(q, ent)
	if len(preferred) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(preferred))
	for _, r := range preferred {
		set[r] = true
	}
	return func(rel string) bool { return set[rel] }
}
