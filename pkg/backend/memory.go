package backend

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type triple struct {
	s, p, o string
}

// MemoryBackend is an in-process triple store.
type MemoryBackend struct {
	mu        sync.RWMutex
	triples   []triple
	bySubject map[string][]int
	byObject  map[string][]int
	names     map[string]string
	closed    bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		bySubject: make(map[string][]int),
		byObject:  make(map[string][]int),
		names:     make(map[string]string),
	}
}

// Provider implements Backend.
func (m *MemoryBackend) Provider() Provider {
	return ProviderMemory
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// AddTriple inserts one triple.
func (m *MemoryBackend) AddTriple(subject, relation, object string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addTriple(subject, relation, object)
}

func (m *MemoryBackend) addTriple(subject, relation, object string) {
	idx := len(m.triples)
	m.triples = append(m.triples, triple{s: subject, p: relation, o: object})
	m.bySubject[subject] = append(m.bySubject[subject], idx)
	m.byObject[object] = append(m.byObject[object], idx)
}

// SetName sets the display name of a node.
func (m *MemoryBackend) SetName(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[id] = name
}

// LoadFixture implements Loader.
func (m *MemoryBackend) LoadFixture(ctx context.Context, f *Fixture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range f.Entities {
		if e.Name != "" {
			m.names[e.ID] = e.Name
		}
	}
	for _, t := range f.AllTriples() {
		m.addTriple(t[0], t[1], t[2])
	}
	return nil
}

// Execute implements Backend.
func (m *MemoryBackend) Execute(ctx context.Context, q *StructuredQuery, acc *Accumulator) ([]Row, error) {
	defer track(acc, time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var solutions []map[string]string
	m.solve(q.Patterns, map[string]string{}, func(b map[string]string) {
		for _, f := range q.Filters {
			if b[f.Var] == f.NotEqual {
				return
			}
		}
		solution := make(map[string]string, len(b))
		for k, v := range b {
			solution[k] = v
		}
		solutions = append(solutions, solution)
	})

	return m.project(q, solutions), nil
}

// solve enumerates bindings satisfying all patterns by backtracking,
// always expanding the pattern with the most bound positions first.
func (m *MemoryBackend) solve(patterns []Pattern, binding map[string]string, emit func(map[string]string)) {
	if len(patterns) == 0 {
		emit(binding)
		return
	}

	next := 0
	best := -1
	for i, p := range patterns {
		score := 0
		for _, t := range []Term{p.Subject, p.Predicate, p.Object} {
			if _, ok := resolve(t, binding); ok {
				score++
			}
		}
		if score > best {
			best, next = score, i
		}
	}

	p := patterns[next]
	rest := make([]Pattern, 0, len(patterns)-1)
	rest = append(rest, patterns[:next]...)
	rest = append(rest, patterns[next+1:]...)

	for _, idx := range m.candidates(p, binding) {
		t := m.triples[idx]
		added, ok := unify(p, t, binding)
		if !ok {
			continue
		}
		m.solve(rest, binding, emit)
		for _, v := range added {
			delete(binding, v)
		}
	}
}

func (m *MemoryBackend) candidates(p Pattern, binding map[string]string) []int {
	if s, ok := resolve(p.Subject, binding); ok {
		return m.bySubject[s]
	}
	if o, ok := resolve(p.Object, binding); ok {
		return m.byObject[o]
	}
	all := make([]int, len(m.triples))
	for i := range all {
		all[i] = i
	}
	return all
}

func resolve(t Term, binding map[string]string) (string, bool) {
	if !t.IsVar() {
		return t.Value, true
	}
	v, ok := binding[t.Var]
	return v, ok
}

// unify binds the pattern's free variables to the triple. It returns the
// variables it added so the caller can undo them.
func unify(p Pattern, t triple, binding map[string]string) ([]string, bool) {
	var added []string
	for _, pair := range []struct {
		term  Term
		value string
	}{{p.Subject, t.s}, {p.Predicate, t.p}, {p.Object, t.o}} {
		if v, ok := resolve(pair.term, binding); ok {
			if v != pair.value {
				for _, a := range added {
					delete(binding, a)
				}
				return nil, false
			}
			continue
		}
		binding[pair.term.Var] = pair.value
		added = append(added, pair.term.Var)
	}
	return added, true
}

func (m *MemoryBackend) project(q *StructuredQuery, solutions []map[string]string) []Row {
	if len(q.Select) == 1 && q.Select[0].Count {
		distinct := make(map[string]struct{})
		for _, s := range solutions {
			distinct[s[q.Select[0].Var]] = struct{}{}
		}
		return []Row{{strconv.Itoa(len(distinct))}}
	}

	rows := make([]Row, 0, len(solutions))
	seen := make(map[string]struct{})
	for _, s := range solutions {
		row := make(Row, len(q.Select))
		for i, p := range q.Select {
			row[i] = s[p.Var]
			if p.Name {
				if name, ok := m.names[row[i]]; ok {
					row[i] = name
				}
			}
		}
		if q.Distinct {
			key := strings.Join(row, "\x00")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return strings.Join(rows[i], "\x00") < strings.Join(rows[j], "\x00")
	})
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows
}
