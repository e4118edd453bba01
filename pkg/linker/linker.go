// Package linker identifies knowledge-base entities mentioned in question tokens.
//
// Linker implementations are selected by a types.LinkerKind tag through a
// Registry, so swapping the ranking configuration can rebuild the linker
// without inspecting concrete types.
package linker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/soundprediction/aqqu/pkg/entityindex"
	"github.com/soundprediction/aqqu/pkg/types"
)

// ErrUnknownKind is returned when no factory is registered for a linker kind.
var ErrUnknownKind = errors.New("unknown entity linker kind")

// Linker finds entity mentions in parsed tokens.
type Linker interface {
	Kind() types.LinkerKind
	IdentifyEntitiesInTokens(ctx context.Context, tokens []types.Token) ([]*types.IdentifiedEntity, error)
}

// Factory builds a Linker from ranking parameters.
type Factory func(params types.RankerParameters, index entityindex.Index) (Linker, error)

// Registry maps linker kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[types.LinkerKind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[types.LinkerKind]Factory)}
}

// DefaultRegistry returns a registry with the surface and GLiNER linkers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(types.LinkerSurface, NewSurfaceLinkerFactory())
	r.Register(types.LinkerGLiNER, NewGLiNERLinkerFactory(LoadGLiNERDetector))
	return r
}

// Register installs or replaces the factory for kind.
func (r *Registry) Register(kind types.LinkerKind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []types.LinkerKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]types.LinkerKind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// New builds the linker registered for kind.
func (r *Registry) New(kind types.LinkerKind, params types.RankerParameters, index entityindex.Index) (Linker, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	l, err := f(params, index)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s linker: %w", kind, err)
	}
	return l, nil
}

// sortIdentified orders mentions by descending score, then by position.
func sortIdentified(entities []*types.IdentifiedEntity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Score != entities[j].Score {
			return entities[i].Score > entities[j].Score
		}
		if entities[i].Span.Start != entities[j].Span.Start {
			return entities[i].Span.Start < entities[j].Span.Start
		}
		return entities[i].ID() < entities[j].ID()
	})
}

func identified(m entityindex.Match, span types.Span, surface string, score float64) *types.IdentifiedEntity {
	return &types.IdentifiedEntity{
		Entity:       m.Entity,
		Span:         span,
		Surface:      surface,
		Score:        score,
		PerfectMatch: types.NormalizeText(m.Entity.Name) == surface,
	}
}
