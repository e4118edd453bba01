package entityindex

import (
	"context"
	"sync"

	"github.com/soundprediction/aqqu/pkg/types"
)

// MemoryIndex is an in-process Index.
type MemoryIndex struct {
	mu       sync.RWMutex
	surfaces map[string][]Match
	entities map[string]types.Entity
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		surfaces: make(map[string][]Match),
		entities: make(map[string]types.Entity),
	}
}

// Add implements Writer. Re-adding a surface for the same entity replaces its score.
func (m *MemoryIndex) Add(ctx context.Context, entity types.Entity, surfaces map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entities[entity.ID] = entity
	for surface, score := range surfacesFor(entity, surfaces) {
		matches := m.surfaces[surface]
		replaced := false
		for i := range matches {
			if matches[i].Entity.ID == entity.ID {
				matches[i] = Match{Entity: entity, Surface: surface, Score: score}
				replaced = true
			}
		}
		if !replaced {
			matches = append(matches, Match{Entity: entity, Surface: surface, Score: score})
		}
		sortMatches(matches)
		m.surfaces[surface] = matches
	}
	return nil
}

// Lookup implements Index.
func (m *MemoryIndex) Lookup(ctx context.Context, surface string) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := m.surfaces[types.NormalizeText(surface)]
	out := make([]Match, len(matches))
	copy(out, matches)
	return out, nil
}

// Entity implements Index.
func (m *MemoryIndex) Entity(ctx context.Context, id string) (*types.Entity, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[id]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

// Len returns the number of indexed entities.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// Close implements Index.
func (m *MemoryIndex) Close() error {
	return nil
}
