// Package entityindex maps question surface forms to knowledge-base entities.
package entityindex

import (
	"context"
	"sort"

	"github.com/soundprediction/aqqu/pkg/types"
)

// Match is one candidate entity for a surface form.
type Match struct {
	Entity  types.Entity `json:"entity"`
	Surface string       `json:"surface"`
	// Score is the probability of the entity given the surface.
	Score float64 `json:"score"`
}

// Index looks up entities by normalized surface form.
type Index interface {
	// Lookup returns the matches for surface ordered by descending score.
	Lookup(ctx context.Context, surface string) ([]Match, error)
	// Entity returns the entity with the given id.
	Entity(ctx context.Context, id string) (*types.Entity, bool, error)
	Close() error
}

// Writer is implemented by indexes that accept new entries.
type Writer interface {
	Add(ctx context.Context, entity types.Entity, surfaces map[string]float64) error
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Entity.Popularity != matches[j].Entity.Popularity {
			return matches[i].Entity.Popularity > matches[j].Entity.Popularity
		}
		return matches[i].Entity.ID < matches[j].Entity.ID
	})
}

// surfacesFor returns the surfaces of an entity, always including its name.
func surfacesFor(entity types.Entity, surfaces map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(surfaces)+1)
	for s, score := range surfaces {
		if n := types.NormalizeText(s); n != "" {
			out[n] = score
		}
	}
	if name := types.NormalizeText(entity.Name); name != "" {
		if _, ok := out[name]; !ok {
			out[name] = 1.0
		}
	}
	return out
}
