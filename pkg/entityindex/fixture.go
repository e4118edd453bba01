package entityindex

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/aqqu/pkg/types"
)

// Alias is an additional surface form of an entity.
type Alias struct {
	Surface string  `yaml:"surface"`
	Score   float64 `yaml:"score"`
}

// FixtureEntry is one entity with its surface forms.
type FixtureEntry struct {
	types.Entity `yaml:",inline"`
	Aliases      []Alias `yaml:"aliases,omitempty"`
}

// Fixture is a YAML entity-index seed.
type Fixture struct {
	Entities []FixtureEntry `yaml:"entities"`
}

// LoadFixtureFile reads a YAML fixture from disk.
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse entity fixture %s: %w", path, err)
	}
	return &f, nil
}

// Load adds every fixture entry to w and returns the number of entities added.
func Load(ctx context.Context, w Writer, f *Fixture) (int, error) {
	for i, entry := range f.Entities {
		if entry.ID == "" {
			return i, fmt.Errorf("fixture entity %d has no id", i)
		}
		surfaces := make(map[string]float64, len(entry.Aliases))
		for _, a := range entry.Aliases {
			score := a.Score
			if score == 0 {
				score = 0.5
			}
			surfaces[a.Surface] = score
		}
		if err := w.Add(ctx, entry.Entity, surfaces); err != nil {
			return i, fmt.Errorf("failed to index %s: %w", entry.ID, err)
		}
	}
	return len(f.Entities), nil
}
