package backend

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FixtureEntity is a node of a knowledge-base fixture.
type FixtureEntity struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Types    []string `yaml:"types,omitempty"`
	Mediator bool     `yaml:"mediator,omitempty"`
}

// Fixture is a small knowledge base used to seed backends.
type Fixture struct {
	Entities []FixtureEntity `yaml:"entities"`
	// Triples are subject, relation, object id triples.
	Triples [][3]string `yaml:"triples"`
}

// Loader is implemented by backends that can be seeded from a fixture.
type Loader interface {
	LoadFixture(ctx context.Context, f *Fixture) error
}

// LoadFixtureFile reads a YAML fixture from disk.
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// AllTriples returns the explicit triples plus the type triples implied by
// entity types and mediator flags.
func (f *Fixture) AllTriples() [][3]string {
	triples := make([][3]string, 0, len(f.Triples)+len(f.Entities))
	triples = append(triples, f.Triples...)
	for _, e := range f.Entities {
		for _, t := range e.Types {
			triples = append(triples, [3]string{e.ID, TypeRelation, t})
		}
		if e.Mediator {
			triples = append(triples, [3]string{e.ID, TypeRelation, MediatorType})
		}
	}
	return triples
}
