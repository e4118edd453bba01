package ranker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/aqqu/pkg/types"
)

// StaticOracle prefers fixed relations per entity id.
type StaticOracle struct {
	relations map[string][]string
}

// NewStaticOracle creates an oracle from an entity id to relations map.
func NewStaticOracle(relations map[string][]string) *StaticOracle {
	return &StaticOracle{relations: relations}
}

// LoadStaticOracle reads an oracle from YAML of the form
//
//	relations:
//	  m.0f8l9c: [location.country.capital]
func LoadStaticOracle(path string) (*StaticOracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read relation oracle: %w", err)
	}
	var doc struct {
		Relations map[string][]string `yaml:"relations"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse relation oracle %s: %w", path, err)
	}
	return NewStaticOracle(doc.Relations), nil
}

// Relations implements types.RelationOracle.
func (o *StaticOracle) Relations(q *types.Query, entity *types.IdentifiedEntity) []string {
	return o.relations[entity.ID()]
}
