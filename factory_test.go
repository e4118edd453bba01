package aqqu_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/soundprediction/aqqu"
	"github.com/soundprediction/aqqu/pkg/answertype"
	"github.com/soundprediction/aqqu/pkg/backend"
	"github.com/soundprediction/aqqu/pkg/config"
	"github.com/soundprediction/aqqu/pkg/ranker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const indexFixture = `entities:
  - id: m.france
    name: France
    popularity: 0.9
  - id: m.starwars
    name: Star Wars
    popularity: 0.8
    aliases:
      - surface: episode iv
        score: 0.7
`

func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	kb, err := yaml.Marshal(knowledgeBase())
	require.NoError(t, err)
	kbPath := filepath.Join(dir, "kb.yaml")
	require.NoError(t, os.WriteFile(kbPath, kb, 0o644))

	indexPath := filepath.Join(dir, "index.yaml")
	require.NoError(t, os.WriteFile(indexPath, []byte(indexFixture), 0o644))

	cfg := &config.Config{}
	cfg.Backend.Driver = "memory"
	cfg.Backend.Fixture = kbPath
	cfg.EntityIndex.Driver = "memory"
	cfg.EntityIndex.Fixture = indexPath
	cfg.AnswerType.Provider = "rules"

	cfg.Ranking.Scorer = ranker.DefaultScorer
	cfg.Ranking.MaxNGram = 4
	cfg.Ranking.MinSurfaceScore = 0.01
	cfg.Ranking.MaxEntitiesPerSpan = 3
	cfg.Ranking.MaxRelationsPerEntity = 100
	cfg.Ranking.Rerank.Provider = "local"
	cfg.Execution.MaxConcurrency = 2
	cfg.Execution.IncludeName = true
	return cfg
}

func TestNewTranslatorFromConfig(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Ranking.Scorer = ranker.RerankScorer
	catalogue, err := aqqu.NewScorerCatalogue(cfg)
	require.NoError(t, err)
	defer catalogue.Close()

	tr, err := aqqu.NewTranslatorFromConfig(context.Background(), cfg, catalogue, nil)
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, ranker.RerankScorer, tr.Scorer().Name())
	require.NoError(t, tr.Ping(context.Background()))

	_, results, err := tr.TranslateAndExecuteQuery(context.Background(), "what is the capital of france", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{capitalRel}, results[0].Candidate.Relations)
	assert.Equal(t, []backend.Row{{"m.paris", "Paris"}}, results[0].Rows)
}

func TestNewTranslatorFromConfigIndexAliases(t *testing.T) {
	cfg := fixtureConfig(t)
	catalogue, err := aqqu.NewScorerCatalogue(cfg)
	require.NoError(t, err)

	tr, err := aqqu.NewTranslatorFromConfig(context.Background(), cfg, catalogue, nil)
	require.NoError(t, err)
	defer tr.Close()

	q, _, err := tr.TranslateQuery(context.Background(), "who directed episode iv")
	require.NoError(t, err)
	require.NotEmpty(t, q.IdentifiedEntities())
	assert.Equal(t, "m.starwars", q.IdentifiedEntities()[0].ID())
}

func TestNewTranslatorFromConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown backend", func(c *config.Config) { c.Backend.Driver = "sparql" }},
		{"unknown index", func(c *config.Config) { c.EntityIndex.Driver = "lucene" }},
		{"unknown answer type", func(c *config.Config) { c.AnswerType.Provider = "oracle" }},
		{"unknown scorer", func(c *config.Config) { c.Ranking.Scorer = "LearnedScorer" }},
		{"missing fixture", func(c *config.Config) { c.Backend.Fixture = "/nonexistent/kb.yaml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fixtureConfig(t)
			tt.mutate(cfg)
			catalogue, err := aqqu.NewScorerCatalogue(cfg)
			require.NoError(t, err)

			_, err = aqqu.NewTranslatorFromConfig(context.Background(), cfg, catalogue, nil)
			assert.Error(t, err)
		})
	}
}

func TestScorerCatalogue(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Ranking.Weights = map[string]float64{ranker.FeatureOracle: 3}
	catalogue, err := aqqu.NewScorerCatalogue(cfg)
	require.NoError(t, err)
	defer catalogue.Close()

	assert.Equal(t, ranker.Names(), catalogue.Names())

	r, err := catalogue.New(ranker.GLiNERScorer)
	require.NoError(t, err)
	assert.Equal(t, ranker.GLiNERScorer, r.Name())
	assert.Equal(t, 4, r.Parameters().MaxNGram)

	first, err := catalogue.New(ranker.RerankScorer)
	require.NoError(t, err)
	second, err := catalogue.New(ranker.RerankScorer)
	require.NoError(t, err)
	assert.Equal(t, ranker.RerankScorer, first.Name())
	assert.NotSame(t, first, second)

	_, err = catalogue.New("LearnedScorer")
	assert.ErrorIs(t, err, ranker.ErrUnknownRanker)
}

func TestScorerCatalogueMissingOracle(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Ranking.OraclePath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := aqqu.NewScorerCatalogue(cfg)
	assert.Error(t, err)
}

func TestNewAnswerTypeFromConfig(t *testing.T) {
	cfg := fixtureConfig(t)
	id, err := aqqu.NewAnswerTypeFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &answertype.RuleIdentifier{}, id)

	cfg.AnswerType.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = aqqu.NewAnswerTypeFromConfig(cfg, nil)
	assert.Error(t, err)
}
