package ranker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/aqqu/pkg/crossencoder"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/types"
)

func capitalQuery(t *testing.T, oracle types.RelationOracle) (*types.Query, *types.IdentifiedEntity) {
	t.Helper()
	france := &types.IdentifiedEntity{
		Entity:       types.Entity{ID: "m.france", Name: "France"},
		Span:         types.Span{Start: 5, End: 6},
		Surface:      "france",
		Score:        1,
		PerfectMatch: true,
	}
	q := types.NewQuery("what is the capital of france")
	tokens := []types.Token{
		{Text: "what", Lemma: "what", Index: 0, WH: true},
		{Text: "is", Lemma: "is", Index: 1, Stop: true},
		{Text: "the", Lemma: "the", Index: 2, Stop: true},
		{Text: "capital", Lemma: "capital", Index: 3},
		{Text: "of", Lemma: "of", Index: 4, Stop: true},
		{Text: "france", Lemma: "france", Index: 5},
	}
	require.NoError(t, q.SetTokens(tokens))
	require.NoError(t, q.SetIdentifiedEntities([]*types.IdentifiedEntity{france}))
	require.NoError(t, q.SetTargetType(&types.AnswerType{Class: types.AnswerClassEntity}))
	require.NoError(t, q.SetContentTokens([]types.Token{tokens[3], tokens[5]}))
	require.NoError(t, q.SetRelationOracle(oracle))
	q.Freeze()
	return q, france
}

func candidates(q *types.Query, e *types.IdentifiedEntity) []*patterns.Candidate {
	ents := []*types.IdentifiedEntity{e}
	return []*patterns.Candidate{
		patterns.NewCandidate(patterns.ERT, q, ents, []string{"location.location.contains"}, nil),
		patterns.NewCandidate(patterns.ERT, q, ents, []string{"location.country.capital"}, nil),
		patterns.NewCandidate(patterns.ERT, q, ents, []string{"location.location.time_zones"}, nil),
		patterns.NewCandidate(patterns.ERMRT, q, ents, []string{"government.officials", "government.office_holder"}, nil),
	}
}

func TestSimpleScoreRankerPrefersMatchingRelation(t *testing.T) {
	q, france := capitalQuery(t, nil)
	r := NewSimpleScoreRanker(DefaultScorer, types.DefaultRankerParameters(), nil)

	ranked, err := r.RankQueryCandidates(context.Background(), candidates(q, france))
	require.NoError(t, err)
	require.Len(t, ranked, 4)
	assert.Equal(t, []string{"location.country.capital"}, ranked[0].Relations)
	assert.Equal(t, 1.0, ranked[0].Features[FeatureRelationOverlap])
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRankingIsStableAndIdempotent(t *testing.T) {
	q, france := capitalQuery(t, nil)
	r := NewSimpleScoreRanker(DefaultScorer, types.DefaultRankerParameters(), nil)
	input := candidates(q, france)

	once, err := r.RankQueryCandidates(context.Background(), input)
	require.NoError(t, err)
	twice, err := r.RankQueryCandidates(context.Background(), once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	// ties keep input order: contains and time_zones score the same
	var tied []string
	for _, c := range once {
		if c.Template == patterns.ERT && c.Relations[0] != "location.country.capital" {
			tied = append(tied, c.Relations[0])
		}
	}
	assert.Equal(t, []string{"location.location.contains", "location.location.time_zones"}, tied)

	// the input slice keeps its order and its candidates keep their identity
	assert.Equal(t, "location.location.contains", input[0].Relations[0])
	assert.Contains(t, once, input[2])
}

func TestRankEmpty(t *testing.T) {
	r := NewSimpleScoreRanker(DefaultScorer, types.DefaultRankerParameters(), nil)
	ranked, err := r.RankQueryCandidates(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestOracleFeature(t *testing.T) {
	oracle := NewStaticOracle(map[string][]string{"m.france": {"location.location.time_zones"}})
	q, france := capitalQuery(t, oracle)
	r := NewSimpleScoreRanker(DefaultScorer, types.DefaultRankerParameters(), nil)

	ranked, err := r.RankQueryCandidates(context.Background(), candidates(q, france))
	require.NoError(t, err)
	assert.Equal(t, "location.country.capital", ranked[0].Relations[0])
	assert.Equal(t, "location.location.time_zones", ranked[1].Relations[0])
	assert.Equal(t, 1.0, ranked[1].Features[FeatureOracle])
	assert.Zero(t, ranked[2].Features[FeatureOracle])
}

func TestLoadStaticOracle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oracle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relations:\n  m.france: [location.country.capital]\n"), 0o644))

	oracle, err := LoadStaticOracle(path)
	require.NoError(t, err)
	_, france := capitalQuery(t, nil)
	assert.Equal(t, []string{"location.country.capital"}, oracle.Relations(nil, france))
}

// wordEmbedder embeds a text as counts of a few vocabulary words.
type wordEmbedder struct {
	calls int
	err   error
}

var vocabulary = []string{"capital", "contains", "zones", "holder"}

func (w *wordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(vocabulary))
		for j, word := range vocabulary {
			if strings.Contains(text, word) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func (w *wordEmbedder) Dimensions() int { return len(vocabulary) }
func (w *wordEmbedder) Close() error    { return nil }

func TestEmbeddingRanker(t *testing.T) {
	q, france := capitalQuery(t, nil)
	emb := &wordEmbedder{}
	r := NewEmbeddingRanker(EmbeddingScorer, types.DefaultRankerParameters(), nil, emb)

	ranked, err := r.RankQueryCandidates(context.Background(), candidates(q, france))
	require.NoError(t, err)
	assert.Equal(t, "location.country.capital", ranked[0].Relations[0])
	assert.InDelta(t, 1.0, ranked[0].Features[FeatureSimilarity], 1e-9)

	_, err = r.RankQueryCandidates(context.Background(), candidates(q, france))
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls, "second ranking is served from the cache")
}

func TestEmbeddingRankerPropagatesErrors(t *testing.T) {
	q, france := capitalQuery(t, nil)
	r := NewEmbeddingRanker(EmbeddingScorer, types.DefaultRankerParameters(), nil, &wordEmbedder{err: errors.New("offline")})

	_, err := r.RankQueryCandidates(context.Background(), candidates(q, france))
	assert.Error(t, err)
}

func TestCatalogue(t *testing.T) {
	assert.Equal(t, []string{DefaultScorer, EmbeddingScorer, GLiNERScorer, RerankScorer}, Names())

	r, err := New(GLiNERScorer, CatalogueOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.LinkerGLiNER, r.Parameters().EntityLinker)

	oracle := NewStaticOracle(nil)
	r, err = New(DefaultScorer, CatalogueOptions{Oracle: oracle})
	require.NoError(t, err)
	assert.Equal(t, types.LinkerSurface, r.Parameters().EntityLinker)
	assert.Same(t, oracle, r.Parameters().RelationOracle)

	_, err = New(EmbeddingScorer, CatalogueOptions{})
	assert.Error(t, err)

	_, err = New(RerankScorer, CatalogueOptions{})
	assert.Error(t, err)

	r, err = New(RerankScorer, CatalogueOptions{CrossEncoder: crossencoder.NewLocalClient()})
	require.NoError(t, err)
	assert.Equal(t, RerankScorer, r.Name())

	_, err = New("LearnedScorer", CatalogueOptions{})
	assert.ErrorIs(t, err, ErrUnknownRanker)
}

type failingEncoder struct{ err error }

func (f failingEncoder) Rank(ctx context.Context, query string, passages []string) ([]crossencoder.RankedPassage, error) {
	return nil, f.err
}

func (f failingEncoder) Close() error { return nil }

func TestRerankRanker(t *testing.T) {
	q, france := capitalQuery(t, nil)
	r := NewRerankRanker(RerankScorer, types.DefaultRankerParameters(), nil, crossencoder.NewLocalClient())

	input := candidates(q, france)
	assert.Equal(t, "France capital", CandidateText(input[1]))

	ranked, err := r.RankQueryCandidates(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, ranked, 4)
	assert.Equal(t, []string{"location.country.capital"}, ranked[0].Relations)
	assert.Greater(t, ranked[0].Features[FeatureRerank], 0.0)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}

	empty, err := r.RankQueryCandidates(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRerankRankerPropagatesErrors(t *testing.T) {
	q, france := capitalQuery(t, nil)
	offline := errors.New("offline")
	r := NewRerankRanker(RerankScorer, types.DefaultRankerParameters(), nil, failingEncoder{err: offline})

	_, err := r.RankQueryCandidates(context.Background(), candidates(q, france))
	assert.ErrorIs(t, err, offline)
}
