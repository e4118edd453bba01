package ranker

import (
	"context"
	"fmt"
	"sync"

	"github.com/soundprediction/aqqu/pkg/embedder"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/types"
)

// EmbeddingRanker adds the embedding similarity between the question's
// residual content words and the candidate relations to the lexical score.
type EmbeddingRanker struct {
	name     string
	params   types.RankerParameters
	weights  Weights
	embedder embedder.Client

	mu    sync.Mutex
	cache map[string][]float32
}

// NewEmbeddingRanker creates an embedding ranker.
func NewEmbeddingRanker(name string, params types.RankerParameters, weights Weights, client embedder.Client) *EmbeddingRanker {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &EmbeddingRanker{
		name:     name,
		params:   params,
		weights:  weights,
		embedder: client,
		cache:    make(map[string][]float32),
	}
}

// Name implements Ranker.
func (r *EmbeddingRanker) Name() string {
	return r.name
}

// Parameters implements Ranker.
func (r *EmbeddingRanker) Parameters() types.RankerParameters {
	return r.params
}

// RankQueryCandidates implements Ranker.
func (r *EmbeddingRanker) RankQueryCandidates(ctx context.Context, candidates []*patterns.Candidate) ([]*patterns.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, 2*len(candidates))
	for _, c := range candidates {
		texts = append(texts, types.JoinTokens(residualTokens(c)), RelationText(c.Relations))
	}
	vectors, err := r.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		c.Features = extractFeatures(c)
		question := vectors[types.JoinTokens(residualTokens(c))]
		relation := vectors[RelationText(c.Relations)]
		c.Features[FeatureSimilarity] = embedder.CosineSimilarity(question, relation)
		c.Score = r.weights.Score(c.Features)
	}
	return sortByScore(candidates), nil
}

// embed returns a vector per distinct non-empty text, embedding only texts
// missing from the cache.
func (r *EmbeddingRanker) embed(ctx context.Context, texts []string) (map[string][]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var missing []string
	queued := make(map[string]bool)
	for _, t := range texts {
		if t == "" || queued[t] {
			continue
		}
		if _, ok := r.cache[t]; !ok {
			missing = append(missing, t)
			queued[t] = true
		}
	}
	if len(missing) > 0 {
		vectors, err := r.embedder.Embed(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to embed ranking texts: %w", err)
		}
		if len(vectors) != len(missing) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
		}
		for i, t := range missing {
			r.cache[t] = vectors[i]
		}
	}

	out := make(map[string][]float32, len(texts))
	for _, t := range texts {
		if v, ok := r.cache[t]; ok {
			out[t] = v
		}
	}
	return out, nil
}
