package ranker

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/aqqu/pkg/crossencoder"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/types"
)

// FeatureRerank is the cross-encoder relevance of the question to the
// candidate's description.
const FeatureRerank = "rerank_score"

// RerankRanker adds a cross-encoder relevance score to the lexical
// features.
type RerankRanker struct {
	name    string
	params  types.RankerParameters
	weights Weights
	encoder crossencoder.Client
}

// NewRerankRanker creates a cross-encoder ranker.
func NewRerankRanker(name string, params types.RankerParameters, weights Weights, encoder crossencoder.Client) *RerankRanker {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &RerankRanker{name: name, params: params, weights: weights, encoder: encoder}
}

// Name implements Ranker.
func (r *RerankRanker) Name() string {
	return r.name
}

// Parameters implements Ranker.
func (r *RerankRanker) Parameters() types.RankerParameters {
	return r.params
}

// RankQueryCandidates implements Ranker.
func (r *RerankRanker) RankQueryCandidates(ctx context.Context, candidates []*patterns.Candidate) ([]*patterns.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = CandidateText(c)
	}
	var question string
	if q := candidates[0].Query; q != nil {
		question = q.Text()
	}

	ranked, err := r.encoder.Rank(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("failed to rerank candidates: %w", err)
	}
	scores := crossencoder.ScoresByIndex(ranked, len(candidates))

	for i, c := range candidates {
		c.Features = extractFeatures(c)
		c.Features[FeatureRerank] = scores[i]
		c.Score = r.weights.Score(c.Features)
	}
	return sortByScore(candidates), nil
}

// CandidateText renders c as the entity names followed by its relations.
func CandidateText(c *patterns.Candidate) string {
	parts := make([]string, 0, len(c.Entities)+1)
	for _, e := range c.Entities {
		name := e.Entity.Name
		if name == "" {
			name = e.Surface
		}
		parts = append(parts, name)
	}
	parts = append(parts, RelationText(c.Relations))
	return strings.Join(parts, " ")
}
