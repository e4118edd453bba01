package ranker

import (
	"context"

	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/types"
)

// SimpleScoreRanker scores candidates with a linear model over lexical features.
type SimpleScoreRanker struct {
	name    string
	params  types.RankerParameters
	weights Weights
}

// NewSimpleScoreRanker creates a ranker. Nil weights select DefaultWeights.
func NewSimpleScoreRanker(name string, params types.RankerParameters, weights Weights) *SimpleScoreRanker {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &SimpleScoreRanker{name: name, params: params, weights: weights}
}

// Name implements Ranker.
func (r *SimpleScoreRanker) Name() string {
	return r.name
}

// Parameters implements Ranker.
func (r *SimpleScoreRanker) Parameters() types.RankerParameters {
	return r.params
}

// RankQueryCandidates implements Ranker.
func (r *SimpleScoreRanker) RankQueryCandidates(ctx context.Context, candidates []*patterns.Candidate) ([]*patterns.Candidate, error) {
	for _, c := range candidates {
		c.Features = extractFeatures(c)
		c.Score = r.weights.Score(c.Features)
	}
	return sortByScore(candidates), nil
}
