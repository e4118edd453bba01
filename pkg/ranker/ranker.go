// Package ranker scores query candidates and orders them best first.
package ranker

import (
	"context"
	"errors"
	"sort"

	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/types"
)

// ErrUnknownRanker is returned for names missing from the catalogue.
var ErrUnknownRanker = errors.New("unknown ranker")

// Ranker is a ranking configuration: the parameters used for linking and
// matching, plus the scoring of the resulting candidates.
type Ranker interface {
	Name() string
	Parameters() types.RankerParameters
	// RankQueryCandidates returns the candidates by descending score. Ties
	// keep their input order. The input slice is not modified.
	RankQueryCandidates(ctx context.Context, candidates []*patterns.Candidate) ([]*patterns.Candidate, error)
}

// sortByScore returns a stably sorted copy of candidates.
func sortByScore(candidates []*patterns.Candidate) []*patterns.Candidate {
	ranked := make([]*patterns.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
