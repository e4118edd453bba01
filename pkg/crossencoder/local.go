package crossencoder

import (
	"context"
	"math"
	"strings"

	"github.com/soundprediction/aqqu/pkg/types"
)

// LocalClient scores passages by the cosine similarity of term-frequency
// vectors.
type LocalClient struct{}

// NewLocalClient creates a local reranker.
func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

// Rank implements Client.
func (c *LocalClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := termFrequencies(query)
	results := make([]RankedPassage, len(passages))
	for i, p := range passages {
		results[i] = RankedPassage{Index: i, Passage: p, Score: tfCosine(q, termFrequencies(p))}
	}
	sortRanked(results)
	return results, nil
}

// Close implements Client.
func (c *LocalClient) Close() error {
	return nil
}

func termFrequencies(text string) map[string]float64 {
	tf := make(map[string]float64)
	for _, w := range strings.FieldsFunc(types.NormalizeText(text), func(r rune) bool {
		return !(r == '\'' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		tf[w]++
	}
	return tf
}

func tfCosine(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for w, x := range a {
		dot += x * b[w]
		na += x * x
	}
	for _, y := range b {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
