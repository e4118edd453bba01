/*
Package crossencoder scores passages by their relevance to a query.

Rankers use it to compare a question with a textual rendering of each
candidate query. Three providers are available:

	// Term-frequency cosine, no model required
	local, _ := crossencoder.NewClient(crossencoder.Config{Provider: crossencoder.ProviderLocal}, nil)

	// Bi-encoder similarity over an embedder.Client
	emb, _ := crossencoder.NewClient(crossencoder.Config{Provider: crossencoder.ProviderEmbedding}, embedderClient)

	// Local cross-encoder model via go-embedeverything
	ee, _ := crossencoder.NewClient(crossencoder.Config{
		Provider: crossencoder.ProviderEmbedEverything,
		Model:    "BAAI/bge-reranker-base",
	}, nil)

	results, err := ee.Rank(ctx, "who directed star wars", passages)

Results are returned in descending score order and carry the index of
the passage they score, so duplicate passages stay distinguishable.
*/
package crossencoder

import (
	"context"
	"fmt"
	"sort"

	"github.com/soundprediction/aqqu/pkg/embedder"
)

// Provider represents the type of cross-encoder provider
type Provider string

const (
	// ProviderLocal uses local text similarity algorithms
	ProviderLocal Provider = "local"

	// ProviderEmbedding uses embedding-based similarity for reranking
	ProviderEmbedding Provider = "embedding"

	// ProviderEmbedEverything uses go-embedeverything for local reranking
	ProviderEmbedEverything Provider = "embedeverything"
)

// Config selects and configures a cross-encoder.
type Config struct {
	Provider Provider `mapstructure:"provider"`
	Model    string   `mapstructure:"model"`
}

// RankedPassage is one scored passage.
type RankedPassage struct {
	Index   int     `json:"index"`
	Passage string  `json:"passage"`
	Score   float64 `json:"score"`
}

// Client ranks passages against a query.
type Client interface {
	Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error)
	Close() error
}

// NewClient creates the client selected by cfg.Provider. The embedding
// provider requires emb.
func NewClient(cfg Config, emb embedder.Client) (Client, error) {
	switch cfg.Provider {
	case "", ProviderLocal:
		return NewLocalClient(), nil
	case ProviderEmbedding:
		if emb == nil {
			return nil, fmt.Errorf("embedder client is required for embedding provider")
		}
		return NewEmbeddingClient(emb), nil
	case ProviderEmbedEverything:
		model := cfg.Model
		if model == "" {
			model = DefaultEmbedEverythingModel
		}
		return NewEmbedEverythingClient(model)
	default:
		return nil, fmt.Errorf("unsupported cross-encoder provider: %s", cfg.Provider)
	}
}

// ScoresByIndex returns the passage scores in input order.
func ScoresByIndex(ranked []RankedPassage, n int) []float64 {
	scores := make([]float64, n)
	for _, r := range ranked {
		if r.Index >= 0 && r.Index < n {
			scores[r.Index] = r.Score
		}
	}
	return scores
}

func sortRanked(ranked []RankedPassage) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
}
