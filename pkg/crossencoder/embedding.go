package crossencoder

import (
	"context"
	"fmt"

	"github.com/soundprediction/aqqu/pkg/embedder"
)

// EmbeddingClient ranks passages by the cosine similarity of their
// embeddings to the query embedding. Scores are min-max normalized to
// [0, 1]; when all passages score the same they all get 1.
type EmbeddingClient struct {
	embedder embedder.Client
}

// NewEmbeddingClient creates an embedding-based reranker.
func NewEmbeddingClient(client embedder.Client) *EmbeddingClient {
	return &EmbeddingClient{embedder: client}
}

// Rank implements Client.
func (c *EmbeddingClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}

	texts := append([]string{query}, passages...)
	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	if len(vectors[0]) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	results := make([]RankedPassage, len(passages))
	minScore, maxScore := 1.0, -1.0
	for i, p := range passages {
		s := embedder.CosineSimilarity(vectors[0], vectors[i+1])
		results[i] = RankedPassage{Index: i, Passage: p, Score: s}
		minScore = min(minScore, s)
		maxScore = max(maxScore, s)
	}

	for i := range results {
		if maxScore > minScore {
			results[i].Score = (results[i].Score - minScore) / (maxScore - minScore)
		} else {
			results[i].Score = 1
		}
	}
	sortRanked(results)
	return results, nil
}

// Close implements Client. The embedder is owned by the caller.
func (c *EmbeddingClient) Close() error {
	return nil
}
