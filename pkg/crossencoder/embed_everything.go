package crossencoder

import (
	"context"
	"fmt"

	"github.com/soundprediction/go-embedeverything/pkg/embedder"
)

// DefaultEmbedEverythingModel is used when no model is configured.
const DefaultEmbedEverythingModel = "BAAI/bge-reranker-base"

// EmbedEverythingClient implements the Client interface for EmbedEverything reranking.
type EmbedEverythingClient struct {
	reranker *embedder.Reranker
}

// NewEmbedEverythingClient creates a new EmbedEverything reranker client.
func NewEmbedEverythingClient(model string) (*EmbedEverythingClient, error) {
	reranker, err := embedder.NewReranker(model)
	if err != nil {
		return nil, fmt.Errorf("failed to create reranker: %w", err)
	}
	return &EmbedEverythingClient{reranker: reranker}, nil
}

// Rank implements Client.
func (e *EmbedEverythingClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// go-embedeverything does not support context yet
	results, err := e.reranker.Rerank(query, passages)
	if err != nil {
		return nil, fmt.Errorf("failed to rerank passages: %w", err)
	}

	// Results come back by text; hand out input indexes in order so
	// duplicate passages each get one.
	pending := make(map[string][]int, len(passages))
	for i, p := range passages {
		pending[p] = append(pending[p], i)
	}
	ranked := make([]RankedPassage, 0, len(results))
	for _, r := range results {
		idx := -1
		if ids := pending[r.Text]; len(ids) > 0 {
			idx, pending[r.Text] = ids[0], ids[1:]
		}
		ranked = append(ranked, RankedPassage{Index: idx, Passage: r.Text, Score: float64(r.Score)})
	}
	sortRanked(ranked)
	return ranked, nil
}

// Close cleans up any resources.
func (e *EmbedEverythingClient) Close() error {
	e.reranker.Close()
	return nil
}
