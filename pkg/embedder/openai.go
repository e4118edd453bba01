package embedder

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/soundprediction/aqqu/pkg/nlp"
)

const defaultOpenAIDimensions = 1536

// OpenAIEmbedder embeds texts with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
}

// NewOpenAIEmbedder creates an OpenAI embedder.
func NewOpenAIEmbedder(config Config) (*OpenAIEmbedder, error) {
	client, err := nlp.NewOpenAIClient(nlp.Config{APIKey: config.APIKey, BaseURL: config.BaseURL})
	if err != nil {
		return nil, err
	}
	if config.Model == "" {
		config.Model = string(openai.SmallEmbedding3)
	}
	if config.Dimensions <= 0 {
		config.Dimensions = defaultOpenAIDimensions
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &OpenAIEmbedder{client: client, config: config}, nil
}

// Embed implements Client, splitting texts into provider-sized batches.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.config.Model),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings failed: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), end-start)
		}
		for _, d := range resp.Data {
			out = append(out, d.Embedding)
		}
	}
	return out, nil
}

// Dimensions implements Client.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Close implements Client.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
