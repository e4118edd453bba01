// Package gliner detects entity mention spans with GLiNER span models.
package gliner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/soundprediction/go-gline-rs/pkg/gline"
)

// Mention is a detected entity mention.
type Mention struct {
	Text  string
	Label string
	Score float32
}

// Client runs a GLiNER span model. Predictions are serialized since the
// underlying session is not safe for concurrent use.
type Client struct {
	model    *gline.Model
	minScore float32
	mu       sync.Mutex
}

// NewClient loads a span model from a local directory holding model.onnx and
// tokenizer.json, or from a Hugging Face model id.
func NewClient(modelID string, minScore float32) (*Client, error) {
	if err := gline.Init(); err != nil {
		return nil, fmt.Errorf("failed to init gline: %w", err)
	}

	var (
		m   *gline.Model
		err error
	)
	if _, statErr := os.Stat(modelID); statErr == nil {
		m, err = gline.NewSpanModel(filepath.Join(modelID, "model.onnx"), filepath.Join(modelID, "tokenizer.json"))
	} else {
		m, err = gline.NewSpanModelFromHF(modelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gliner model %s: %w", modelID, err)
	}
	return &Client{model: m, minScore: minScore}, nil
}

// Close releases the model.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		c.model.Close()
		c.model = nil
	}
	return nil
}

// Detect returns the mentions of the given labels in text.
func (c *Client) Detect(ctx context.Context, text string, labels []string) ([]Mention, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model == nil {
		return nil, fmt.Errorf("span model not loaded")
	}

	results, err := c.model.Predict([]string{text}, labels)
	if err != nil {
		return nil, fmt.Errorf("gliner prediction failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	mentions := make([]Mention, 0, len(results[0]))
	for _, e := range results[0] {
		if e.Probability < c.minScore {
			continue
		}
		mentions = append(mentions, Mention{Text: e.Text, Label: e.Label, Score: e.Probability})
	}
	return mentions, nil
}
