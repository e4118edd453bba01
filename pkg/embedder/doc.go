// Package embedder provides text embedding clients.
//
// Embeddings are used by the relation-similarity ranker to compare question
// content words with knowledge-base relation names.
//
// # Supported Providers
//
//   - OpenAI and OpenAI-compatible services: text-embedding-3-small, ...
//   - EmbedEverything: local models run in-process
//
// # Usage
//
//	e, err := embedder.NewOpenAIEmbedder(embedder.Config{Model: "text-embedding-3-small"})
//	vectors, err := e.Embed(ctx, []string{"capital city"})
package embedder
