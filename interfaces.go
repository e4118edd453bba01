package aqqu

import (
	"context"

	"github.com/soundprediction/aqqu/pkg/execution"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/ranker"
	"github.com/soundprediction/aqqu/pkg/telemetry"
	"github.com/soundprediction/aqqu/pkg/types"
)

// Consumers should depend on the smallest interface that meets their needs.

// QueryTranslator generates unranked candidates for a question.
type QueryTranslator interface {
	TranslateQuery(ctx context.Context, text string) (*types.Query, []*patterns.Candidate, error)
}

// QueryExecutor translates, ranks and executes a question.
type QueryExecutor interface {
	TranslateAndExecuteQuery(ctx context.Context, text string, limit int) (*types.Query, []execution.TranslationResult, error)
	TranslateAndExecuteQueryWithStats(ctx context.Context, text string, limit int) (*types.Query, []execution.TranslationResult, telemetry.TranslationStats, error)
}

// ScorerSwitcher reads and replaces the active scorer.
type ScorerSwitcher interface {
	Scorer() ranker.Ranker
	SetScorer(scorer ranker.Ranker) error
}

// Pinger checks that the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service is everything the HTTP server needs from a translator.
type Service interface {
	QueryTranslator
	QueryExecutor
	ScorerSwitcher
	Pinger
}

var _ Service = (*Translator)(nil)
