package aqqu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soundprediction/aqqu/pkg/answertype"
	"github.com/soundprediction/aqqu/pkg/backend"
	"github.com/soundprediction/aqqu/pkg/entityindex"
	"github.com/soundprediction/aqqu/pkg/execution"
	"github.com/soundprediction/aqqu/pkg/linker"
	"github.com/soundprediction/aqqu/pkg/parser"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/ranker"
	"github.com/soundprediction/aqqu/pkg/telemetry"
	"github.com/soundprediction/aqqu/pkg/types"
)

var (
	// ErrMissingBackend is returned by New without a backend.
	ErrMissingBackend = errors.New("translator requires a backend")
	// ErrMissingIndex is returned by New without an entity index.
	ErrMissingIndex = errors.New("translator requires an entity index")
	// ErrNilScorer is returned by SetScorer for a nil ranker.
	ErrNilScorer = errors.New("scorer cannot be nil")
)

// Dependencies are the collaborators of a Translator. Backend and Index are
// required; the rest default to the built-in implementations.
type Dependencies struct {
	Backend    backend.Backend
	Index      entityindex.Index
	Parser     parser.Parser
	Registry   *linker.Registry
	AnswerType answertype.Identifier
	Scorer     ranker.Ranker
	Executor   *execution.Executor
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) { t.logger = logger }
}

// WithRecorder receives the stats of every translate-and-execute request.
func WithRecorder(r telemetry.Recorder) Option {
	return func(t *Translator) { t.recorder = r }
}

// Translator turns questions into ranked, executable graph queries.
//
// It is safe for concurrent use. Each request gets its own backend
// accumulator, so stats never mix between requests.
type Translator struct {
	backend    backend.Backend
	index      entityindex.Index
	parser     parser.Parser
	registry   *linker.Registry
	answerType answertype.Identifier
	extender   *patterns.Extender
	executor   *execution.Executor
	recorder   telemetry.Recorder
	logger     *slog.Logger

	mu     sync.RWMutex
	scorer ranker.Ranker
	linker linker.Linker
}

// New creates a Translator. The candidate extender is initialized with the
// scorer's parameters and the linker is built for the scorer's linker kind.
func New(deps Dependencies, opts ...Option) (*Translator, error) {
	if deps.Backend == nil {
		return nil, ErrMissingBackend
	}
	if deps.Index == nil {
		return nil, ErrMissingIndex
	}

	t := &Translator{
		backend:    deps.Backend,
		index:      deps.Index,
		parser:     deps.Parser,
		registry:   deps.Registry,
		answerType: deps.AnswerType,
		executor:   deps.Executor,
		scorer:     deps.Scorer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.parser == nil {
		t.parser = parser.NewTokenizer()
	}
	if t.registry == nil {
		t.registry = linker.DefaultRegistry()
	}
	if t.answerType == nil {
		id, err := answertype.NewRuleIdentifier(answertype.DefaultRules)
		if err != nil {
			return nil, err
		}
		t.answerType = id
	}
	if t.scorer == nil {
		scorer, err := ranker.New(ranker.DefaultScorer, ranker.CatalogueOptions{})
		if err != nil {
			return nil, err
		}
		t.scorer = scorer
	}
	if t.executor == nil {
		t.executor = execution.NewExecutor(execution.WithLogger(t.logger))
	}

	params := t.scorer.Parameters()
	l, err := t.registry.New(params.EntityLinker, params, t.index)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity linker: %w", err)
	}
	t.linker = l
	t.extender = patterns.NewExtender(params, t.logger)

	return t, nil
}

// Scorer returns the active ranker.
func (t *Translator) Scorer() ranker.Ranker {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scorer
}

// Linker returns the active entity linker.
func (t *Translator) Linker() linker.Linker {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.linker
}

// SetScorer makes scorer the active ranker. The entity linker is rebuilt
// only if the scorer asks for a different linker kind.
func (t *Translator) SetScorer(scorer ranker.Ranker) error {
	if scorer == nil {
		return ErrNilScorer
	}
	params := scorer.Parameters()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.linker == nil || t.linker.Kind() != params.EntityLinker {
		l, err := t.registry.New(params.EntityLinker, params, t.index)
		if err != nil {
			return fmt.Errorf("failed to create entity linker: %w", err)
		}
		t.logger.Info("Switched entity linker", "from", kindOf(t.linker), "to", l.Kind())
		t.linker = l
	}
	t.scorer = scorer
	t.extender.SetParameters(params)
	return nil
}

func kindOf(l linker.Linker) types.LinkerKind {
	if l == nil {
		return ""
	}
	return l.Kind()
}

func (t *Translator) active() (ranker.Ranker, linker.Linker) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scorer, t.linker
}

// TranslateQuery parses the question, links its entities, determines the
// answer type and generates candidates for every template, ERT first, then
// ERMRT, then ERMRERT. Candidates are not ranked.
func (t *Translator) TranslateQuery(ctx context.Context, text string) (*types.Query, []*patterns.Candidate, error) {
	scorer, l := t.active()
	return t.translate(ctx, text, scorer, l, backend.NewAccumulator())
}

func (t *Translator) translate(ctx context.Context, text string, scorer ranker.Ranker, l linker.Linker, acc *backend.Accumulator) (*types.Query, []*patterns.Candidate, error) {
	t.logger.InfoContext(ctx, "Translating query", "query", text)
	start := time.Now()

	q, err := t.parseAndIdentifyEntities(ctx, text, l)
	if err != nil {
		return nil, nil, err
	}
	if err := t.answerType.IdentifyTarget(ctx, q); err != nil {
		return nil, nil, fmt.Errorf("failed to identify answer type: %w", err)
	}
	if err := q.SetContentTokens(parser.ContentTokens(q.Tokens())); err != nil {
		return nil, nil, err
	}
	params := scorer.Parameters()
	if err := q.SetRelationOracle(params.RelationOracle); err != nil {
		return nil, nil, err
	}
	q.Freeze()

	var candidates []*patterns.Candidate
	for _, tmpl := range patterns.Templates {
		matches, err := t.extender.MatchWith(ctx, tmpl, params, q, t.backend, acc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to match %s pattern: %w", tmpl, err)
		}
		candidates = append(candidates, matches...)
	}

	t.logger.InfoContext(ctx, "Total translation time",
		"duration_ms", float64(time.Since(start))/float64(time.Millisecond),
		"candidates", len(candidates))
	return q, candidates, nil
}

// parseAndIdentifyEntities builds the query with tokens and linked
// entities.
func (t *Translator) parseAndIdentifyEntities(ctx context.Context, text string, l linker.Linker) (*types.Query, error) {
	q := types.NewQuery(text)
	tokens, err := t.parser.Parse(ctx, q.Text())
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	if err := q.SetTokens(tokens); err != nil {
		return nil, err
	}

	entities, err := l.IdentifyEntitiesInTokens(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to identify entities: %w", err)
	}
	if err := q.SetIdentifiedEntities(entities); err != nil {
		return nil, err
	}
	return q, nil
}

// TranslateAndExecuteQuery translates the question, ranks the candidates
// with the active scorer and fetches the rows of at most limit of them in
// rank order. Candidates without rows are skipped.
func (t *Translator) TranslateAndExecuteQuery(ctx context.Context, text string, limit int) (*types.Query, []execution.TranslationResult, error) {
	q, results, _, err := t.TranslateAndExecuteQueryWithStats(ctx, text, limit)
	return q, results, err
}

// TranslateAndExecuteQueryWithStats is TranslateAndExecuteQuery that also
// returns the request's stats.
func (t *Translator) TranslateAndExecuteQueryWithStats(ctx context.Context, text string, limit int) (*types.Query, []execution.TranslationResult, telemetry.TranslationStats, error) {
	start := time.Now()
	scorer, l := t.active()

	requestID, _ := ctx.Value(types.ContextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = context.WithValue(ctx, types.ContextKeyRequestID, requestID)
	}
	stats := telemetry.TranslationStats{
		RequestID: requestID,
		Scorer:    scorer.Name(),
		Linker:    string(l.Kind()),
		Question:  text,
	}

	q, results, err := t.translateAndExecute(ctx, text, limit, scorer, l, &stats)
	stats.TotalTime = time.Since(start)

	if t.recorder != nil {
		if rerr := t.recorder.RecordTranslation(ctx, stats, err); rerr != nil {
			t.logger.WarnContext(ctx, "Failed to record translation stats", "error", rerr)
		}
	}
	if err != nil {
		return nil, nil, stats, err
	}
	t.logger.InfoContext(ctx, "Done translating and executing", "query", q.String())
	return q, results, stats, nil
}

func (t *Translator) translateAndExecute(ctx context.Context, text string, limit int, scorer ranker.Ranker, l linker.Linker, stats *telemetry.TranslationStats) (*types.Query, []execution.TranslationResult, error) {
	if limit < 0 {
		return nil, nil, fmt.Errorf("%w: %d", execution.ErrNegativeLimit, limit)
	}
	acc := backend.NewAccumulator()

	translateStart := time.Now()
	q, candidates, err := t.translate(ctx, text, scorer, l, acc)
	if err != nil {
		return nil, nil, err
	}
	stats.TranslationTime = time.Since(translateStart)
	translation := acc.Snapshot()
	stats.Entities = len(q.IdentifiedEntities())
	stats.Candidates = len(candidates)
	stats.Translation = telemetry.NewPhaseStats(translation.Queries, translation.TotalTime, translation.Queries)
	t.logger.InfoContext(ctx, "Translation queries",
		"count", stats.Translation.Queries,
		"time_ms", stats.Translation.Time.Seconds()*1000,
		"avg_ms", stats.Translation.AverageMs)

	t.logger.InfoContext(ctx, "Ranking query candidates", "count", len(candidates), "scorer", scorer.Name())
	rankStart := time.Now()
	ranked, err := scorer.RankQueryCandidates(ctx, candidates)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rank candidates: %w", err)
	}
	stats.RankingTime = time.Since(rankStart)

	t.logger.InfoContext(ctx, "Fetching translations for all candidates")
	results, exec, err := t.executor.Execute(ctx, ranked, limit, acc)
	stats.Considered = exec.Considered
	stats.Truncated = exec.Truncated
	stats.SoftMisses = exec.SoftMisses
	stats.Results = exec.Results
	stats.Rows = exec.Rows
	stats.Values = exec.Values
	stats.Fetch = telemetry.NewPhaseStats(exec.Queries, exec.Time, int64(exec.Results))
	if err != nil {
		return nil, nil, err
	}
	t.logger.InfoContext(ctx, "Fetched translations",
		"values", stats.Values,
		"results", stats.Results,
		"queries", stats.Fetch.Queries,
		"time_ms", stats.Fetch.Time.Seconds()*1000,
		"avg_ms", stats.Fetch.AverageMs)

	return q, results, nil
}

// Ping runs a trivial relation lookup to check that the backend answers.
func (t *Translator) Ping(ctx context.Context) error {
	_, err := t.backend.Execute(ctx, &backend.StructuredQuery{
		Patterns: []backend.Pattern{{Subject: backend.C("health-check"), Predicate: backend.V("r"), Object: backend.V("x")}},
		Select:   []backend.Projection{{Var: "r"}},
		Limit:    1,
	}, nil)
	return err
}

// Close releases the backend and the entity index.
func (t *Translator) Close() error {
	return errors.Join(t.backend.Close(), t.index.Close())
}
