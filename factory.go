package aqqu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soundprediction/aqqu/pkg/alert"
	"github.com/soundprediction/aqqu/pkg/answertype"
	"github.com/soundprediction/aqqu/pkg/backend"
	"github.com/soundprediction/aqqu/pkg/config"
	"github.com/soundprediction/aqqu/pkg/crossencoder"
	"github.com/soundprediction/aqqu/pkg/embedder"
	"github.com/soundprediction/aqqu/pkg/entityindex"
	"github.com/soundprediction/aqqu/pkg/execution"
	"github.com/soundprediction/aqqu/pkg/nlp"
	"github.com/soundprediction/aqqu/pkg/ranker"
	"github.com/soundprediction/aqqu/pkg/types"
)

// NewBackendFromConfig opens the configured backend, seeds it from the
// fixture if one is set and wraps it in a circuit breaker if enabled.
func NewBackendFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend.Backend, error) {
	var (
		b   backend.Backend
		err error
	)
	switch cfg.Backend.Driver {
	case "", "memory":
		b = backend.NewMemoryBackend()
	case "neo4j":
		b, err = backend.NewNeo4jBackend(cfg.Backend.URI, cfg.Backend.Username, cfg.Backend.Password, cfg.Backend.Database)
	case "ladybug":
		b, err = backend.NewLadybugBackend(cfg.Backend.URI, logger)
	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Backend.Fixture != "" {
		if err := seedBackend(ctx, b, cfg.Backend.Fixture); err != nil {
			b.Close()
			return nil, err
		}
		logger.Info("Loaded backend fixture", "path", cfg.Backend.Fixture, "driver", b.Provider())
	}

	if cfg.CircuitBreaker.Enabled {
		b = backend.NewBreakerBackend(b, backend.BreakerSettings{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.IntervalDuration(),
			Timeout:          cfg.CircuitBreaker.TimeoutDuration(),
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
			MinRequests:      cfg.CircuitBreaker.MinRequests,
			Alerter:          alert.NewEmailAlerter(cfg.Alert),
		}, logger)
	}
	return b, nil
}

func seedBackend(ctx context.Context, b backend.Backend, path string) error {
	loader, ok := b.(backend.Loader)
	if !ok {
		return fmt.Errorf("backend %s cannot load fixtures", b.Provider())
	}
	f, err := backend.LoadFixtureFile(path)
	if err != nil {
		return err
	}
	return loader.LoadFixture(ctx, f)
}

// NewIndexFromConfig opens the configured entity index and seeds it from
// the fixture if one is set.
func NewIndexFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (entityindex.Index, error) {
	var idx interface {
		entityindex.Index
		entityindex.Writer
	}
	switch cfg.EntityIndex.Driver {
	case "", "memory":
		idx = entityindex.NewMemoryIndex()
	case "badger":
		b, err := entityindex.OpenBadgerIndex(cfg.EntityIndex.Path, logger)
		if err != nil {
			return nil, err
		}
		idx = b
	default:
		return nil, fmt.Errorf("unknown entity index driver %q", cfg.EntityIndex.Driver)
	}

	if cfg.EntityIndex.Fixture != "" {
		f, err := entityindex.LoadFixtureFile(cfg.EntityIndex.Fixture)
		if err != nil {
			idx.Close()
			return nil, err
		}
		n, err := entityindex.Load(ctx, idx, f)
		if err != nil {
			idx.Close()
			return nil, err
		}
		logger.Info("Loaded entity index fixture", "path", cfg.EntityIndex.Fixture, "entities", n)
	}
	return idx, nil
}

// NewAnswerTypeFromConfig builds the configured answer type identifier.
func NewAnswerTypeFromConfig(cfg *config.Config, logger *slog.Logger) (answertype.Identifier, error) {
	switch cfg.AnswerType.Provider {
	case "", "rules":
		rules := answertype.DefaultRules
		if cfg.AnswerType.RulesPath != "" {
			loaded, err := answertype.LoadRules(cfg.AnswerType.RulesPath)
			if err != nil {
				return nil, err
			}
			rules = loaded
		}
		id, err := answertype.NewRuleIdentifier(rules)
		if err != nil {
			return nil, err
		}
		return id, nil
	case "llm":
		llm := cfg.AnswerType.LLM
		id, err := answertype.NewLLMIdentifier(nlp.Config{
			APIKey:      llm.APIKey,
			Model:       llm.Model,
			BaseURL:     llm.BaseURL,
			Temperature: llm.Temperature,
			MaxTokens:   llm.MaxTokens,
		}, logger)
		if err != nil {
			return nil, err
		}
		return id, nil
	default:
		return nil, fmt.Errorf("unknown answer type provider %q", cfg.AnswerType.Provider)
	}
}

// ScorerCatalogue builds named rankers with the configured parameters,
// weights and oracle. Model-backed collaborators are created on first use
// and shared by every ranker the catalogue builds.
type ScorerCatalogue struct {
	cfg    *config.Config
	oracle types.RelationOracle

	mu       sync.Mutex
	embedder embedder.Client
	encoder  crossencoder.Client
}

// NewScorerCatalogue loads the relation oracle, if configured.
func NewScorerCatalogue(cfg *config.Config) (*ScorerCatalogue, error) {
	c := &ScorerCatalogue{cfg: cfg}
	if cfg.Ranking.OraclePath != "" {
		oracle, err := ranker.LoadStaticOracle(cfg.Ranking.OraclePath)
		if err != nil {
			return nil, err
		}
		c.oracle = oracle
	}
	return c, nil
}

// Names lists the rankers the catalogue can build.
func (c *ScorerCatalogue) Names() []string {
	return ranker.Names()
}

// New builds the named ranker.
func (c *ScorerCatalogue) New(name string) (ranker.Ranker, error) {
	r := c.cfg.Ranking
	base := types.DefaultRankerParameters()
	base.MaxNGram = r.MaxNGram
	base.MinSurfaceScore = r.MinSurfaceScore
	base.MaxEntitiesPerSpan = r.MaxEntitiesPerSpan
	base.MaxRelationsPerEntity = r.MaxRelationsPerEntity
	base.RestrictAnswerType = r.RestrictAnswerType
	base.GLiNERModel = r.GLiNERModel
	base.GLiNERLabels = r.GLiNERLabels

	opts := ranker.CatalogueOptions{Base: &base, Oracle: c.oracle}
	if len(r.Weights) > 0 {
		weights := ranker.DefaultWeights()
		for k, v := range r.Weights {
			weights[k] = v
		}
		opts.Weights = weights
	}
	if name == ranker.EmbeddingScorer {
		client, err := c.embedderClient()
		if err != nil {
			return nil, err
		}
		opts.Embedder = client
	}
	if name == ranker.RerankScorer {
		encoder, err := c.crossEncoder()
		if err != nil {
			return nil, err
		}
		opts.CrossEncoder = encoder
	}
	return ranker.New(name, opts)
}

func (c *ScorerCatalogue) embedderClient() (embedder.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.embedderLocked()
}

func (c *ScorerCatalogue) embedderLocked() (embedder.Client, error) {
	if c.embedder != nil {
		return c.embedder, nil
	}
	e := c.cfg.Embedding
	client, err := embedder.New(embedder.Config{
		Provider:   e.Provider,
		Model:      e.Model,
		APIKey:     e.APIKey,
		BaseURL:    e.BaseURL,
		Dimensions: e.Dimensions,
		BatchSize:  e.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	c.embedder = client
	return client, nil
}

func (c *ScorerCatalogue) crossEncoder() (crossencoder.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.encoder != nil {
		return c.encoder, nil
	}
	cfg := crossencoder.Config{
		Provider: crossencoder.Provider(c.cfg.Ranking.Rerank.Provider),
		Model:    c.cfg.Ranking.Rerank.Model,
	}
	var emb embedder.Client
	if cfg.Provider == crossencoder.ProviderEmbedding {
		var err error
		if emb, err = c.embedderLocked(); err != nil {
			return nil, err
		}
	}
	encoder, err := crossencoder.NewClient(cfg, emb)
	if err != nil {
		return nil, fmt.Errorf("failed to create cross-encoder: %w", err)
	}
	c.encoder = encoder
	return encoder, nil
}

// Close releases the embedder and cross-encoder, if they were created.
func (c *ScorerCatalogue) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.encoder != nil {
		errs = append(errs, c.encoder.Close())
	}
	if c.embedder != nil {
		errs = append(errs, c.embedder.Close())
	}
	return errors.Join(errs...)
}

// NewTranslatorFromConfig assembles a Translator and its collaborators
// from cfg. Closing the translator releases the backend and index.
func NewTranslatorFromConfig(ctx context.Context, cfg *config.Config, catalogue *ScorerCatalogue, logger *slog.Logger, opts ...Option) (*Translator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scorer, err := catalogue.New(cfg.Ranking.Scorer)
	if err != nil {
		return nil, err
	}
	answerType, err := NewAnswerTypeFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	b, err := NewBackendFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	idx, err := NewIndexFromConfig(ctx, cfg, logger)
	if err != nil {
		b.Close()
		return nil, err
	}

	executor := execution.NewExecutor(
		execution.WithMaxConcurrency(cfg.Execution.MaxConcurrency),
		execution.WithIncludeName(cfg.Execution.IncludeName),
		execution.WithLogger(logger),
	)

	t, err := New(Dependencies{
		Backend:    b,
		Index:      idx,
		AnswerType: answerType,
		Scorer:     scorer,
		Executor:   executor,
	}, append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, errors.Join(err, b.Close(), idx.Close())
	}
	return t, nil
}
