package ranker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/soundprediction/aqqu/pkg/crossencoder"
	"github.com/soundprediction/aqqu/pkg/embedder"
	"github.com/soundprediction/aqqu/pkg/types"
)

// Catalogue ranker names
const (
	DefaultScorer   = "DefaultScorer"
	GLiNERScorer    = "GLiNERScorer"
	EmbeddingScorer = "EmbeddingScorer"
	RerankScorer    = "RerankScorer"
)

// CatalogueOptions supplies the collaborators some rankers need.
type CatalogueOptions struct {
	// Base overrides the default ranker parameters; the linker kind is
	// always set by the catalogue entry.
	Base     *types.RankerParameters
	Oracle   types.RelationOracle
	Weights  Weights
	Embedder embedder.Client
	// CrossEncoder is required by RerankScorer.
	CrossEncoder crossencoder.Client
}

var catalogue = map[string]func(opts CatalogueOptions) (Ranker, error){
	DefaultScorer: func(opts CatalogueOptions) (Ranker, error) {
		return NewSimpleScoreRanker(DefaultScorer, params(opts, types.LinkerSurface), opts.Weights), nil
	},
	GLiNERScorer: func(opts CatalogueOptions) (Ranker, error) {
		return NewSimpleScoreRanker(GLiNERScorer, params(opts, types.LinkerGLiNER), opts.Weights), nil
	},
	EmbeddingScorer: func(opts CatalogueOptions) (Ranker, error) {
		if opts.Embedder == nil {
			return nil, errors.New("embedding scorer requires an embedder")
		}
		return NewEmbeddingRanker(EmbeddingScorer, params(opts, types.LinkerSurface), opts.Weights, opts.Embedder), nil
	},
	RerankScorer: func(opts CatalogueOptions) (Ranker, error) {
		if opts.CrossEncoder == nil {
			return nil, errors.New("rerank scorer requires a cross-encoder")
		}
		return NewRerankRanker(RerankScorer, params(opts, types.LinkerSurface), opts.Weights, opts.CrossEncoder), nil
	},
}

func params(opts CatalogueOptions, kind types.LinkerKind) types.RankerParameters {
	p := types.DefaultRankerParameters()
	if opts.Base != nil {
		p = *opts.Base
	}
	p.EntityLinker = kind
	p.RelationOracle = opts.Oracle
	return p
}

// New builds the named ranker from the catalogue.
func New(name string, opts CatalogueOptions) (Ranker, error) {
	build, ok := catalogue[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRanker, name)
	}
	return build(opts)
}

// Names lists the catalogue in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
