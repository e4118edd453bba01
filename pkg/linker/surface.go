package linker

import (
	"context"
	"errors"

	"github.com/soundprediction/aqqu/pkg/entityindex"
	"github.com/soundprediction/aqqu/pkg/types"
)

// SurfaceLinker links token n-grams to entities by surface-form lookup.
type SurfaceLinker struct {
	index      entityindex.Index
	maxNGram   int
	minScore   float64
	maxPerSpan int
}

// NewSurfaceLinkerFactory returns the factory for types.LinkerSurface.
func NewSurfaceLinkerFactory() Factory {
	return func(params types.RankerParameters, index entityindex.Index) (Linker, error) {
		if index == nil {
			return nil, errors.New("surface linker requires an entity index")
		}
		return NewSurfaceLinker(index, params), nil
	}
}

// NewSurfaceLinker creates a surface linker over index.
func NewSurfaceLinker(index entityindex.Index, params types.RankerParameters) *SurfaceLinker {
	defaults := types.DefaultRankerParameters()
	if params.MaxNGram <= 0 {
		params.MaxNGram = defaults.MaxNGram
	}
	if params.MaxEntitiesPerSpan <= 0 {
		params.MaxEntitiesPerSpan = defaults.MaxEntitiesPerSpan
	}
	return &SurfaceLinker{
		index:      index,
		maxNGram:   params.MaxNGram,
		minScore:   params.MinSurfaceScore,
		maxPerSpan: params.MaxEntitiesPerSpan,
	}
}

// Kind implements Linker.
func (l *SurfaceLinker) Kind() types.LinkerKind {
	return types.LinkerSurface
}

// IdentifyEntitiesInTokens implements Linker. Every n-gram up to the
// configured length that neither starts nor ends with a stopword and holds
// no punctuation is looked up in the index.
func (l *SurfaceLinker) IdentifyEntitiesInTokens(ctx context.Context, tokens []types.Token) ([]*types.IdentifiedEntity, error) {
	var found []*types.IdentifiedEntity
	for start := range tokens {
		for end := start + 1; end <= len(tokens) && end-start <= l.maxNGram; end++ {
			window := tokens[start:end]
			if !linkable(window) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			surface := types.NormalizeText(types.JoinTokens(window))
			matches, err := l.index.Lookup(ctx, surface)
			if err != nil {
				return nil, err
			}

			kept := 0
			for _, m := range matches {
				if kept >= l.maxPerSpan {
					break
				}
				if m.Score < l.minScore {
					continue
				}
				found = append(found, identified(m, types.Span{Start: start, End: end}, surface, m.Score))
				kept++
			}
		}
	}
	sortIdentified(found)
	return found, nil
}

func linkable(window []types.Token) bool {
	for _, t := range window {
		if t.Punct {
			return false
		}
	}
	first, last := window[0], window[len(window)-1]
	return first.IsContent() && last.IsContent() && !first.WH
}
