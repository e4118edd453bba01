package linker

import (
	"context"
	"errors"
	"strings"

	"github.com/soundprediction/aqqu/pkg/entityindex"
	"github.com/soundprediction/aqqu/pkg/gliner"
	"github.com/soundprediction/aqqu/pkg/parser"
	"github.com/soundprediction/aqqu/pkg/types"
)

// DefaultGLiNERModel is used when the parameters name no model.
const DefaultGLiNERModel = "onnx-community/gliner_small-v2.1"

var defaultGLiNERLabels = []string{"person", "location", "organization", "country", "film", "book", "event"}

// MentionDetector finds labelled mention spans in text.
type MentionDetector interface {
	Detect(ctx context.Context, text string, labels []string) ([]gliner.Mention, error)
}

// DetectorLoader loads a detector for a model id.
type DetectorLoader func(model string) (MentionDetector, error)

// LoadGLiNERDetector loads a GLiNER span model.
func LoadGLiNERDetector(model string) (MentionDetector, error) {
	c, err := gliner.NewClient(model, 0.3)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GLiNERLinker detects mention spans with a span model and resolves each
// span through the entity index.
type GLiNERLinker struct {
	detector   MentionDetector
	index      entityindex.Index
	labels     []string
	minScore   float64
	maxPerSpan int
}

// NewGLiNERLinkerFactory returns the factory for types.LinkerGLiNER.
func NewGLiNERLinkerFactory(load DetectorLoader) Factory {
	return func(params types.RankerParameters, index entityindex.Index) (Linker, error) {
		if index == nil {
			return nil, errors.New("gliner linker requires an entity index")
		}
		model := params.GLiNERModel
		if model == "" {
			model = DefaultGLiNERModel
		}
		detector, err := load(model)
		if err != nil {
			return nil, err
		}
		return NewGLiNERLinker(detector, index, params), nil
	}
}

// NewGLiNERLinker creates a linker using detector.
func NewGLiNERLinker(detector MentionDetector, index entityindex.Index, params types.RankerParameters) *GLiNERLinker {
	labels := params.GLiNERLabels
	if len(labels) == 0 {
		labels = defaultGLiNERLabels
	}
	maxPerSpan := params.MaxEntitiesPerSpan
	if maxPerSpan <= 0 {
		maxPerSpan = types.DefaultRankerParameters().MaxEntitiesPerSpan
	}
	return &GLiNERLinker{
		detector:   detector,
		index:      index,
		labels:     labels,
		minScore:   params.MinSurfaceScore,
		maxPerSpan: maxPerSpan,
	}
}

// Kind implements Linker.
func (l *GLiNERLinker) Kind() types.LinkerKind {
	return types.LinkerGLiNER
}

// IdentifyEntitiesInTokens implements Linker. The mention score is the
// detector probability times the index surface score.
func (l *GLiNERLinker) IdentifyEntitiesInTokens(ctx context.Context, tokens []types.Token) ([]*types.IdentifiedEntity, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	text := types.JoinTokens(tokens)
	mentions, err := l.detector.Detect(ctx, text, l.labels)
	if err != nil {
		return nil, err
	}

	var found []*types.IdentifiedEntity
	claimed := make(map[types.Span]bool)
	for _, mention := range mentions {
		span, ok := locate(tokens, mention.Text, claimed)
		if !ok {
			continue
		}
		claimed[span] = true

		surface := types.NormalizeText(types.JoinTokens(tokens[span.Start:span.End]))
		matches, err := l.index.Lookup(ctx, surface)
		if err != nil {
			return nil, err
		}
		kept := 0
		for _, m := range matches {
			if kept >= l.maxPerSpan {
				break
			}
			score := m.Score * float64(mention.Score)
			if score < l.minScore {
				continue
			}
			found = append(found, identified(m, span, surface, score))
			kept++
		}
	}
	sortIdentified(found)
	return found, nil
}

var mentionTokenizer = parser.NewTokenizer()

// locate finds the first token span matching mention that is not already
// claimed. Punctuation in the mention is ignored.
func locate(tokens []types.Token, mention string, claimed map[types.Span]bool) (types.Span, bool) {
	want := mentionWords(mention)
	if len(want) == 0 {
		return types.Span{}, false
	}
	for start := 0; start+len(want) <= len(tokens); start++ {
		span := types.Span{Start: start, End: start + len(want)}
		if claimed[span] {
			continue
		}
		match := true
		for i, w := range want {
			if strings.ToLower(tokens[start+i].Text) != w {
				match = false
				break
			}
		}
		if match {
			return span, true
		}
	}
	return types.Span{}, false
}

// mentionWords tokenizes a detected mention like the question text.
func mentionWords(mention string) []string {
	tokens, err := mentionTokenizer.Parse(context.Background(), types.NormalizeText(mention))
	if err != nil {
		return nil
	}
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !t.Punct {
			words = append(words, strings.ToLower(t.Text))
		}
	}
	return words
}
