package linker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/aqqu/pkg/entityindex"
	"github.com/soundprediction/aqqu/pkg/gliner"
	"github.com/soundprediction/aqqu/pkg/parser"
	"github.com/soundprediction/aqqu/pkg/types"
)

func testIndex(t *testing.T) *entityindex.MemoryIndex {
	t.Helper()
	idx := entityindex.NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, types.Entity{ID: "m.france", Name: "France"}, nil))
	require.NoError(t, idx.Add(ctx, types.Entity{ID: "m.new_york", Name: "New York"}, map[string]float64{"ny": 0.8}))
	require.NoError(t, idx.Add(ctx, types.Entity{ID: "m.york", Name: "York"}, nil))
	require.NoError(t, idx.Add(ctx, types.Entity{ID: "m.the_who", Name: "The Who"}, map[string]float64{"who": 0.001}))
	return idx
}

func parse(t *testing.T, text string) []types.Token {
	t.Helper()
	tokens, err := parser.NewTokenizer().Parse(context.Background(), text)
	require.NoError(t, err)
	return tokens
}

func TestSurfaceLinker(t *testing.T) {
	l := NewSurfaceLinker(testIndex(t), types.DefaultRankerParameters())

	found, err := l.IdentifyEntitiesInTokens(context.Background(), parse(t, "who was the mayor of new york?"))
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, "m.new_york", found[0].ID())
	assert.Equal(t, types.Span{Start: 5, End: 7}, found[0].Span)
	assert.True(t, found[0].PerfectMatch)
	assert.Equal(t, "m.york", found[1].ID())
	assert.True(t, found[0].Span.Overlaps(found[1].Span))
}

func TestSurfaceLinkerNoEntities(t *testing.T) {
	l := NewSurfaceLinker(testIndex(t), types.DefaultRankerParameters())

	found, err := l.IdentifyEntitiesInTokens(context.Background(), parse(t, "what is the meaning of life"))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSurfaceLinkerMinScore(t *testing.T) {
	params := types.DefaultRankerParameters()
	params.MinSurfaceScore = 0.9
	l := NewSurfaceLinker(testIndex(t), params)

	found, err := l.IdentifyEntitiesInTokens(context.Background(), parse(t, "where is ny"))
	require.NoError(t, err)
	assert.Empty(t, found)
}

type fakeDetector struct {
	mentions []gliner.Mention
	err      error
}

func (f *fakeDetector) Detect(ctx context.Context, text string, labels []string) ([]gliner.Mention, error) {
	return f.mentions, f.err
}

func TestGLiNERLinker(t *testing.T) {
	detector := &fakeDetector{mentions: []gliner.Mention{
		{Text: "New York", Label: "location", Score: 0.5},
		{Text: "Atlantis", Label: "location", Score: 0.9},
	}}
	l := NewGLiNERLinker(detector, testIndex(t), types.DefaultRankerParameters())

	found, err := l.IdentifyEntitiesInTokens(context.Background(), parse(t, "who was the mayor of new york?"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "m.new_york", found[0].ID())
	assert.InDelta(t, 0.5, found[0].Score, 1e-9)
	assert.Equal(t, types.LinkerGLiNER, l.Kind())
}

func TestGLiNERLinkerRepeatedMentions(t *testing.T) {
	detector := &fakeDetector{mentions: []gliner.Mention{
		{Text: "York?", Label: "location", Score: 0.9},
		{Text: "york", Label: "location", Score: 0.8},
	}}
	l := NewGLiNERLinker(detector, testIndex(t), types.DefaultRankerParameters())

	found, err := l.IdentifyEntitiesInTokens(context.Background(), parse(t, "from york to york?"))
	require.NoError(t, err)
	require.Len(t, found, 2)

	spans := []types.Span{found[0].Span, found[1].Span}
	assert.ElementsMatch(t, []types.Span{{Start: 1, End: 2}, {Start: 3, End: 4}}, spans)
	for _, e := range found {
		assert.Equal(t, "m.york", e.ID())
	}
}

func TestGLiNERLinkerPropagatesErrors(t *testing.T) {
	l := NewGLiNERLinker(&fakeDetector{err: errors.New("model crashed")}, testIndex(t), types.DefaultRankerParameters())

	_, err := l.IdentifyEntitiesInTokens(context.Background(), parse(t, "new york"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(types.LinkerSurface, NewSurfaceLinkerFactory())
	r.Register(types.LinkerGLiNER, NewGLiNERLinkerFactory(func(model string) (MentionDetector, error) {
		assert.Equal(t, DefaultGLiNERModel, model)
		return &fakeDetector{}, nil
	}))
	assert.Equal(t, []types.LinkerKind{types.LinkerGLiNER, types.LinkerSurface}, r.Kinds())

	idx := testIndex(t)
	l, err := r.New(types.LinkerSurface, types.DefaultRankerParameters(), idx)
	require.NoError(t, err)
	assert.Equal(t, types.LinkerSurface, l.Kind())

	l, err = r.New(types.LinkerGLiNER, types.DefaultRankerParameters(), idx)
	require.NoError(t, err)
	assert.Equal(t, types.LinkerGLiNER, l.Kind())

	_, err = r.New("spacy", types.DefaultRankerParameters(), idx)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.New(types.LinkerSurface, types.DefaultRankerParameters(), nil)
	assert.Error(t, err)
}
