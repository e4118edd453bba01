package entityindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/aqqu/pkg/types"
)

const fixtureYAML = `
entities:
  - id: m.paris
    name: Paris
    types: [location.city]
    popularity: 0.9
    aliases:
      - surface: city of light
        score: 0.7
  - id: m.paris_hilton
    name: Paris Hilton
    popularity: 0.4
    aliases:
      - surface: Paris
        score: 0.2
`

func loadFixture(t *testing.T, w Writer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))

	f, err := LoadFixtureFile(path)
	require.NoError(t, err)
	n, err := Load(context.Background(), w, f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testIndex(t *testing.T, idx Index) {
	ctx := context.Background()

	matches, err := idx.Lookup(ctx, "Paris")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "m.paris", matches[0].Entity.ID)
	assert.Equal(t, 1.0, matches[0].Score)
	assert.Equal(t, "m.paris_hilton", matches[1].Entity.ID)
	assert.Equal(t, 0.2, matches[1].Score)

	matches, err = idx.Lookup(ctx, "city of light")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"location.city"}, matches[0].Entity.Types)

	matches, err = idx.Lookup(ctx, "london")
	require.NoError(t, err)
	assert.Empty(t, matches)

	e, ok, err := idx.Entity(ctx, "m.paris_hilton")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Paris Hilton", e.Name)

	_, ok, err = idx.Entity(ctx, "m.unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryIndex(t *testing.T) {
	idx := NewMemoryIndex()
	loadFixture(t, idx)
	testIndex(t, idx)
	assert.Equal(t, 2, idx.Len())
}

func TestMemoryIndexReplacesSurfaceScore(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	e := types.Entity{ID: "m.x", Name: "X"}
	require.NoError(t, idx.Add(ctx, e, map[string]float64{"ex": 0.1}))
	require.NoError(t, idx.Add(ctx, e, map[string]float64{"ex": 0.6}))

	matches, err := idx.Lookup(ctx, "ex")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0.6, matches[0].Score)
}

func TestBadgerIndex(t *testing.T) {
	idx, err := OpenBadgerIndex(t.TempDir(), nil)
	require.NoError(t, err)
	defer idx.Close()

	loadFixture(t, idx)
	testIndex(t, idx)
}

func TestLoadRejectsMissingID(t *testing.T) {
	_, err := Load(context.Background(), NewMemoryIndex(), &Fixture{
		Entities: []FixtureEntry{{Entity: types.Entity{Name: "nameless"}}},
	})
	assert.Error(t, err)
}
