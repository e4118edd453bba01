package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestColorHandlerFormatsLikeText(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	var out bytes.Buffer
	log := slog.New(NewColorHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo})).With("scorer", "DefaultScorer")

	log.Debug("hidden")
	log.Info("Translating query", "query", "who wrote hamlet")
	log.Error("Backend query failed")

	s := out.String()
	assert.NotContains(t, s, "hidden")
	assert.Contains(t, s, `msg="Translating query" scorer=DefaultScorer query="who wrote hamlet"`)
	// red escape on the error line
	assert.Contains(t, s, "\x1b[31m")
}

func TestNewJSON(t *testing.T) {
	var out bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &out})
	log.Debug("Fetched results", "results", 2)

	assert.Contains(t, out.String(), `"msg":"Fetched results"`)
	assert.Contains(t, out.String(), `"results":2`)
	assert.NotContains(t, out.String(), "\x1b[")
}
