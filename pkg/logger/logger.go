// Package logger builds the slog loggers used by the translator and its
// commands.
package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Backend work is logged in green so query traffic stands out.
var highlighted = []string{
	"executing",
	"fetch",
	"translation queries",
	"backend",
	"loaded",
}

// Config selects the level, format and destination of a logger.
type Config struct {
	Level   string
	Format  string // text or json
	Output  io.Writer
	NoColor bool
}

// NewDefaultLogger returns a colored text logger on stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// New builds a logger from cfg. JSON output is never colored.
func New(cfg Config) *slog.Logger {
	return slog.New(NewHandler(cfg))
}

// NewHandler returns the handler New would use.
func NewHandler(cfg Config) slog.Handler {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	level := ParseLevel(cfg.Level)

	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}
	if cfg.NoColor {
		return slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}
	return NewColorHandler(out, &slog.HandlerOptions{Level: level})
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ColorHandler formats records like slog.TextHandler and colors whole lines
// by level, or green for backend messages.
type ColorHandler struct {
	inner slog.Handler
	buf   *bytes.Buffer
	mu    *sync.Mutex
	out   io.Writer
}

// NewColorHandler creates a ColorHandler writing to out.
func NewColorHandler(out io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	buf := &bytes.Buffer{}
	return &ColorHandler{
		inner: slog.NewTextHandler(buf, opts),
		buf:   buf,
		mu:    &sync.Mutex{},
		out:   out,
	}
}

// Enabled implements slog.Handler
func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	line := h.buf.String()

	if c := colorFor(r); c != nil {
		line = c.Sprint(strings.TrimSuffix(line, "\n")) + "\n"
	}
	_, err := io.WriteString(h.out, line)
	return err
}

func colorFor(r slog.Record) *color.Color {
	switch {
	case r.Level >= slog.LevelError:
		return color.New(color.FgRed)
	case r.Level >= slog.LevelWarn:
		return color.New(color.FgYellow)
	}
	msg := strings.ToLower(r.Message)
	for _, h := range highlighted {
		if strings.Contains(msg, h) {
			return color.New(color.FgGreen)
		}
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{inner: h.inner.WithAttrs(attrs), buf: h.buf, mu: h.mu, out: h.out}
}

// WithGroup implements slog.Handler
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{inner: h.inner.WithGroup(name), buf: h.buf, mu: h.mu, out: h.out}
}
