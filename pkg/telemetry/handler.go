package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/aqqu/pkg/types"
)

// LogRecord is one error log entry as stored in parquet.
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	RequestID     string    `parquet:"request_id"`
	SessionID     string    `parquet:"session_id"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON object
}

// logSink is the buffer shared by a handler and its derived handlers.
type logSink struct {
	outputDir string
	mu        sync.Mutex
	buffer    []LogRecord
	batchSize int
}

// ParquetHandler is a slog.Handler that forwards to next and also writes
// records at or above a level to parquet files.
type ParquetHandler struct {
	next  slog.Handler
	level slog.Level
	attrs []slog.Attr
	group string
	sink  *logSink
}

// NewParquetHandler creates a handler sinking error records to outputDir.
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	return &ParquetHandler{
		next:  next,
		level: slog.LevelError,
		sink: &logSink{
			outputDir: outputDir,
			batchSize: 100,
			buffer:    make([]LogRecord, 0, 100),
		},
	}, nil
}

// SetBatchSize sets the number of records buffered before a file is written.
func (h *ParquetHandler) SetBatchSize(n int) {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	if n > 0 {
		h.sink.batchSize = n
	}
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < h.level {
		return nil
	}

	record := LogRecord{
		ID:        uuid.New().String(),
		Timestamp: r.Time.UTC(),
		Level:     r.Level.String(),
		Message:   r.Message,
	}
	record.RequestID, _ = ctx.Value(types.ContextKeyRequestID).(string)
	record.SessionID, _ = ctx.Value(types.ContextKeySessionID).(string)
	record.RequestSource, _ = ctx.Value(types.ContextKeyRequestSource).(string)

	attrs := make(map[string]any)
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		v := a.Value.Resolve()
		if err, ok := v.Any().(error); ok {
			attrs[h.key(a.Key)] = err.Error()
		} else {
			attrs[h.key(a.Key)] = v.Any()
		}
		return true
	})
	if data, err := json.Marshal(attrs); err == nil {
		record.Attributes = string(data)
	}

	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		record.SourceFile = frame.File
		record.LineNumber = frame.Line
	}

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()

	h.sink.buffer = append(h.sink.buffer, record)
	if len(h.sink.buffer) >= h.sink.batchSize {
		return h.sink.flush()
	}
	return nil
}

func (h *ParquetHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

// Flush writes any buffered records.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Close flushes the remaining records.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

// flush writes the current buffer to a new parquet file.
// Caller must hold the lock.
func (s *logSink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	name := fmt.Sprintf("translation_errors_%s_%d.parquet", time.Now().Format("20060102_150405"), time.Now().UnixNano())
	if err := parquet.WriteFile(filepath.Join(s.outputDir, name), s.buffer); err != nil {
		// the handler is the logger, so report on stderr
		fmt.Fprintf(os.Stderr, "Failed to write telemetry parquet file: %v\n", err)
		return err
	}

	s.buffer = s.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := *h
	child.next = h.next.WithAttrs(attrs)
	child.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		child.attrs = append(child.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &child
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	child := *h
	child.next = h.next.WithGroup(name)
	child.group = h.key(name)
	return &child
}
