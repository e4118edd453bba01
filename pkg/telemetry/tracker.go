package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/aqqu/pkg/types"
)

// StatsRecord is one translation request as stored in parquet.
type StatsRecord struct {
	ID                   string    `parquet:"id"`
	Timestamp            time.Time `parquet:"timestamp"`
	RequestID            string    `parquet:"request_id"`
	SessionID            string    `parquet:"session_id"`
	RequestSource        string    `parquet:"request_source"`
	Question             string    `parquet:"question"`
	Scorer               string    `parquet:"scorer"`
	Linker               string    `parquet:"linker"`
	Entities             int       `parquet:"entities"`
	Candidates           int       `parquet:"candidates"`
	Considered           int       `parquet:"considered"`
	Truncated            int       `parquet:"truncated"`
	SoftMisses           int       `parquet:"soft_misses"`
	Results              int       `parquet:"results"`
	Values               int       `parquet:"values"`
	TranslationQueries   int64     `parquet:"translation_queries"`
	TranslationQueryMs   float64   `parquet:"translation_query_ms"`
	TranslationAverageMs float64   `parquet:"translation_average_ms"`
	FetchQueries         int64     `parquet:"fetch_queries"`
	FetchQueryMs         float64   `parquet:"fetch_query_ms"`
	FetchAverageMs       float64   `parquet:"fetch_average_ms"`
	TotalMs              float64   `parquet:"total_ms"`
	Error                string    `parquet:"error"`
}

// ParquetStatsTracker persists translation stats to parquet files.
type ParquetStatsTracker struct {
	outputDir string
	mu        sync.Mutex
	buffer    []StatsRecord
	batchSize int
}

// NewStatsTracker creates a tracker writing to outputDir. A batchSize
// below one uses 100.
func NewStatsTracker(outputDir string, batchSize int) (*ParquetStatsTracker, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats tracking directory: %w", err)
	}
	if batchSize < 1 {
		batchSize = 100
	}

	return &ParquetStatsTracker{
		outputDir: outputDir,
		buffer:    make([]StatsRecord, 0, batchSize),
		batchSize: batchSize,
	}, nil
}

// RecordTranslation implements Recorder.
func (t *ParquetStatsTracker) RecordTranslation(ctx context.Context, stats TranslationStats, err error) error {
	record := StatsRecord{
		ID:                   uuid.New().String(),
		Timestamp:            time.Now().UTC(),
		RequestID:            stats.RequestID,
		Question:             stats.Question,
		Scorer:               stats.Scorer,
		Linker:               stats.Linker,
		Entities:             stats.Entities,
		Candidates:           stats.Candidates,
		Considered:           stats.Considered,
		Truncated:            stats.Truncated,
		SoftMisses:           stats.SoftMisses,
		Results:              stats.Results,
		Values:               stats.Values,
		TranslationQueries:   stats.Translation.Queries,
		TranslationQueryMs:   millis(stats.Translation.Time),
		TranslationAverageMs: stats.Translation.AverageMs,
		FetchQueries:         stats.Fetch.Queries,
		FetchQueryMs:         millis(stats.Fetch.Time),
		FetchAverageMs:       stats.Fetch.AverageMs,
		TotalMs:              millis(stats.TotalTime),
	}
	if err != nil {
		record.Error = err.Error()
	}
	if record.RequestID == "" {
		record.RequestID, _ = ctx.Value(types.ContextKeyRequestID).(string)
	}
	record.SessionID, _ = ctx.Value(types.ContextKeySessionID).(string)
	record.RequestSource, _ = ctx.Value(types.ContextKeyRequestSource).(string)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.buffer = append(t.buffer, record)
	if len(t.buffer) >= t.batchSize {
		return t.flush()
	}
	return nil
}

// Flush writes any buffered records.
func (t *ParquetStatsTracker) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flush()
}

// Close flushes the remaining records.
func (t *ParquetStatsTracker) Close() error {
	return t.Flush()
}

// flush writes the current buffer to a new parquet file.
// Caller must hold the lock.
func (t *ParquetStatsTracker) flush() error {
	if len(t.buffer) == 0 {
		return nil
	}

	name := fmt.Sprintf("translation_stats_%s_%d.parquet", time.Now().Format("20060102_150405"), time.Now().UnixNano())
	if err := parquet.WriteFile(filepath.Join(t.outputDir, name), t.buffer); err != nil {
		return fmt.Errorf("failed to write translation stats parquet file: %w", err)
	}

	t.buffer = t.buffer[:0]
	return nil
}
