// Package telemetry records per-request translation statistics to
// Prometheus and parquet, and sinks error logs to parquet.
package telemetry

import (
	"log/slog"
	"time"
)

// AverageEpsilon keeps phase averages finite when nothing ran.
const AverageEpsilon = 0.001

// PhaseStats describes the backend work done in one pipeline phase.
type PhaseStats struct {
	Queries int64         `json:"queries"`
	Time    time.Duration `json:"time_ns"`
	// AverageMs is Time in milliseconds divided by the phase's units.
	AverageMs float64 `json:"average_ms"`
}

// NewPhaseStats builds phase stats averaging over units.
func NewPhaseStats(queries int64, total time.Duration, units int64) PhaseStats {
	return PhaseStats{
		Queries:   queries,
		Time:      total,
		AverageMs: AverageMillis(total, units),
	}
}

// LogValue implements slog.LogValuer.
func (p PhaseStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("queries", p.Queries),
		slog.Float64("time_ms", millis(p.Time)),
		slog.Float64("avg_ms", p.AverageMs),
	)
}

// AverageMillis returns total in milliseconds divided by units plus
// AverageEpsilon.
func AverageMillis(total time.Duration, units int64) float64 {
	return millis(total) / (float64(units) + AverageEpsilon)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// TranslationStats summarizes one translate-and-execute request.
type TranslationStats struct {
	RequestID string `json:"request_id"`
	Scorer    string `json:"scorer"`
	Linker    string `json:"linker"`
	Question  string `json:"question"`

	Entities   int `json:"entities"`
	Candidates int `json:"candidates"`
	Considered int `json:"considered"`
	Truncated  int `json:"truncated"`
	SoftMisses int `json:"soft_misses"`
	Results    int `json:"results"`
	Rows       int `json:"rows"`
	Values     int `json:"values"`

	// Translation averages over its own queries, Fetch over the
	// non-empty results.
	Translation PhaseStats `json:"translation"`
	Fetch       PhaseStats `json:"fetch"`

	TranslationTime time.Duration `json:"translation_time_ns"`
	RankingTime     time.Duration `json:"ranking_time_ns"`
	TotalTime       time.Duration `json:"total_time_ns"`
}

// LogValue implements slog.LogValuer.
func (s TranslationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("scorer", s.Scorer),
		slog.Int("candidates", s.Candidates),
		slog.Int("results", s.Results),
		slog.Int("soft_misses", s.SoftMisses),
		slog.Any("translation", s.Translation),
		slog.Any("fetch", s.Fetch),
		slog.Float64("total_ms", millis(s.TotalTime)),
	)
}
