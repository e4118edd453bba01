package telemetry

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqqu"

// Recorder receives the stats of finished translation requests.
type Recorder interface {
	RecordTranslation(ctx context.Context, stats TranslationStats, err error) error
}

// Recorders fans a record out to several recorders.
type Recorders []Recorder

// RecordTranslation implements Recorder. Every recorder is called; the
// errors are joined.
func (rs Recorders) RecordTranslation(ctx context.Context, stats TranslationStats, err error) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if rerr := r.RecordTranslation(ctx, stats, err); rerr != nil {
			errs = append(errs, rerr)
		}
	}
	return errors.Join(errs...)
}

// Metrics holds the Prometheus collectors for translation requests.
type Metrics struct {
	translations *prometheus.CounterVec   // by scorer and outcome
	candidates   *prometheus.HistogramVec // generated candidates by scorer
	results      *prometheus.HistogramVec // non-empty results by scorer
	softMisses   prometheus.Counter
	truncated    prometheus.Counter
	queries      *prometheus.CounterVec   // backend queries by phase
	phaseTime    *prometheus.HistogramVec // backend seconds by phase
	duration     *prometheus.HistogramVec // end-to-end seconds by scorer
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	countBuckets := []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000}

	m := &Metrics{
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translator",
			Name:      "translations_total",
			Help:      "Total translation requests by scorer and outcome",
		}, []string{"scorer", "outcome"}),

		candidates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "translator",
			Name:      "candidates",
			Help:      "Query candidates generated per request",
			Buckets:   countBuckets,
		}, []string{"scorer"}),

		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "translator",
			Name:      "results",
			Help:      "Non-empty results returned per request",
			Buckets:   countBuckets,
		}, []string{"scorer"}),

		softMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "soft_misses_total",
			Help:      "Executed candidates that returned no rows",
		}),

		truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "truncated_candidates_total",
			Help:      "Ranked candidates dropped by the execution limit",
		}),

		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "queries_total",
			Help:      "Backend queries by pipeline phase",
		}, []string{"phase"}),

		phaseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "phase_seconds",
			Help:      "Cumulative backend time per request and phase",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "translator",
			Name:      "request_seconds",
			Help:      "End-to-end translation request time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scorer"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.translations, m.candidates, m.results, m.softMisses,
		m.truncated, m.queries, m.phaseTime, m.duration,
	}
}

// RecordTranslation implements Recorder.
func (m *Metrics) RecordTranslation(_ context.Context, stats TranslationStats, err error) error {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case stats.Results == 0:
		outcome = "empty"
	}
	m.translations.WithLabelValues(stats.Scorer, outcome).Inc()
	if err != nil {
		return nil
	}

	m.candidates.WithLabelValues(stats.Scorer).Observe(float64(stats.Candidates))
	m.results.WithLabelValues(stats.Scorer).Observe(float64(stats.Results))
	m.softMisses.Add(float64(stats.SoftMisses))
	m.truncated.Add(float64(stats.Truncated))

	m.queries.WithLabelValues("translation").Add(float64(stats.Translation.Queries))
	m.queries.WithLabelValues("fetch").Add(float64(stats.Fetch.Queries))
	m.phaseTime.WithLabelValues("translation").Observe(stats.Translation.Time.Seconds())
	m.phaseTime.WithLabelValues("fetch").Observe(stats.Fetch.Time.Seconds())
	m.duration.WithLabelValues(stats.Scorer).Observe(stats.TotalTime.Seconds())
	return nil
}
