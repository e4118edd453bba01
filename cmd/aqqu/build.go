package aqqu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/soundprediction/aqqu"
	"github.com/soundprediction/aqqu/pkg/config"
	"github.com/soundprediction/aqqu/pkg/logger"
	"github.com/soundprediction/aqqu/pkg/telemetry"
	"github.com/spf13/cobra"
)

// runtime bundles a translator with everything that has to be flushed or
// closed when the command exits.
type runtime struct {
	logger     *slog.Logger
	translator *aqqu.Translator
	catalogue  *aqqu.ScorerCatalogue
	registry   *prometheus.Registry

	closers []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// addTranslatorFlags registers the flags shared by every command that
// builds a translator.
func addTranslatorFlags(cmd *cobra.Command) {
	// Backend flags
	cmd.Flags().String("backend-driver", "memory", "Knowledge-base backend (memory, neo4j, ladybug)")
	cmd.Flags().String("backend-uri", "", "Backend URI or ladybug database path")
	cmd.Flags().String("backend-username", "", "Backend username (neo4j only)")
	cmd.Flags().String("backend-password", "", "Backend password (neo4j only)")
	cmd.Flags().String("backend-database", "", "Backend database name (neo4j only)")
	cmd.Flags().String("backend-fixture", "", "YAML fixture used to seed the backend")

	// Entity index flags
	cmd.Flags().String("index-driver", "memory", "Entity index (memory, badger)")
	cmd.Flags().String("index-path", "", "Badger entity index directory")
	cmd.Flags().String("index-fixture", "", "YAML fixture used to seed the entity index")

	// Ranking flags
	cmd.Flags().String("scorer", "DefaultScorer", "Ranking scorer name")
	cmd.Flags().String("oracle-path", "", "YAML relation oracle")
	cmd.Flags().String("answer-type-provider", "rules", "Answer type provider (rules, llm)")

	// Telemetry flags
	cmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry (stats and errors)")
}

func overrideTranslatorFlags(cmd *cobra.Command, cfg *config.Config) {
	str := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}

	str("backend-driver", &cfg.Backend.Driver)
	str("backend-uri", &cfg.Backend.URI)
	str("backend-username", &cfg.Backend.Username)
	str("backend-password", &cfg.Backend.Password)
	str("backend-database", &cfg.Backend.Database)
	str("backend-fixture", &cfg.Backend.Fixture)

	str("index-driver", &cfg.EntityIndex.Driver)
	str("index-path", &cfg.EntityIndex.Path)
	str("index-fixture", &cfg.EntityIndex.Fixture)

	str("scorer", &cfg.Ranking.Scorer)
	str("oracle-path", &cfg.Ranking.OraclePath)
	str("answer-type-provider", &cfg.AnswerType.Provider)

	str("telemetry-parquet-path", &cfg.Telemetry.ParquetPath)
}

func validateTranslatorConfig(cfg *config.Config) error {
	switch cfg.Backend.Driver {
	case "neo4j":
		if cfg.Backend.URI == "" {
			return fmt.Errorf("neo4j backend requires a URI")
		}
	case "ladybug":
		if cfg.Backend.URI == "" {
			return fmt.Errorf("ladybug backend requires a database path")
		}
	}
	if cfg.EntityIndex.Driver == "badger" && cfg.EntityIndex.Path == "" {
		return fmt.Errorf("badger entity index requires a path")
	}
	if cfg.Execution.Limit < 0 {
		return fmt.Errorf("invalid execution limit: %d", cfg.Execution.Limit)
	}
	return nil
}

// telemetryDir resolves the telemetry directory, defaulting to
// ~/.aqqu/telemetry.
func telemetryDir(cfg *config.Config) (string, error) {
	dir := cfg.Telemetry.ParquetPath
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, ".aqqu", "telemetry")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	return dir, nil
}

// newRuntime wires the logger, telemetry, scorer catalogue and translator
// described by cfg. withTelemetry enables the parquet sinks.
func newRuntime(ctx context.Context, cfg *config.Config, withTelemetry bool) (*runtime, error) {
	rt := &runtime{}
	handler := logger.NewHandler(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		NoColor: cfg.Log.NoColor,
	})

	var recorders telemetry.Recorders
	if withTelemetry {
		dir, err := telemetryDir(cfg)
		if err != nil {
			return nil, err
		}

		parquetHandler, err := telemetry.NewParquetHandler(handler, dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize error tracking: %v\n", err)
		} else {
			parquetHandler.SetBatchSize(cfg.Telemetry.BatchSize)
			handler = parquetHandler
			rt.closers = append(rt.closers, parquetHandler.Close)
		}

		tracker, err := telemetry.NewStatsTracker(dir, cfg.Telemetry.BatchSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize stats tracking: %v\n", err)
		} else {
			recorders = append(recorders, tracker)
			rt.closers = append(rt.closers, tracker.Close)
			fmt.Fprintf(os.Stderr, "Stats tracking enabled at: %s\n", dir)
		}
	}
	rt.logger = slog.New(handler)

	if cfg.Telemetry.Metrics {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := telemetry.NewMetrics(rt.registry)
		if err != nil {
			return nil, errors.Join(err, rt.Close())
		}
		recorders = append(recorders, metrics)
	}

	catalogue, err := aqqu.NewScorerCatalogue(cfg)
	if err != nil {
		return nil, errors.Join(err, rt.Close())
	}
	rt.catalogue = catalogue
	rt.closers = append(rt.closers, catalogue.Close)

	var opts []aqqu.Option
	if len(recorders) > 0 {
		opts = append(opts, aqqu.WithRecorder(recorders))
	}
	t, err := aqqu.NewTranslatorFromConfig(ctx, cfg, catalogue, rt.logger, opts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize translator: %w", err), rt.Close())
	}
	rt.translator = t
	rt.closers = append(rt.closers, t.Close)

	rt.logger.Info("Translator initialized",
		"backend", cfg.Backend.Driver,
		"entity_index", cfg.EntityIndex.Driver,
		"scorer", t.Scorer().Name(),
		"linker", t.Linker().Kind())
	return rt, nil
}
