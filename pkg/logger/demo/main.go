package main

import (
	"log/slog"

	"github.com/soundprediction/aqqu/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("============================================")
	log.Info("    Aqqu Colored Logger Demo")
	log.Info("============================================")

	log.Debug("Debug message - standard color")
	log.Info("Translating query", "query", "what is the capital of france")
	log.Info("Translation queries", "count", 14, "avg_ms", 0.21) // green
	log.Info("Ranking query candidates", "count", 9)
	log.Warn("Truncating returned candidates", "limit", 5) // yellow
	log.Info("Fetched results", "results", 3, "avg_ms", 0.8) // green
	log.Error("Backend query failed")                        // red
}
