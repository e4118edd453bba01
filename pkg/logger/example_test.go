package logger_test

import (
	"log/slog"

	"github.com/soundprediction/aqqu/pkg/logger"
)

func ExampleNewDefaultLogger() {
	// Create a logger with default settings
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("Tokenized question", "tokens", 7)
	log.Info("Translating query", "query", "what is the capital of france")
	log.Info("Fetched results", "results", 3) // Will be green in terminal
	log.Warn("Truncating returned candidates") // Will be yellow in terminal
	log.Error("Backend query failed")          // Will be red in terminal
}

func ExampleNew() {
	log := logger.New(logger.Config{Level: "info", Format: "json"})

	log.Info("Translation queries", "count", 12, "avg_ms", 0.4)
}
