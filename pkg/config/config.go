package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Backend configuration
	Backend BackendConfig `mapstructure:"backend"`

	// EntityIndex configuration
	EntityIndex EntityIndexConfig `mapstructure:"entity_index"`

	// AnswerType configuration
	AnswerType AnswerTypeConfig `mapstructure:"answer_type"`

	// Ranking configuration
	Ranking RankingConfig `mapstructure:"ranking"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Execution configuration
	Execution ExecutionConfig `mapstructure:"execution"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// BackendConfig holds knowledge-base backend configuration
type BackendConfig struct {
	Driver   string `mapstructure:"driver"` // memory, neo4j, ladybug
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// Fixture seeds the backend from a YAML knowledge-base fixture.
	Fixture string `mapstructure:"fixture"`
}

// EntityIndexConfig holds entity index configuration
type EntityIndexConfig struct {
	Driver string `mapstructure:"driver"` // memory, badger
	Path   string `mapstructure:"path"`   // badger directory, empty for in-memory
	// Fixture seeds the index from a YAML surface-form fixture.
	Fixture string `mapstructure:"fixture"`
}

// AnswerTypeConfig holds answer type identification configuration
type AnswerTypeConfig struct {
	Provider string `mapstructure:"provider"` // rules, llm
	// RulesPath loads rules from YAML instead of the built-in set.
	RulesPath string    `mapstructure:"rules_path"`
	LLM       LLMConfig `mapstructure:"llm"`
}

// LLMConfig holds configuration for an OpenAI-compatible chat model
type LLMConfig struct {
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RankingConfig holds scorer configuration
type RankingConfig struct {
	Scorer string `mapstructure:"scorer"`
	// OraclePath loads a static relation oracle from YAML.
	OraclePath string             `mapstructure:"oracle_path"`
	Weights    map[string]float64 `mapstructure:"weights"`

	MaxNGram              int      `mapstructure:"max_ngram"`
	MinSurfaceScore       float64  `mapstructure:"min_surface_score"`
	MaxEntitiesPerSpan    int      `mapstructure:"max_entities_per_span"`
	MaxRelationsPerEntity int      `mapstructure:"max_relations_per_entity"`
	RestrictAnswerType    bool     `mapstructure:"restrict_answer_type"`
	GLiNERModel           string   `mapstructure:"gliner_model"`
	GLiNERLabels          []string `mapstructure:"gliner_labels"`

	Rerank RerankConfig `mapstructure:"rerank"`
}

// RerankConfig holds the cross-encoder used by RerankScorer
type RerankConfig struct {
	Provider string `mapstructure:"provider"` // local, embedding, embedeverything
	Model    string `mapstructure:"model"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, embedeverything
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// ExecutionConfig holds result fetching configuration
type ExecutionConfig struct {
	Limit          int  `mapstructure:"limit"`
	MaxConcurrency int  `mapstructure:"max_concurrency"`
	IncludeName    bool `mapstructure:"include_name"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
	BatchSize   int    `mapstructure:"batch_size"`
	Metrics     bool   `mapstructure:"metrics"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
	MinRequests      uint32  `mapstructure:"min_requests"`
}

// IntervalDuration returns Interval as a duration.
func (c CircuitBreakerConfig) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// TimeoutDuration returns Timeout as a duration.
func (c CircuitBreakerConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Backend defaults
	viper.SetDefault("backend.driver", "memory")
	viper.SetDefault("backend.database", "")

	// Entity index defaults
	viper.SetDefault("entity_index.driver", "memory")

	// Answer type defaults
	viper.SetDefault("answer_type.provider", "rules")
	viper.SetDefault("answer_type.llm.model", "gpt-4o-mini")
	viper.SetDefault("answer_type.llm.max_tokens", 256)

	// Ranking defaults
	viper.SetDefault("ranking.scorer", "DefaultScorer")
	viper.SetDefault("ranking.max_ngram", 4)
	viper.SetDefault("ranking.min_surface_score", 0.01)
	viper.SetDefault("ranking.max_entities_per_span", 3)
	viper.SetDefault("ranking.max_relations_per_entity", 100)
	viper.SetDefault("ranking.rerank.provider", "local")

	// Embedding defaults
	viper.SetDefault("embedding.provider", "embedeverything")
	viper.SetDefault("embedding.model", "sentence-transformers/all-MiniLM-L6-v2")
	viper.SetDefault("embedding.batch_size", 32)

	// Execution defaults
	viper.SetDefault("execution.limit", 200)
	viper.SetDefault("execution.max_concurrency", 1)
	viper.SetDefault("execution.include_name", true)

	// Telemetry defaults
	viper.SetDefault("telemetry.batch_size", 100)
	viper.SetDefault("telemetry.metrics", true)
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", filepath.Join(home, ".aqqu", "telemetry"))
	}

	// Circuit breaker defaults
	viper.SetDefault("alert.enabled", false)
	viper.SetDefault("alert.smtp_port", 587)

	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
	viper.SetDefault("circuit_breaker.min_requests", 3)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.AnswerType.LLM.APIKey == "" {
			config.AnswerType.LLM.APIKey = apiKey
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}

	// Backend credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Backend.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Backend.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Backend.Password = pass
	}
	if dbPath := os.Getenv("LADYBUG_DB_PATH"); dbPath != "" {
		config.Backend.URI = dbPath
	}

	// Generic backend settings
	if driver := os.Getenv("BACKEND_DRIVER"); driver != "" {
		config.Backend.Driver = driver
	}
	if uri := os.Getenv("BACKEND_URI"); uri != "" {
		config.Backend.URI = uri
	}

	if path := os.Getenv("ENTITY_INDEX_PATH"); path != "" {
		config.EntityIndex.Driver = "badger"
		config.EntityIndex.Path = path
	}

	if scorer := os.Getenv("AQQU_SCORER"); scorer != "" {
		config.Ranking.Scorer = scorer
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
