package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Matching   MatchingConfig   `yaml:"matching" mapstructure:"matching"`
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	OutcomeLog OutcomeLogConfig `yaml:"outcome_log" mapstructure:"outcome_log"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the match API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MatchingConfig configures the suitability scorer and orchestrator.
// Weights are fractions that must sum to 1.0.
type MatchingConfig struct {
	DistanceWeight      float64 `yaml:"distance_weight" mapstructure:"distance_weight"`
	CompatibilityWeight float64 `yaml:"compatibility_weight" mapstructure:"compatibility_weight"`
	RecencyWeight       float64 `yaml:"recency_weight" mapstructure:"recency_weight"`
	HistoryWeight       float64 `yaml:"history_weight" mapstructure:"history_weight"`

	// RecencyHorizonDays is the elapsed-time span over which the recency
	// factor ramps from 0 to 1.
	RecencyHorizonDays int `yaml:"recency_horizon_days" mapstructure:"recency_horizon_days"`

	// HistorySaturation is the donation count at which the history factor
	// reaches 1.
	HistorySaturation int `yaml:"history_saturation" mapstructure:"history_saturation"`

	// MaxLoggedSuggestions caps how many pending outcomes are recorded per
	// request.
	MaxLoggedSuggestions int `yaml:"max_logged_suggestions" mapstructure:"max_logged_suggestions"`

	// ScoreConcurrency bounds parallel candidate scoring.
	ScoreConcurrency int `yaml:"score_concurrency" mapstructure:"score_concurrency"`

	// FetchTimeoutSecs bounds the donor repository read.
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
}

// ModelConfig holds the predictive refinement model's initial parameters.
type ModelConfig struct {
	Bias               float64 `yaml:"bias" mapstructure:"bias"`
	DistanceWeight     float64 `yaml:"distance_weight" mapstructure:"distance_weight"`
	HistoryWeight      float64 `yaml:"history_weight" mapstructure:"history_weight"`
	ResponseRateWeight float64 `yaml:"response_rate_weight" mapstructure:"response_rate_weight"`
	LearningRate       float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	FallbackDistanceKm float64 `yaml:"fallback_distance_km" mapstructure:"fallback_distance_km"`
}

// OutcomeLogConfig configures the asynchronous outcome logging queue.
type OutcomeLogConfig struct {
	QueueSize      int `yaml:"queue_size" mapstructure:"queue_size"`
	MaxAttempts    int `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DONORMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("matching.distance_weight", 0.60)
	v.SetDefault("matching.compatibility_weight", 0.20)
	v.SetDefault("matching.recency_weight", 0.10)
	v.SetDefault("matching.history_weight", 0.10)
	v.SetDefault("matching.recency_horizon_days", 180)
	v.SetDefault("matching.history_saturation", 10)
	v.SetDefault("matching.max_logged_suggestions", 50)
	v.SetDefault("matching.score_concurrency", 8)
	v.SetDefault("matching.fetch_timeout_secs", 10)
	v.SetDefault("model.bias", 0.0)
	v.SetDefault("model.distance_weight", -0.01)
	v.SetDefault("model.history_weight", 0.05)
	v.SetDefault("model.response_rate_weight", 0.5)
	v.SetDefault("model.learning_rate", 0.1)
	v.SetDefault("model.fallback_distance_km", 50)
	v.SetDefault("outcome_log.queue_size", 256)
	v.SetDefault("outcome_log.max_attempts", 3)
	v.SetDefault("outcome_log.retry_backoff_ms", 200)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
