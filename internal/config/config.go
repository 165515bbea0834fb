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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Media     MediaConfig     `yaml:"media" mapstructure:"media"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`             // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // postgres conn string
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Namespace   string `yaml:"namespace" mapstructure:"namespace"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	AnalysisModel  string `yaml:"analysis_model" mapstructure:"analysis_model"`
	SynthesisModel string `yaml:"synthesis_model" mapstructure:"synthesis_model"`
	MaxTokens      int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig configures orchestrator behavior.
type PipelineConfig struct {
	StageCooldownMillis int `yaml:"stage_cooldown_ms" mapstructure:"stage_cooldown_ms"`
	TrustScoreThreshold int `yaml:"trust_score_threshold" mapstructure:"trust_score_threshold"`
	FetchTimeoutSecs    int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
}

// MediaConfig configures video frame extraction.
type MediaConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" mapstructure:"ffprobe_path"`
	FrameCount  int    `yaml:"frame_count" mapstructure:"frame_count"`
}

// BatchConfig configures multi-submission runs.
type BatchConfig struct {
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("VERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "verify.db")
	v.SetDefault("store.namespace", "default")
	v.SetDefault("anthropic.analysis_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.synthesis_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("pipeline.stage_cooldown_ms", 1500)
	v.SetDefault("pipeline.trust_score_threshold", 40)
	v.SetDefault("pipeline.fetch_timeout_secs", 30)
	v.SetDefault("media.frame_count", 5)
	v.SetDefault("batch.max_concurrent_runs", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
