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
	Extractor  ExtractorConfig  `yaml:"extractor" mapstructure:"extractor"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Sampler    SamplerConfig    `yaml:"sampler" mapstructure:"sampler"`
	Accuracy   AccuracyConfig   `yaml:"accuracy" mapstructure:"accuracy"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// DatabaseURL is the Postgres connection string, or the database file
	// path for SQLite.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExtractorConfig configures the external extraction service client.
type ExtractorConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	CallTimeoutSecs   int     `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// QueueConfig configures the worker pool and lease policy.
type QueueConfig struct {
	Workers          int `yaml:"workers" mapstructure:"workers"`
	LeaseTTLSecs     int `yaml:"lease_ttl_secs" mapstructure:"lease_ttl_secs"`
	PollIntervalSecs int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	ReapIntervalSecs int `yaml:"reap_interval_secs" mapstructure:"reap_interval_secs"`
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// SamplerConfig configures shadow-review sampling rates per confidence band.
type SamplerConfig struct {
	LowConfidenceRate  float64 `yaml:"low_confidence_rate" mapstructure:"low_confidence_rate"`
	MidConfidenceRate  float64 `yaml:"mid_confidence_rate" mapstructure:"mid_confidence_rate"`
	HighConfidenceRate float64 `yaml:"high_confidence_rate" mapstructure:"high_confidence_rate"`
}

// AccuracyConfig configures the rolling-accuracy aggregator.
type AccuracyConfig struct {
	Alpha          float64 `yaml:"alpha" mapstructure:"alpha"`
	WarnWindow     int     `yaml:"warn_window" mapstructure:"warn_window"`
	RecoveryWindow int     `yaml:"recovery_window" mapstructure:"recovery_window"`
}

// MonitoringConfig configures background health checks and webhook alerts.
type MonitoringConfig struct {
	WebhookURL          string `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs   int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	PendingDepthWarn    int    `yaml:"pending_depth_warn" mapstructure:"pending_depth_warn"`
	FailedTaskThreshold int    `yaml:"failed_task_threshold" mapstructure:"failed_task_threshold"`
	HighConflictWarn    int    `yaml:"high_conflict_warn" mapstructure:"high_conflict_warn"`
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
	v.SetEnvPrefix("DOCQC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "docqc.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	// Empty defaults register env-only keys with viper so AutomaticEnv
	// values survive Unmarshal.
	v.SetDefault("extractor.base_url", "")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("extractor.call_timeout_secs", 90)
	v.SetDefault("extractor.requests_per_second", 5.0)
	v.SetDefault("extractor.max_retries", 3)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.lease_ttl_secs", 300)
	v.SetDefault("queue.poll_interval_secs", 2)
	v.SetDefault("queue.reap_interval_secs", 30)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("sampler.low_confidence_rate", 1.0)
	v.SetDefault("sampler.mid_confidence_rate", 0.10)
	v.SetDefault("sampler.high_confidence_rate", 0.03)
	v.SetDefault("accuracy.alpha", 0.2)
	v.SetDefault("accuracy.warn_window", 3)
	v.SetDefault("accuracy.recovery_window", 6)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.pending_depth_warn", 500)
	v.SetDefault("monitoring.failed_task_threshold", 1)
	v.SetDefault("monitoring.high_conflict_warn", 10)

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
