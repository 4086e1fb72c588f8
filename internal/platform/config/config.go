package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the bot process.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"` // "development" or "production"
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	TelegramBotToken   string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramAPIBaseURL string `mapstructure:"TELEGRAM_API_BASE_URL"`

	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	NATSUrl     string `mapstructure:"NATS_URL"`
	NATSEnabled bool   `mapstructure:"NATS_ENABLED"`

	HTTPPort int `mapstructure:"HTTP_PORT"`

	// Delivery queue tuning. BatchProcessingDelay bounds throughput below the
	// Telegram rate limit: BatchSize messages per delay interval.
	QueueRateLimitPerSecond   int           `mapstructure:"QUEUE_RATE_LIMIT_PER_SECOND"`
	QueueBatchSize            int           `mapstructure:"QUEUE_BATCH_SIZE"`
	QueueRetryDelay           time.Duration `mapstructure:"QUEUE_RETRY_DELAY"`
	QueueMaxRetries           int           `mapstructure:"QUEUE_MAX_RETRIES"`
	QueueBatchProcessingDelay time.Duration `mapstructure:"QUEUE_BATCH_PROCESSING_DELAY"`

	ReminderDefaultIntervalHours int           `mapstructure:"REMINDER_DEFAULT_INTERVAL_HOURS"`
	NotificationCutoff           time.Duration `mapstructure:"NOTIFICATION_CUTOFF"`

	// The two orchestrator schedules are independent: a frequent listings
	// scan and a separate matching/notification/reminder pipeline.
	ScanTickInterval     time.Duration `mapstructure:"SCAN_TICK_INTERVAL"`
	MatchingTickInterval time.Duration `mapstructure:"MATCHING_TICK_INTERVAL"`

	ListingsAPIBaseURL string `mapstructure:"LISTINGS_API_BASE_URL"`

	AssetsDir       string `mapstructure:"ASSETS_DIR"`
	RenderOutputDir string `mapstructure:"RENDER_OUTPUT_DIR"`
}

// Load reads configs/config.defaults.yaml (if present) and APP_* environment
// variables, env taking precedence. Required keys are validated fail-fast.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config.defaults")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("APP")

	// The secrets have no default and no yaml entry, so they must be bound
	// explicitly for Unmarshal to see their env values.
	v.BindEnv("TELEGRAM_BOT_TOKEN")
	v.BindEnv("POSTGRES_DSN")

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TELEGRAM_API_BASE_URL", "https://api.telegram.org")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_ENABLED", false)
	v.SetDefault("HTTP_PORT", 3501)

	v.SetDefault("QUEUE_RATE_LIMIT_PER_SECOND", 30)
	v.SetDefault("QUEUE_BATCH_SIZE", 5)
	v.SetDefault("QUEUE_RETRY_DELAY", "5s")
	v.SetDefault("QUEUE_MAX_RETRIES", 3)
	v.SetDefault("QUEUE_BATCH_PROCESSING_DELAY", "1s")

	v.SetDefault("REMINDER_DEFAULT_INTERVAL_HOURS", 12)
	v.SetDefault("NOTIFICATION_CUTOFF", "1h")

	v.SetDefault("LISTINGS_API_BASE_URL", "https://earn.superteam.fun")
	v.SetDefault("ASSETS_DIR", "./assets")
	v.SetDefault("RENDER_OUTPUT_DIR", "./tmp/renders")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Missing defaults file is fine; env vars and defaults carry it.
	}

	// Tick defaults depend on the environment: short in development so the
	// pipeline is observable, long in production to be polite to the API.
	env := v.GetString("ENVIRONMENT")
	if env == "production" {
		v.SetDefault("SCAN_TICK_INTERVAL", "30m")
		v.SetDefault("MATCHING_TICK_INTERVAL", "5m")
	} else {
		v.SetDefault("SCAN_TICK_INTERVAL", "2m")
		v.SetDefault("MATCHING_TICK_INTERVAL", "1m")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("APP_TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("APP_POSTGRES_DSN is required")
	}
	if cfg.QueueBatchSize < 1 {
		return nil, fmt.Errorf("QUEUE_BATCH_SIZE must be a positive integer, got %d", cfg.QueueBatchSize)
	}
	if cfg.ReminderDefaultIntervalHours < 1 {
		return nil, fmt.Errorf("REMINDER_DEFAULT_INTERVAL_HOURS must be a positive integer, got %d", cfg.ReminderDefaultIntervalHours)
	}

	return &cfg, nil
}

// IsProduction reports whether the process runs with production cadence.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
