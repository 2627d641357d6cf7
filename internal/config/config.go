package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"alfred/internal/validator"

	"github.com/spf13/viper"
)

// ErrDefaultsUsed is returned alongside a usable config when the file could not be read
var ErrDefaultsUsed = errors.New("config file not loaded, using defaults")

// Config represents the complete coordinator configuration
type Config struct {
	Server     ServerConfig             `mapstructure:"server"`
	Log        LogConfig                `mapstructure:"log"`
	Discovery  DiscoverySettings        `mapstructure:"discovery_settings"`
	Networks   map[string]NetworkConfig `mapstructure:"network_configs" validate:"dive"`
	Health     HealthConfig             `mapstructure:"health"`
	Translator TranslatorConfig         `mapstructure:"translator"`
	Notify     NotifyConfig             `mapstructure:"notify"`
	History    HistoryConfig            `mapstructure:"history"`
}

// ServerConfig represents the coordinator API server configuration
type ServerConfig struct {
	Address           string        `mapstructure:"address" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	// WriteTimeout zero leaves command dispatch bounded only by the agent
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// HealthConfig represents the health monitor configuration
type HealthConfig struct {
	Interval      time.Duration `mapstructure:"interval" validate:"min=0"`
	MinInterval   time.Duration `mapstructure:"min_interval" validate:"min=0"`
	Attempts      int           `mapstructure:"attempts" validate:"min=1"`
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"min=0"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"min=0"`
	Concurrency   int           `mapstructure:"concurrency" validate:"min=1"`
}

// TranslatorConfig represents the natural-language translator configuration
type TranslatorConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"min=1"`
	Temperature float64       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// NotifyConfig represents the notification configuration
type NotifyConfig struct {
	RateLimit NotifyRateLimitConfig `mapstructure:"rate_limit"`
	Webhook   WebhookConfig         `mapstructure:"webhook"`
}

// NotifyRateLimitConfig caps notifications per notifier
type NotifyRateLimitConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	MaxEvents int           `mapstructure:"max_events"`
}

// WebhookConfig represents the webhook notification configuration
type WebhookConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	URL           string            `mapstructure:"url" validate:"omitempty,url"`
	Secret        string            `mapstructure:"secret"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	MaxRetries    int               `mapstructure:"max_retries" validate:"min=1"`
	RetryInterval time.Duration     `mapstructure:"retry_interval"`
	Headers       map[string]string `mapstructure:"headers"`
}

// HistoryConfig represents the command history store configuration
type HistoryConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=memory sqlite"`
	Path        string `mapstructure:"path" validate:"required_if=Driver sqlite"`
	RecentLimit int    `mapstructure:"recent_limit" validate:"min=1"`
}

// LoadConfig loads coordinator configuration from file.
// It always returns a usable config: when the file cannot be read, decoded
// or validated the defaults are returned with ErrDefaultsUsed.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(InDot)
		v.AddConfigPath(InHome)
		v.AddConfigPath(InHomeDot)
		v.AddConfigPath(InEtc)
	}

	if err := v.ReadInConfig(); err != nil {
		return fallback(err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return fallback(fmt.Errorf("failed to unmarshal config: %w", err))
	}
	if err := config.Validate(); err != nil {
		return fallback(fmt.Errorf("invalid configuration: %w", err))
	}
	return &config, nil
}

// fallback returns the defaults, still honouring environment overrides
func fallback(cause error) (*Config, error) {
	var config Config
	if err := newViper().Unmarshal(&config); err != nil || config.Validate() != nil {
		config = *Default()
	}
	return &config, fmt.Errorf("%w: %v", ErrDefaultsUsed, cause)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("translator.api_key", "OPENAI_API_KEY")
	return v
}

// Default returns the configuration used when no file is present
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// Validate validates the configuration
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	if cfg.Translator.Enabled && cfg.Translator.BaseURL == "" {
		return fmt.Errorf("translator.base_url is required when the translator is enabled")
	}
	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL == "" {
		return fmt.Errorf("notify.webhook.url is required when the webhook is enabled")
	}
	return cfg.Log.Validate()
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)

	v.SetDefault("discovery_settings.use_broadcast", true)
	v.SetDefault("discovery_settings.scan_network", false)
	v.SetDefault("discovery_settings.broadcast_port", 5099)
	v.SetDefault("discovery_settings.broadcast_address", "255.255.255.255")
	v.SetDefault("discovery_settings.scan_timeout", 3)
	v.SetDefault("discovery_settings.manual_hosts", []string{})
	v.SetDefault("discovery_settings.interval", 5*time.Minute)
	v.SetDefault("network_configs", map[string]any{})

	v.SetDefault("health.interval", 45*time.Second)
	v.SetDefault("health.min_interval", 10*time.Second)
	v.SetDefault("health.attempts", 3)
	v.SetDefault("health.retry_interval", time.Second)
	v.SetDefault("health.timeout", 5*time.Second)
	v.SetDefault("health.concurrency", 10)

	v.SetDefault("translator.enabled", true)
	v.SetDefault("translator.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("translator.api_key", "")
	v.SetDefault("translator.model", "google/gemma-3n-e2b-it:free")
	v.SetDefault("translator.max_tokens", 200)
	v.SetDefault("translator.temperature", 0.1)
	v.SetDefault("translator.timeout", 30*time.Second)

	v.SetDefault("notify.webhook.enabled", false)
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("notify.webhook.secret", "")
	v.SetDefault("notify.webhook.timeout", 10*time.Second)
	v.SetDefault("notify.webhook.max_retries", 3)
	v.SetDefault("notify.webhook.retry_interval", 2*time.Second)
	v.SetDefault("notify.rate_limit.interval", time.Minute)
	v.SetDefault("notify.rate_limit.max_events", 30)

	v.SetDefault("history.driver", "memory")
	v.SetDefault("history.path", "data/history.db")
	v.SetDefault("history.recent_limit", 10)
}
