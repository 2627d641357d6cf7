package logger

import "fmt"

// Config represents logging configuration
type Config struct {
	Level      string `mapstructure:"level" validate:"loglevel"` // debug, info, warn, error
	File       string `mapstructure:"file"`                      // empty logs to console only
	MaxSize    int    `mapstructure:"max_size"`                  // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns console-only info logging
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// SetDefaults returns a copy with zero fields filled from DefaultConfig
func (cfg *Config) SetDefaults() *Config {
	out := *cfg
	def := DefaultConfig()
	if out.Level == "" {
		out.Level = def.Level
	}
	if out.MaxSize <= 0 {
		out.MaxSize = def.MaxSize
	}
	if out.MaxBackups < 0 {
		out.MaxBackups = def.MaxBackups
	}
	if out.MaxAge < 0 {
		out.MaxAge = def.MaxAge
	}
	return &out
}

// Validate validates logging configuration
func (cfg *Config) Validate() error {
	if cfg.File != "" && cfg.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	switch cfg.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}
	return nil
}
