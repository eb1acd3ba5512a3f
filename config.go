package urlnav

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds tunable settings for a Navigator.
type Config struct {
	// HashPrefix is inserted between "#" and the URL in RouteHref links.
	HashPrefix string `env:"URLNAV_HASH_PREFIX" envDefault:""`

	// ArmedWarnAfter is how long a forced-reload listener may stay armed
	// before decision attempts log a warning. Zero disables the warning.
	ArmedWarnAfter time.Duration `env:"URLNAV_ARMED_WARN_AFTER" envDefault:"30s"`

	// TemplateCache enables the parsed-template cache.
	TemplateCache bool `env:"URLNAV_TEMPLATE_CACHE" envDefault:"true"`

	// LogLevel is consumed by composition roots when building their logger.
	// The Navigator itself logs through whatever logger it is given.
	LogLevel string `env:"URLNAV_LOG_LEVEL" envDefault:"info"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		ArmedWarnAfter: 30 * time.Second,
		TemplateCache:  true,
		LogLevel:       "info",
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if strings.ContainsAny(c.HashPrefix, "#?/") {
		return fmt.Errorf("URLNAV_HASH_PREFIX must not contain '#', '?' or '/'")
	}

	if c.ArmedWarnAfter < 0 {
		return fmt.Errorf("URLNAV_ARMED_WARN_AFTER must be non-negative")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("URLNAV_LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// String returns a string representation of the config.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{HashPrefix=%q, ArmedWarnAfter=%s, TemplateCache=%v, LogLevel=%s}",
		c.HashPrefix,
		c.ArmedWarnAfter,
		c.TemplateCache,
		c.LogLevel,
	)
}
