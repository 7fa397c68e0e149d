package gatekit

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds gatekit runtime configuration.
//
// With LoadConfig("gatekit") each field is read from GATEKIT_<NAME>, for example
// GATEKIT_CACHE_TTL=30m or GATEKIT_REGISTER_GATES=false.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`

	// CacheTTL is the lifetime of remembered grant snapshots and settings.
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"3600s"`

	// CachePermissions routes grant snapshot loads through the cache.
	CachePermissions bool `envconfig:"CACHE_PERMISSIONS" default:"true"`

	// RegisterGates defines one gate per permission slug when the Service starts.
	RegisterGates bool `envconfig:"REGISTER_GATES" default:"true"`

	// EnableDirectives exposes the template helpers through Service.TemplateFuncs.
	EnableDirectives bool `envconfig:"ENABLE_DIRECTIVES" default:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`
	RateLimit int    `envconfig:"RATE_LIMIT" default:"100"`
}

// DefaultConfig returns the configuration used when nothing is set in the environment.
func DefaultConfig() Config {
	return Config{
		CacheTTL:         DefaultCacheTTL,
		CachePermissions: true,
		RegisterGates:    true,
		EnableDirectives: true,
		LogLevel:         "info",
		LogFormat:        "json",
		HTTPAddr:         ":8080",
		RateLimit:        100,
	}
}

// LoadConfig reads configuration from environment variables under prefix.
func LoadConfig(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, NewError(ErrValidation, err.Error())
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &cfg, nil
}

// LogConfig returns the logger settings carried by the configuration.
func (c *Config) LogConfig() LogConfig {
	return LogConfig{Level: c.LogLevel, Format: c.LogFormat}
}
