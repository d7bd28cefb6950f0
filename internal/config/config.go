package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint = "https://api.vrchat.cloud/api/1/config"
	DefaultPattern  = "vpm-bootstrap-*.unitypackage"
	envPrefix       = "VPM_BOOTSTRAP"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Staging  StagingConfig  `mapstructure:"staging" yaml:"staging"`
	Prompt   PromptConfig   `mapstructure:"prompt" yaml:"prompt"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// APIConfig describes the remote configuration endpoint
type APIConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout   string `mapstructure:"timeout" yaml:"timeout"`
}

// DownloadConfig holds artifact download limits
type DownloadConfig struct {
	Timeout   string `mapstructure:"timeout" yaml:"timeout"`
	RateLimit int64  `mapstructure:"rate_limit" yaml:"rate_limit"` // bytes per second, 0 disables
	MaxBytes  int64  `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// StagingConfig controls where the downloaded package is staged
type StagingConfig struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
	CopyTo  string `mapstructure:"copy_to" yaml:"copy_to"`
}

// PromptConfig controls the final "press enter" pause
type PromptConfig struct {
	Wait bool `mapstructure:"wait" yaml:"wait"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoadConfig loads configuration from file, environment and defaults.
// An empty path searches the default locations; a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.vpm-bootstrap")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("api.endpoint", d.API.Endpoint)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.timeout", d.API.Timeout)

	v.SetDefault("download.timeout", d.Download.Timeout)
	v.SetDefault("download.rate_limit", d.Download.RateLimit)
	v.SetDefault("download.max_bytes", d.Download.MaxBytes)

	v.SetDefault("staging.dir", d.Staging.Dir)
	v.SetDefault("staging.pattern", d.Staging.Pattern)
	v.SetDefault("staging.copy_to", d.Staging.CopyTo)

	v.SetDefault("prompt.wait", d.Prompt.Wait)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size", d.Logging.MaxSize)
	v.SetDefault("logging.max_age", d.Logging.MaxAge)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:  DefaultEndpoint,
			UserAgent: "vpm-bootstrap/dev",
			Timeout:   "30s",
		},
		Download: DownloadConfig{
			Timeout:  "5m",
			MaxBytes: 512 << 20,
		},
		Staging: StagingConfig{
			Pattern: DefaultPattern,
		},
		Prompt: PromptConfig{
			Wait: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
		},
	}
}

// Validate checks values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.Endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("api.endpoint %q is not an absolute URL", c.API.Endpoint)
	}
	if _, err := c.APITimeout(); err != nil {
		return err
	}
	if _, err := c.DownloadTimeout(); err != nil {
		return err
	}
	if c.Download.RateLimit < 0 {
		return fmt.Errorf("download.rate_limit must not be negative")
	}
	if c.Download.MaxBytes <= 0 {
		return fmt.Errorf("download.max_bytes must be positive")
	}
	if !strings.Contains(c.Staging.Pattern, "*") {
		return fmt.Errorf("staging.pattern %q must contain a '*' placeholder", c.Staging.Pattern)
	}
	return nil
}

// APITimeout is the parsed api.timeout.
func (c *Config) APITimeout() (time.Duration, error) {
	return parseDuration("api.timeout", c.API.Timeout)
}

// DownloadTimeout is the parsed download.timeout.
func (c *Config) DownloadTimeout() (time.Duration, error) {
	return parseDuration("download.timeout", c.Download.Timeout)
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

// LoggerConfig maps the logging section onto the logger package.
func (c *Config) LoggerConfig(module string) logger.Config {
	return logger.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Module:     module,
		File:       c.Logging.File,
		MaxSize:    c.Logging.MaxSize,
		MaxAge:     c.Logging.MaxAge,
		MaxBackups: c.Logging.MaxBackups,
		Compress:   c.Logging.Compress,
	}
}
