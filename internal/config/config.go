package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/fetchd/internal/progress"
	"github.com/ligustah/fetchd/pkg/fetch"
)

// DefaultPort is used when neither a listen address nor PORT is set.
const DefaultPort = 9080

// Config defines configuration for the fetchd service and CLI.
type Config struct {
	// Listen is the address the service endpoint binds to.
	Listen string `yaml:"listen"`
	// Service is the first path segment of the download endpoint.
	Service string `yaml:"service"`
	// Store is the bucket URL downloads write into. When empty, every
	// request names its own destination URI.
	Store   string        `yaml:"store"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HTTPConfig configures the outbound HTTP client and body copying.
type HTTPConfig struct {
	Timeout             time.Duration `yaml:"timeout"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	UserAgent           string        `yaml:"user_agent"`
	BufferSize          int64         `yaml:"buffer_size"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Listen:  fmt.Sprintf(":%d", DefaultPort),
		Service: "Downloader",
		HTTP: HTTPConfig{
			Timeout:             30 * time.Second,
			MaxIdleConnsPerHost: 100,
			UserAgent:           "fetchd/1.0",
			BufferSize:          fetch.DefaultBufferSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	Listen  string         `yaml:"listen"`
	Service string         `yaml:"service"`
	Store   string         `yaml:"store"`
	HTTP    yamlHTTPConfig `yaml:"http"`
	Log     LogConfig      `yaml:"log"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

type yamlHTTPConfig struct {
	Timeout             string `yaml:"timeout"`
	MaxIdleConnsPerHost int    `yaml:"max_idle_conns_per_host"`
	UserAgent           string `yaml:"user_agent"`
	BufferSize          string `yaml:"buffer_size"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Listen != "" {
		cfg.Listen = yc.Listen
	}
	if yc.Service != "" {
		cfg.Service = yc.Service
	}
	if yc.Store != "" {
		cfg.Store = yc.Store
	}
	if yc.HTTP.Timeout != "" {
		d, err := fetch.ParseDuration(yc.HTTP.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse http.timeout: %w", err)
		}
		cfg.HTTP.Timeout = d
	}
	if yc.HTTP.MaxIdleConnsPerHost != 0 {
		cfg.HTTP.MaxIdleConnsPerHost = yc.HTTP.MaxIdleConnsPerHost
	}
	if yc.HTTP.UserAgent != "" {
		cfg.HTTP.UserAgent = yc.HTTP.UserAgent
	}
	if yc.HTTP.BufferSize != "" {
		size, err := progress.ParseBytes(yc.HTTP.BufferSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse http.buffer_size: %w", err)
		}
		cfg.HTTP.BufferSize = size
	}
	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}
	if yc.Log.Format != "" {
		cfg.Log.Format = yc.Log.Format
	}
	if yc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *yc.Metrics.Enabled
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the FETCHD_ prefix. PORT is honored when
// FETCHD_LISTEN is not set.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		c.Listen = fmt.Sprintf(":%d", port)
	}
	if v := os.Getenv("FETCHD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("FETCHD_SERVICE"); v != "" {
		c.Service = v
	}
	if v := os.Getenv("FETCHD_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("FETCHD_HTTP_TIMEOUT"); v != "" {
		d, err := fetch.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FETCHD_HTTP_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}
	if v := os.Getenv("FETCHD_HTTP_MAX_IDLE_CONNS_PER_HOST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FETCHD_HTTP_MAX_IDLE_CONNS_PER_HOST: %w", err)
		}
		c.HTTP.MaxIdleConnsPerHost = n
	}
	if v := os.Getenv("FETCHD_HTTP_USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}
	if v := os.Getenv("FETCHD_HTTP_BUFFER_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse FETCHD_HTTP_BUFFER_SIZE: %w", err)
		}
		c.HTTP.BufferSize = size
	}
	if v := os.Getenv("FETCHD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FETCHD_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("FETCHD_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen is required")
	}
	if c.Service == "" || strings.Contains(c.Service, "/") {
		return errors.New("config: service must be a non-empty path segment")
	}
	if c.HTTP.Timeout < 0 {
		return errors.New("config: http.timeout must not be negative")
	}
	if c.HTTP.MaxIdleConnsPerHost <= 0 {
		return errors.New("config: http.max_idle_conns_per_host must be positive")
	}
	if c.HTTP.BufferSize <= 0 {
		return errors.New("config: http.buffer_size must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Listen != "" {
		c.Listen = override.Listen
	}
	if override.Service != "" {
		c.Service = override.Service
	}
	if override.Store != "" {
		c.Store = override.Store
	}
	if override.HTTP.Timeout != 0 {
		c.HTTP.Timeout = override.HTTP.Timeout
	}
	if override.HTTP.MaxIdleConnsPerHost != 0 {
		c.HTTP.MaxIdleConnsPerHost = override.HTTP.MaxIdleConnsPerHost
	}
	if override.HTTP.UserAgent != "" {
		c.HTTP.UserAgent = override.HTTP.UserAgent
	}
	if override.HTTP.BufferSize != 0 {
		c.HTTP.BufferSize = override.HTTP.BufferSize
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	if override.Metrics.Enabled {
		c.Metrics.Enabled = override.Metrics.Enabled
	}
	return c
}
