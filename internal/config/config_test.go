package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Listen != ":9080" {
		t.Errorf("expected default listen :9080, got %s", cfg.Listen)
	}
	if cfg.Service != "Downloader" {
		t.Errorf("expected default service Downloader, got %s", cfg.Service)
	}
	if cfg.Store != "" {
		t.Errorf("expected no default store, got %s", cfg.Store)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("expected default http timeout 30s, got %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.BufferSize != 32*1024 {
		t.Errorf("expected default buffer size 32KiB, got %d", cfg.HTTP.BufferSize)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
listen: 127.0.0.1:8000
service: Fetcher
store: s3://my-bucket?region=eu-west-1
http:
  timeout: 1h 30m
  max_idle_conns_per_host: 8
  user_agent: test-agent
  buffer_size: 1MiB
log:
  level: debug
  format: json
metrics:
  enabled: false
`
	// Create temp file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Listen != "127.0.0.1:8000" {
		t.Errorf("expected listen 127.0.0.1:8000, got %s", cfg.Listen)
	}
	if cfg.Service != "Fetcher" {
		t.Errorf("expected service Fetcher, got %s", cfg.Service)
	}
	if cfg.Store != "s3://my-bucket?region=eu-west-1" {
		t.Errorf("unexpected store %s", cfg.Store)
	}
	if cfg.HTTP.Timeout != 90*time.Minute {
		t.Errorf("expected http timeout 90m, got %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxIdleConnsPerHost != 8 {
		t.Errorf("expected 8 idle conns, got %d", cfg.HTTP.MaxIdleConnsPerHost)
	}
	if cfg.HTTP.UserAgent != "test-agent" {
		t.Errorf("expected user agent test-agent, got %s", cfg.HTTP.UserAgent)
	}
	if cfg.HTTP.BufferSize != 1024*1024 {
		t.Errorf("expected buffer size 1MiB, got %d", cfg.HTTP.BufferSize)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
}

func TestLoadFromYAMLKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("store: file:///srv/data\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Service != "Downloader" {
		t.Errorf("expected default service, got %s", cfg.Service)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics to stay enabled")
	}
}

func TestLoadFromEnv(t *testing.T) {
	// Set env vars
	t.Setenv("PORT", "7000")
	t.Setenv("FETCHD_STORE", "gs://bucket")
	t.Setenv("FETCHD_HTTP_TIMEOUT", "2days")
	t.Setenv("FETCHD_HTTP_BUFFER_SIZE", "64KiB")
	t.Setenv("FETCHD_HTTP_MAX_IDLE_CONNS_PER_HOST", "4")
	t.Setenv("FETCHD_LOG_LEVEL", "warn")
	t.Setenv("FETCHD_METRICS_ENABLED", "false")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Listen != ":7000" {
		t.Errorf("expected listen :7000, got %s", cfg.Listen)
	}
	if cfg.Store != "gs://bucket" {
		t.Errorf("expected store gs://bucket, got %s", cfg.Store)
	}
	if cfg.HTTP.Timeout != 48*time.Hour {
		t.Errorf("expected timeout 48h, got %v", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.BufferSize != 64*1024 {
		t.Errorf("expected buffer size 64KiB, got %d", cfg.HTTP.BufferSize)
	}
	if cfg.HTTP.MaxIdleConnsPerHost != 4 {
		t.Errorf("expected 4 idle conns, got %d", cfg.HTTP.MaxIdleConnsPerHost)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Log.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
}

func TestLoadFromEnvListenWinsOverPort(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("FETCHD_LISTEN", "localhost:8111")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Listen != "localhost:8111" {
		t.Errorf("expected FETCHD_LISTEN to win, got %s", cfg.Listen)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	tests := map[string]string{
		"PORT":                                "http",
		"FETCHD_HTTP_TIMEOUT":                 "soon",
		"FETCHD_HTTP_BUFFER_SIZE":             "lots",
		"FETCHD_HTTP_MAX_IDLE_CONNS_PER_HOST": "many",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			cfg := Default()
			if err := cfg.LoadFromEnv(); err == nil {
				t.Errorf("expected error for %s=%s", name, value)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FETCHD_SERVICE=FromDotEnv\nFETCHD_LOG_FORMAT=json\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// Already-set variables are not overridden.
	t.Setenv("FETCHD_LOG_FORMAT", "text")
	t.Setenv("FETCHD_SERVICE", "")
	os.Unsetenv("FETCHD_SERVICE")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Service != "FromDotEnv" {
		t.Errorf("expected service from .env, got %s", cfg.Service)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("expected existing env to win, got %s", cfg.Log.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing listen", mutate: func(c *Config) { c.Listen = "" }, wantErr: true},
		{name: "missing service", mutate: func(c *Config) { c.Service = "" }, wantErr: true},
		{name: "service with slash", mutate: func(c *Config) { c.Service = "a/b" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTP.Timeout = -time.Second }, wantErr: true},
		{name: "invalid idle conns", mutate: func(c *Config) { c.HTTP.MaxIdleConnsPerHost = 0 }, wantErr: true},
		{name: "invalid buffer size", mutate: func(c *Config) { c.HTTP.BufferSize = 0 }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.Store = "gs://bucket"

	override := Config{
		Listen: ":1234",
		HTTP:   HTTPConfig{UserAgent: "cli"},
		// Leave other fields at zero values
	}

	merged := base.Merge(override)

	// Should keep base values for non-overridden fields
	if merged.Store != "gs://bucket" {
		t.Errorf("expected Store preserved, got %s", merged.Store)
	}
	if merged.HTTP.Timeout != 30*time.Second {
		t.Errorf("expected Timeout preserved, got %v", merged.HTTP.Timeout)
	}

	// Should use override values
	if merged.Listen != ":1234" {
		t.Errorf("expected Listen overridden, got %s", merged.Listen)
	}
	if merged.HTTP.UserAgent != "cli" {
		t.Errorf("expected UserAgent overridden, got %s", merged.HTTP.UserAgent)
	}
}

func TestLoadYAMLFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected JSON warn record, got %s", out)
	}
}
