// Package config loads notebook configuration from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Environment variables that override file values.
const (
	EnvWorkerURL   = "NOTEBOOK_WORKER_URL"
	EnvWorkerToken = "NOTEBOOK_WORKER_TOKEN"
	EnvHistory     = "NOTEBOOK_HISTORY"
	EnvLogLevel    = "NOTEBOOK_LOG_LEVEL"
	EnvS3Endpoint  = "NOTEBOOK_S3_ENDPOINT"
	EnvS3Bucket    = "NOTEBOOK_S3_BUCKET"
	EnvS3AccessKey = "NOTEBOOK_S3_ACCESS_KEY"
	EnvS3SecretKey = "NOTEBOOK_S3_SECRET_KEY"
	EnvS3UseSSL    = "NOTEBOOK_S3_USE_SSL"
)

// Config holds all notebook configuration.
type Config struct {
	Worker   WorkerConfig   `yaml:"worker"`
	Executor ExecutorConfig `yaml:"executor"`
	Notebook NotebookConfig `yaml:"notebook"`
	History  HistoryConfig  `yaml:"history"`
	Sources  SourcesConfig  `yaml:"sources"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WorkerConfig configures the connection to the interpreter worker.
type WorkerConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	Timeout        string `yaml:"timeout"`
	CaptureTimeout string `yaml:"capture_timeout"`
}

// ExecutorConfig configures output handling.
type ExecutorConfig struct {
	Width       int      `yaml:"width"`
	PlotClasses []string `yaml:"plot_classes"`
	ErrorMarker *string  `yaml:"error_marker"`
}

// NotebookConfig configures the notebook session.
type NotebookConfig struct {
	DataDir         string   `yaml:"data_dir"`
	RunMode         string   `yaml:"run_mode"` // queue, reject
	DefaultPackages []string `yaml:"default_packages"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SourcesConfig configures the datasources files can be fetched from.
type SourcesConfig struct {
	Local []LocalSource `yaml:"local"`
	Web   []WebSource   `yaml:"web"`
	S3    []S3Source    `yaml:"s3"`
}

// LocalSource is a directory source.
type LocalSource struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

// WebSource is an HTTP source.
type WebSource struct {
	Name      string   `yaml:"name"`
	BaseURL   string   `yaml:"base_url"`
	Files     []string `yaml:"files"`
	CacheSize int      `yaml:"cache_size"`
	CacheTTL  string   `yaml:"cache_ttl"`
	MaxBytes  int64    `yaml:"max_bytes"`
}

// S3Source is a bucket source.
type S3Source struct {
	Name      string `yaml:"name"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console, json
}

// Run modes.
const (
	RunModeQueue  = "queue"
	RunModeReject = "reject"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Worker: WorkerConfig{
			URL:            "ws://localhost:8765/worker",
			Timeout:        "30s",
			CaptureTimeout: "5m",
		},
		Executor: ExecutorConfig{
			Width: 80,
		},
		Notebook: NotebookConfig{
			DataDir:         "/home/web_user",
			RunMode:         RunModeQueue,
			DefaultPackages: []string{"ggplot2", "dplyr", "ggrepel"},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "data/history.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Variables from a .env file next to the working directory are
// loaded before environment overrides are applied.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvWorkerURL); v != "" {
		c.Worker.URL = v
	}
	if v := os.Getenv(EnvWorkerToken); v != "" {
		c.Worker.Token = v
	}
	if v := os.Getenv(EnvHistory); v != "" {
		if v == "off" {
			c.History.Enabled = false
		} else {
			c.History.Enabled = true
			c.History.Path = v
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}

	endpoint := strings.TrimSpace(os.Getenv(EnvS3Endpoint))
	if endpoint == "" {
		return
	}
	src := S3Source{
		Name:      "s3",
		Endpoint:  endpoint,
		Bucket:    strings.TrimSpace(os.Getenv(EnvS3Bucket)),
		AccessKey: strings.TrimSpace(os.Getenv(EnvS3AccessKey)),
		SecretKey: strings.TrimSpace(os.Getenv(EnvS3SecretKey)),
		UseSSL:    true,
	}
	if raw := strings.TrimSpace(os.Getenv(EnvS3UseSSL)); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			src.UseSSL = v
		}
	}
	for i := range c.Sources.S3 {
		if c.Sources.S3[i].Name == src.Name {
			c.Sources.S3[i] = src
			return
		}
	}
	c.Sources.S3 = append(c.Sources.S3, src)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Executor.Width < 0 {
		return fmt.Errorf("%w: executor.width must not be negative", ErrInvalidConfig)
	}
	switch c.Notebook.RunMode {
	case "", RunModeQueue, RunModeReject:
	default:
		return fmt.Errorf("%w: notebook.run_mode %q (valid: %s, %s)", ErrInvalidConfig, c.Notebook.RunMode, RunModeQueue, RunModeReject)
	}
	for _, d := range []struct{ name, value string }{
		{"worker.timeout", c.Worker.Timeout},
		{"worker.capture_timeout", c.Worker.CaptureTimeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, d.name, err)
		}
	}

	names := make(map[string]bool)
	check := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%w: %s source without name", ErrInvalidConfig, kind)
		}
		if names[name] {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalidConfig, name)
		}
		names[name] = true
		return nil
	}
	for _, s := range c.Sources.Local {
		if err := check("local", s.Name); err != nil {
			return err
		}
		if s.Dir == "" {
			return fmt.Errorf("%w: local source %q without dir", ErrInvalidConfig, s.Name)
		}
	}
	for _, s := range c.Sources.Web {
		if err := check("web", s.Name); err != nil {
			return err
		}
		if s.CacheTTL != "" {
			if _, err := time.ParseDuration(s.CacheTTL); err != nil {
				return fmt.Errorf("%w: web source %q cache_ttl: %v", ErrInvalidConfig, s.Name, err)
			}
		}
	}
	for _, s := range c.Sources.S3 {
		if err := check("s3", s.Name); err != nil {
			return err
		}
		if s.Bucket == "" {
			return fmt.Errorf("%w: s3 source %q without bucket", ErrInvalidConfig, s.Name)
		}
	}
	return nil
}

// GetTimeout returns the worker call timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	return parseDuration(c.Worker.Timeout, 30*time.Second)
}

// GetCaptureTimeout returns the worker capture timeout as a duration.
func (c *Config) GetCaptureTimeout() time.Duration {
	return parseDuration(c.Worker.CaptureTimeout, 5*time.Minute)
}

// GetCacheTTL returns the cache TTL of a web source as a duration.
func (s WebSource) GetCacheTTL() time.Duration {
	return parseDuration(s.CacheTTL, 0)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
