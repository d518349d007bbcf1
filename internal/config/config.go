package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	envBackendURL = "CHRONOQUERY_BACKEND_URL"
	envPassword   = "CHRONOQUERY_PASSWORD"
)

type Config struct {
	Listen   string        `yaml:"listen"`
	LogLevel string        `yaml:"logLevel"`
	Backend  BackendConfig `yaml:"backend"`
	Breaker  BreakerConfig `yaml:"breaker"`
	Query    QueryConfig   `yaml:"query"`
}

type BackendConfig struct {
	URL            string `yaml:"url"`
	DatasourceID   int64  `yaml:"datasourceId"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	VerifySSL      bool   `yaml:"verifySSL"`
}

type BreakerConfig struct {
	MaxFailures uint32 `yaml:"maxFailures"`
	OpenSeconds int    `yaml:"openSeconds"`
}

type QueryConfig struct {
	MaxDataPoints int64  `yaml:"maxDataPoints"`
	Timezone      string `yaml:"timezone"`
}

// ConfigError is a missing or invalid setting found at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Default returns a config with every optional field set.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path, applies env overrides, fills defaults
// and validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		logrus.Infof("Loading configuration from: %s", path)
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("can't decode config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(envBackendURL); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv(envPassword); v != "" {
		cfg.Backend.Password = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	if cfg.Breaker.MaxFailures == 0 {
		cfg.Breaker.MaxFailures = 5
	}
	if cfg.Breaker.OpenSeconds == 0 {
		cfg.Breaker.OpenSeconds = 30
	}
	if cfg.Query.MaxDataPoints == 0 {
		cfg.Query.MaxDataPoints = 1000
	}
}

// Validate checks the fields that have no usable default.
func (cfg *Config) Validate() error {
	if cfg.Backend.URL == "" {
		return &ConfigError{Field: "backend.url", Reason: "required"}
	}
	if !strings.HasPrefix(cfg.Backend.URL, "http://") && !strings.HasPrefix(cfg.Backend.URL, "https://") {
		return &ConfigError{Field: "backend.url", Reason: "must start with http:// or https://"}
	}
	if cfg.Backend.TimeoutSeconds < 0 {
		return &ConfigError{Field: "backend.timeoutSeconds", Reason: "must not be negative"}
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return &ConfigError{Field: "logLevel", Reason: err.Error()}
	}
	if _, err := cfg.Location(); err != nil {
		return &ConfigError{Field: "query.timezone", Reason: err.Error()}
	}
	return nil
}

// Location resolves query.timezone. Empty means "use the range's own".
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.Query.Timezone == "" {
		return nil, nil
	}
	return time.LoadLocation(cfg.Query.Timezone)
}

func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
}

func (cfg *Config) OpenTimeout() time.Duration {
	return time.Duration(cfg.Breaker.OpenSeconds) * time.Second
}
