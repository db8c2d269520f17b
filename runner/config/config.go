package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/common/model"
)

const (
	DefaultAPIBaseURL     = "https://api.runpod.ai"
	DefaultInterval       = "h"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxSampleAge   = time.Hour
	DefaultMetricPrefix   = "runpod_serverless"
	DefaultOutputFilename = "runpod_serverless_metrics.prom"
	DefaultConfigFilename = "config.yml"
)

var (
	// ErrConfigNotFound is returned when the configuration file does not exist
	ErrConfigNotFound = errors.New("config file not found")
	// ErrMissingCredential is returned when an endpoint has no api_key configured
	ErrMissingCredential = errors.New("no endpoint metrics api_key configured")
)

// Endpoint is a single RunPod serverless endpoint to collect metrics for
type Endpoint struct {
	Name   string `yaml:"name"`
	ID     string `yaml:"id"`
	APIKey string `yaml:"api_key"`
}

// Config represents the exporter configuration
type Config struct {
	TextfilePath   string     `yaml:"textfile_path"`
	OutputFilename string     `yaml:"output_filename"`
	MetricPrefix   string     `yaml:"metric_prefix"`
	APIBaseURL     string     `yaml:"api_base_url"`
	Interval       string     `yaml:"interval"`
	RequestTimeout string     `yaml:"request_timeout"`
	MaxSampleAge   string     `yaml:"max_sample_age"`
	SelfMetrics    bool       `yaml:"self_metrics"`
	Endpoints      []Endpoint `yaml:"endpoints"`

	requestTimeout time.Duration
	maxSampleAge   time.Duration
}

// OutputPath returns the path of the textfile the exporter writes
func (c *Config) OutputPath() string {
	return filepath.Join(c.TextfilePath, c.OutputFilename)
}

// Timeout returns the parsed HTTP request timeout
func (c *Config) Timeout() time.Duration {
	if c.requestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return c.requestTimeout
}

// SampleWindow returns how old a sample may be before it is considered stale
func (c *Config) SampleWindow() time.Duration {
	if c.maxSampleAge <= 0 {
		return DefaultMaxSampleAge
	}
	return c.maxSampleAge
}

// applyDefaults fills optional fields that were left empty
func applyDefaults(cfg *Config) {
	if cfg.OutputFilename == "" {
		cfg.OutputFilename = DefaultOutputFilename
	}
	if cfg.MetricPrefix == "" {
		cfg.MetricPrefix = DefaultMetricPrefix
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.Interval == "" {
		cfg.Interval = DefaultInterval
	}
}

// validateConfig performs validation on the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.TextfilePath == "" {
		return fmt.Errorf("textfile_path is required")
	}

	if len(cfg.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}

	if !model.IsValidLegacyMetricName(cfg.MetricPrefix) {
		return fmt.Errorf("metric_prefix %q is not a valid metric name", cfg.MetricPrefix)
	}

	if filepath.Base(cfg.OutputFilename) != cfg.OutputFilename {
		return fmt.Errorf("output_filename must not contain a directory: %s", cfg.OutputFilename)
	}

	seen := make(map[string]struct{}, len(cfg.Endpoints))
	for i, endpoint := range cfg.Endpoints {
		if err := ValidateEndpoint(endpoint); err != nil {
			return fmt.Errorf("endpoint at index %d: %w", i, err)
		}
		if _, ok := seen[endpoint.Name]; ok {
			return fmt.Errorf("endpoint name %s is duplicated", endpoint.Name)
		}
		seen[endpoint.Name] = struct{}{}
	}

	if cfg.RequestTimeout != "" {
		d, err := time.ParseDuration(cfg.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout format: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("request_timeout must be greater than 0")
		}
		cfg.requestTimeout = d
	}

	if cfg.MaxSampleAge != "" {
		d, err := time.ParseDuration(cfg.MaxSampleAge)
		if err != nil {
			return fmt.Errorf("invalid max_sample_age format: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("max_sample_age must be greater than 0")
		}
		cfg.maxSampleAge = d
	}

	return nil
}

// ValidateEndpoint checks that an endpoint carries everything needed to query it.
// A missing api_key yields an error wrapping ErrMissingCredential.
func ValidateEndpoint(e Endpoint) error {
	if e.Name == "" {
		return fmt.Errorf("endpoint name is required")
	}
	if e.ID == "" {
		return fmt.Errorf("endpoint %s: id is required", e.Name)
	}
	if e.APIKey == "" {
		return fmt.Errorf("endpoint %s: %w", e.Name, ErrMissingCredential)
	}
	return nil
}
