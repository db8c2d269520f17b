package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns config.yml located next to the running executable
func DefaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultConfigFilename
	}
	return filepath.Join(filepath.Dir(exe), DefaultConfigFilename)
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// Variables that are already set are not overridden. A missing file is not an error
// when optional is true.
func LoadEnvFile(path string, optional bool, log logrus.FieldLogger) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if optional {
			return nil
		}
		return fmt.Errorf("env file %s not found", path)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	log.WithField("component", "config").WithField("path", path).Debug("Loaded env file")
	return nil
}

// LoadFromFile reads, substitutes, parses and validates a configuration file.
// A missing file yields an error wrapping ErrConfigNotFound.
func LoadFromFile(path string, log logrus.FieldLogger) (*Config, error) {
	log = log.WithField("component", "config")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"path":          path,
		"textfile_path": cfg.TextfilePath,
		"endpoints":     len(cfg.Endpoints),
		"api_base_url":  cfg.APIBaseURL,
	}).Info("Loaded configuration")

	return cfg, nil
}

// Parse substitutes environment variables in raw YAML and builds a validated Config
func Parse(data []byte) (*Config, error) {
	substituted, err := SubstituteEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
