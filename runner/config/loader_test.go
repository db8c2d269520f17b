package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	log, _ := test.NewNullLogger()

	t.Run("minimal config gets defaults", func(t *testing.T) {
		path := writeConfig(t, `
textfile_path: /var/lib/node_exporter/textfile_collector
endpoints:
  - name: sdxl
    id: abc123
    api_key: rp_key_1
  - name: whisper
    id: def456
    api_key: rp_key_2
`)

		cfg, err := LoadFromFile(path, log)
		require.NoError(t, err)

		assert.Equal(t, "/var/lib/node_exporter/textfile_collector", cfg.TextfilePath)
		require.Len(t, cfg.Endpoints, 2)
		assert.Equal(t, Endpoint{Name: "sdxl", ID: "abc123", APIKey: "rp_key_1"}, cfg.Endpoints[0])
		assert.Equal(t, "whisper", cfg.Endpoints[1].Name)

		assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
		assert.Equal(t, DefaultInterval, cfg.Interval)
		assert.Equal(t, DefaultMetricPrefix, cfg.MetricPrefix)
		assert.Equal(t, DefaultRequestTimeout, cfg.Timeout())
		assert.Equal(t, time.Hour, cfg.SampleWindow())
		assert.False(t, cfg.SelfMetrics)
		assert.Equal(t,
			filepath.Join("/var/lib/node_exporter/textfile_collector", "runpod_serverless_metrics.prom"),
			cfg.OutputPath())
	})

	t.Run("overrides", func(t *testing.T) {
		path := writeConfig(t, `
textfile_path: /tmp/textfile
output_filename: runpod.prom
api_base_url: http://127.0.0.1:9999
interval: d
request_timeout: 3s
max_sample_age: 30m
self_metrics: true
endpoints:
  - name: sdxl
    id: abc123
    api_key: rp_key_1
`)

		cfg, err := LoadFromFile(path, log)
		require.NoError(t, err)

		assert.Equal(t, "http://127.0.0.1:9999", cfg.APIBaseURL)
		assert.Equal(t, "d", cfg.Interval)
		assert.Equal(t, 3*time.Second, cfg.Timeout())
		assert.Equal(t, 30*time.Minute, cfg.SampleWindow())
		assert.True(t, cfg.SelfMetrics)
		assert.Equal(t, filepath.Join("/tmp/textfile", "runpod.prom"), cfg.OutputPath())
	})

	t.Run("env substitution", func(t *testing.T) {
		t.Setenv("RUNPOD_TEST_API_KEY", "rp_from_env")
		path := writeConfig(t, `
textfile_path: ${RUNPOD_TEST_TEXTFILE:-/tmp/default}
endpoints:
  - name: sdxl
    id: abc123
    api_key: ${RUNPOD_TEST_API_KEY}
`)

		cfg, err := LoadFromFile(path, log)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/default", cfg.TextfilePath)
		assert.Equal(t, "rp_from_env", cfg.Endpoints[0].APIKey)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "config.yml"), log)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("missing api key", func(t *testing.T) {
		path := writeConfig(t, `
textfile_path: /tmp/textfile
endpoints:
  - name: sdxl
    id: abc123
    api_key: rp_key_1
  - name: whisper
    id: def456
`)

		_, err := LoadFromFile(path, log)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingCredential)
		assert.Contains(t, err.Error(), "whisper")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "textfile_path: [unclosed")

		_, err := LoadFromFile(path, log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal config")
	})
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			TextfilePath: "/tmp/textfile",
			Endpoints:    []Endpoint{{Name: "sdxl", ID: "abc123", APIKey: "k"}},
		}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(cfg *Config) {}},
		{name: "no textfile path", mutate: func(cfg *Config) { cfg.TextfilePath = "" }, wantErr: "textfile_path is required"},
		{name: "no endpoints", mutate: func(cfg *Config) { cfg.Endpoints = nil }, wantErr: "at least one endpoint is required"},
		{name: "no name", mutate: func(cfg *Config) { cfg.Endpoints[0].Name = "" }, wantErr: "endpoint name is required"},
		{name: "no id", mutate: func(cfg *Config) { cfg.Endpoints[0].ID = "" }, wantErr: "id is required"},
		{name: "duplicate name", mutate: func(cfg *Config) {
			cfg.Endpoints = append(cfg.Endpoints, Endpoint{Name: "sdxl", ID: "def456", APIKey: "k2"})
		}, wantErr: "endpoint name sdxl is duplicated"},
		{name: "same id under different names", mutate: func(cfg *Config) {
			cfg.Endpoints = append(cfg.Endpoints, Endpoint{Name: "sdxl-copy", ID: "abc123", APIKey: "k"})
		}},
		{name: "bad prefix", mutate: func(cfg *Config) { cfg.MetricPrefix = "runpod-serverless" }, wantErr: "not a valid metric name"},
		{name: "nested output file", mutate: func(cfg *Config) { cfg.OutputFilename = "sub/out.prom" }, wantErr: "must not contain a directory"},
		{name: "bad timeout", mutate: func(cfg *Config) { cfg.RequestTimeout = "ten seconds" }, wantErr: "invalid request_timeout format"},
		{name: "zero timeout", mutate: func(cfg *Config) { cfg.RequestTimeout = "0s" }, wantErr: "request_timeout must be greater than 0"},
		{name: "bad sample age", mutate: func(cfg *Config) { cfg.MaxSampleAge = "1 hour" }, wantErr: "invalid max_sample_age format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("RUNPOD_TEST_DOTENV=from_file\n"), 0o600))
		t.Setenv("RUNPOD_TEST_DOTENV", "")
		require.NoError(t, os.Unsetenv("RUNPOD_TEST_DOTENV"))

		require.NoError(t, LoadEnvFile(path, false, log))
		assert.Equal(t, "from_file", os.Getenv("RUNPOD_TEST_DOTENV"))
	})

	t.Run("does not override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("RUNPOD_TEST_DOTENV=from_file\n"), 0o600))
		t.Setenv("RUNPOD_TEST_DOTENV", "from_env")

		require.NoError(t, LoadEnvFile(path, false, log))
		assert.Equal(t, "from_env", os.Getenv("RUNPOD_TEST_DOTENV"))
	})

	t.Run("missing optional file", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env"), true, log))
	})

	t.Run("missing required file", func(t *testing.T) {
		err := LoadEnvFile(filepath.Join(t.TempDir(), ".env"), false, log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}
