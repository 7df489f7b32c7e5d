package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, DefaultProviderID, cfg.Provider.ID)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
	assert.Contains(t, cfg.Home.IndexRoot, DefaultIndexRootSuffix)
}

func TestLoadEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "all env vars",
			envVars: map[string]string{
				"CONTINUEINDEX_HOME":        "/custom/index-root",
				"CONTINUEINDEX_PROVIDER_ID": "my-provider",
				"CONTINUEINDEX_LOG_LEVEL":   "debug",
				"CONTINUEINDEX_LOG_FORMAT":  "text",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/custom/index-root", cfg.Home.IndexRoot)
				assert.Equal(t, "my-provider", cfg.Provider.ID)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "metrics and tracing env vars",
			envVars: map[string]string{
				"CONTINUEINDEX_METRICS_ENABLED":     "true",
				"CONTINUEINDEX_METRICS_PORT":        "9999",
				"CONTINUEINDEX_TRACING_ENABLED":     "true",
				"CONTINUEINDEX_TRACING_ENDPOINT":    "collector:4317",
				"CONTINUEINDEX_TRACING_SAMPLE_RATE": "0.5",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Observability.Metrics.Enabled)
				assert.Equal(t, 9999, cfg.Observability.Metrics.Port)
				assert.True(t, cfg.Observability.Tracing.Enabled)
				assert.Equal(t, "collector:4317", cfg.Observability.Tracing.Endpoint)
				assert.Equal(t, 0.5, cfg.Observability.Tracing.SampleRate)
			},
		},
		{
			name: "no env vars keeps defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultProviderID, cfg.Provider.ID)
				assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg := loadEnv(defaults())
			tt.check(t, cfg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		ext     string
		content string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "yaml file",
			ext:  ".yaml",
			content: `
home:
  index_root: /from/yaml
provider:
  id: yaml-provider
logging:
  level: warn
  format: text
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/from/yaml", cfg.Home.IndexRoot)
				assert.Equal(t, "yaml-provider", cfg.Provider.ID)
				assert.Equal(t, "warn", cfg.Logging.Level)
			},
		},
		{
			name: "json file",
			ext:  ".json",
			content: `{"home":{"index_root":"/from/json"},"provider":{"id":"json-provider"},"logging":{"level":"error","format":"json"}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/from/json", cfg.Home.IndexRoot)
				assert.Equal(t, "json-provider", cfg.Provider.ID)
				assert.Equal(t, "error", cfg.Logging.Level)
			},
		},
		{
			name:    "unsupported extension",
			ext:     ".toml",
			content: "home = 1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config"+tt.ext)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			cfg, err := loadFile(path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestMerge(t *testing.T) {
	base := defaults()
	override := &Config{
		Provider: ProviderConfig{ID: "override-provider"},
		Logging:  LoggingConfig{Level: "debug"},
	}

	merged := merge(base, override)

	assert.Equal(t, "override-provider", merged.Provider.ID)
	assert.Equal(t, "debug", merged.Logging.Level)
	assert.Equal(t, base.Logging.Format, merged.Logging.Format)
	assert.Equal(t, base.Home.IndexRoot, merged.Home.IndexRoot)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:    "empty index root",
			mutate:  func(cfg *Config) { cfg.Home.IndexRoot = "" },
			wantErr: true,
		},
		{
			name:    "empty provider id",
			mutate:  func(cfg *Config) { cfg.Provider.ID = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: true,
		},
		{
			name: "metrics enabled with invalid port",
			mutate: func(cfg *Config) {
				cfg.Observability.Metrics.Enabled = true
				cfg.Observability.Metrics.Port = 0
			},
			wantErr: true,
		},
		{
			name: "tracing enabled without endpoint",
			mutate: func(cfg *Config) {
				cfg.Observability.Tracing.Enabled = true
				cfg.Observability.Tracing.Endpoint = ""
			},
			wantErr: true,
		},
		{
			name: "sentry enabled without dsn",
			mutate: func(cfg *Config) {
				cfg.Observability.Sentry.Enabled = true
				cfg.Observability.Sentry.DSN = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		cfg, err := Load(context.Background())
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, DefaultProviderID, cfg.Provider.ID)
	})

	t.Run("with config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("provider:\n  id: file-provider\n"), 0o644))

		t.Setenv("CONTINUEINDEX_CONFIG_FILE", path)

		cfg, err := Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "file-provider", cfg.Provider.ID)
	})

	t.Run("env overrides file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("provider:\n  id: file-provider\n"), 0o644))

		t.Setenv("CONTINUEINDEX_CONFIG_FILE", path)
		t.Setenv("CONTINUEINDEX_PROVIDER_ID", "env-provider")

		cfg, err := Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "env-provider", cfg.Provider.ID)
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultProviderID, cfg.Provider.ID)
}
