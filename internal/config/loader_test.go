package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.v)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		content := `
server:
  url: https://kb.example.com
  token: secret
  insecure: true
  timeout: 30s
log:
  file: /var/log/yoctobom.log
  timestamps: false
kblookup:
  output: image.kb
  maxNew: 100
  searchLimit: 5
matching:
  partialVersions: true
otel:
  enabled: true
  endpoint: localhost:4317
  protocol: otlpgrpc
  sampleRatio: 0.5
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "https://kb.example.com", cfg.Server.URL)
		assert.Equal(t, "secret", cfg.Server.Token)
		assert.True(t, cfg.Server.Insecure)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
		assert.Equal(t, "/var/log/yoctobom.log", cfg.Log.File)
		require.NotNil(t, cfg.Log.Timestamps)
		assert.False(t, *cfg.Log.Timestamps)
		assert.Equal(t, "image.kb", cfg.KBLookup.Output)
		assert.Equal(t, 100, cfg.KBLookup.MaxNew)
		assert.Equal(t, 5, cfg.KBLookup.SearchLimit)
		assert.True(t, cfg.Matching.PartialVersions)
		assert.True(t, cfg.OTel.Enabled)
		assert.Equal(t, "localhost:4317", cfg.OTel.Endpoint)
		assert.Equal(t, "otlpgrpc", cfg.OTel.Protocol)
		assert.InDelta(t, 0.5, cfg.OTel.SampleRatio, 1e-9)
	})

	t.Run("returns defaults for missing file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "nonexistent.yaml")

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Empty(t, cfg.Server.URL)
		assert.Equal(t, DefaultMaxNew, cfg.KBLookup.MaxNew)
		assert.Equal(t, DefaultLookupOutput, cfg.KBLookup.Output)
		assert.Nil(t, cfg.Log.Timestamps)
	})

	t.Run("loads from environment variables", func(t *testing.T) {
		t.Setenv("YOCTOBOM_SERVER_URL", "https://env.example.com")
		t.Setenv("YOCTOBOM_SERVER_TOKEN", "env-token")
		t.Setenv("YOCTOBOM_KBLOOKUP_MAXNEW", "42")

		configFile := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte(""), 0o644))

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.Server.URL)
		assert.Equal(t, "env-token", cfg.Server.Token)
		assert.Equal(t, 42, cfg.KBLookup.MaxNew)
	})

	t.Run("env vars override file values", func(t *testing.T) {
		t.Setenv("YOCTOBOM_SERVER_URL", "https://env.example.com")

		configFile := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("server:\n  url: https://file.example.com\n"), 0o644))

		cfg, err := NewLoader().Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.Server.URL)
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("server: [unterminated"), 0o644))

		_, err := NewLoader().Load(configFile)
		assert.Error(t, err)
	})
}

func TestLoadWithDefaults(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("kblookup:\n  searchLimit: 0\n"), 0o644))

	cfg, err := NewLoader().LoadWithDefaults(configFile)
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, cfg.KBLookup.SearchLimit)
}

func TestConfigFileExists(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(present, nil, 0o644))

	exists, err := ConfigFileExists(present)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ConfigFileExists(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, exists)
}
