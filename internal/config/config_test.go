package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Empty(t, cfg.Server.URL)
	assert.Equal(t, 60*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "yoctobom.log", cfg.Log.File)
	assert.Equal(t, "kblookup.out", cfg.KBLookup.Output)
	assert.Equal(t, 500, cfg.KBLookup.MaxNew)
	assert.Equal(t, 20, cfg.KBLookup.SearchLimit)
	assert.False(t, cfg.Matching.PartialVersions)
	assert.False(t, cfg.OTel.Enabled)
	assert.Equal(t, "otlphttp", cfg.OTel.Protocol)
}

func TestWithDefaults(t *testing.T) {
	cfg := (&Config{
		Server:   ServerConfig{URL: "https://kb.example.com"},
		KBLookup: KBLookupConfig{MaxNew: 50},
	}).WithDefaults()

	assert.Equal(t, "https://kb.example.com", cfg.Server.URL)
	assert.Equal(t, 50, cfg.KBLookup.MaxNew, "explicit values are kept")
	assert.Equal(t, DefaultSearchLimit, cfg.KBLookup.SearchLimit)
	assert.Equal(t, DefaultLookupOutput, cfg.KBLookup.Output)
	assert.Equal(t, DefaultServerTimeout, cfg.Server.Timeout)
	assert.Equal(t, DefaultLogFile, cfg.Log.File)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "valid server", mutate: func(c *Config) { c.Server.URL = "https://kb.example.com" }},
		{name: "relative server url", mutate: func(c *Config) { c.Server.URL = "kb.example.com" }, fields: []string{"server.url"}},
		{name: "ftp server url", mutate: func(c *Config) { c.Server.URL = "ftp://kb.example.com" }, fields: []string{"server.url"}},
		{name: "negative limits", mutate: func(c *Config) {
			c.KBLookup.MaxNew = -1
			c.KBLookup.SearchLimit = -1
		}, fields: []string{"kblookup.maxNew", "kblookup.searchLimit"}},
		{name: "bad protocol", mutate: func(c *Config) { c.OTel.Protocol = "zipkin" }, fields: []string{"otel.protocol"}},
		{name: "bad ratio", mutate: func(c *Config) { c.OTel.SampleRatio = 1.5 }, fields: []string{"otel.sampleRatio"}},
		{name: "blank log file", mutate: func(c *Config) { c.Log.File = "  " }, fields: []string{"log.file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			var got []string
			for _, e := range errs {
				got = append(got, e.Field)
			}
			assert.Equal(t, tt.fields, got)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}
