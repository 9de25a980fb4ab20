// Package config provides configuration loading and management.
package config

import "time"

// Default values for configuration keys.
const (
	DefaultServerTimeout = 60 * time.Second
	DefaultLogFile       = "yoctobom.log"
	DefaultLookupOutput  = "kblookup.out"
	DefaultMaxNew        = 500
	DefaultSearchLimit   = 20
	DefaultOTelProtocol  = "otlphttp"
	DefaultSampleRatio   = 1.0
)

// ServerConfig contains KB server connection settings.
type ServerConfig struct {
	// URL is the KB server root.
	// Env: YOCTOBOM_SERVER_URL
	URL string `mapstructure:"url" yaml:"url"`

	// Token is a pre-issued bearer token sent with every request.
	// Env: YOCTOBOM_SERVER_TOKEN
	Token string `mapstructure:"token" yaml:"token"`

	// Insecure disables TLS certificate verification.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// Timeout bounds each request. Default: 60s.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// File is the append-only diagnostic log. "-" logs to stderr.
	// Default: yoctobom.log
	File string `mapstructure:"file" yaml:"file"`

	// Timestamps controls whether timestamps are written to the log.
	// Default: true.
	Timestamps *bool `mapstructure:"timestamps" yaml:"timestamps,omitempty"`
}

// KBLookupConfig contains kblookup mode settings.
type KBLookupConfig struct {
	// Output is the default lookup file written by kblookup.
	Output string `mapstructure:"output" yaml:"output"`

	// MaxNew is the number of newly searched components after which a
	// kblookup run stops so it can be resumed.
	MaxNew int `mapstructure:"maxNew" yaml:"maxNew"`

	// SearchLimit caps the hits requested per KB name search.
	SearchLimit int `mapstructure:"searchLimit" yaml:"searchLimit"`
}

// MatchingConfig contains version matching settings.
type MatchingConfig struct {
	// PartialVersions enables the fuzzy version strategy after the exact one.
	PartialVersions bool `mapstructure:"partialVersions" yaml:"partialVersions"`
}

// OTelConfig contains OpenTelemetry tracing settings.
type OTelConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	Protocol    string  `mapstructure:"protocol" yaml:"protocol"` // otlphttp or otlpgrpc
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRatio float64 `mapstructure:"sampleRatio" yaml:"sampleRatio"`
}

// Config represents the yoctobom configuration, loaded from
// ~/.yoctobom/config.yaml and YOCTOBOM_* environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	KBLookup KBLookupConfig `mapstructure:"kblookup" yaml:"kblookup"`
	Matching MatchingConfig `mapstructure:"matching" yaml:"matching"`
	OTel     OTelConfig     `mapstructure:"otel" yaml:"otel"`
}

// DefaultConfig returns a Config with all default values populated.
// Used by `yoctobom config init` to generate the initial config file.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Timeout: DefaultServerTimeout,
		},
		Log: LogConfig{
			File: DefaultLogFile,
		},
		KBLookup: KBLookupConfig{
			Output:      DefaultLookupOutput,
			MaxNew:      DefaultMaxNew,
			SearchLimit: DefaultSearchLimit,
		},
		OTel: OTelConfig{
			Protocol:    DefaultOTelProtocol,
			SampleRatio: DefaultSampleRatio,
		},
	}
}

// WithDefaults fills zero values with defaults and returns c.
func (c *Config) WithDefaults() *Config {
	d := DefaultConfig()
	if c.Server.Timeout == 0 {
		c.Server.Timeout = d.Server.Timeout
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	if c.KBLookup.Output == "" {
		c.KBLookup.Output = d.KBLookup.Output
	}
	if c.KBLookup.MaxNew == 0 {
		c.KBLookup.MaxNew = d.KBLookup.MaxNew
	}
	if c.KBLookup.SearchLimit == 0 {
		c.KBLookup.SearchLimit = d.KBLookup.SearchLimit
	}
	if c.OTel.Protocol == "" {
		c.OTel.Protocol = d.OTel.Protocol
	}
	return c
}
