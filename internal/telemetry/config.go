// Package telemetry sets up OpenTelemetry tracing for yoctobom.
// Disabled by default; enabled via otel.enabled in the config file.
package telemetry

import (
	"errors"

	"github.com/yoctobom/cli/internal/config"
)

// Protocol constants for OTLP exporters.
const (
	ProtocolHTTP = "otlphttp"
	ProtocolGRPC = "otlpgrpc"
)

// DefaultServiceName is reported as service.name on every span.
const DefaultServiceName = "yoctobom"

// Config holds tracer provider options.
type Config struct {
	Enabled     bool
	Endpoint    string  // e.g. "http://localhost:4318" or "localhost:4317"
	Protocol    string  // "otlphttp" or "otlpgrpc"
	Insecure    bool    // allow connections without TLS
	ServiceName string  // default: "yoctobom"
	SampleRatio float64 // 0..1, default: 1.0
}

// DefaultConfig returns a Config with tracing disabled.
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		Protocol:    ProtocolHTTP,
		ServiceName: DefaultServiceName,
		SampleRatio: 1.0,
	}
}

// FromConfig maps the otel section of the yoctobom config file.
func FromConfig(c config.OTelConfig) Config {
	cfg := DefaultConfig()
	cfg.Enabled = c.Enabled
	cfg.Endpoint = c.Endpoint
	cfg.Insecure = c.Insecure
	if c.Protocol != "" {
		cfg.Protocol = c.Protocol
	}
	cfg.SampleRatio = c.SampleRatio
	return cfg
}

// Validate checks the configuration when tracing is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		return errors.New("telemetry: protocol must be 'otlphttp' or 'otlpgrpc'")
	}

	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.New("telemetry: sample ratio must be between 0 and 1")
	}

	return nil
}
