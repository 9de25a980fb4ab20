package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Validate checks value ranges and formats. It returns ValidationErrors, or
// nil when cfg is valid.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.Server.URL != "" {
		if err := ValidateServerURL(cfg.Server.URL); err != nil {
			errs = append(errs, *err.(*ValidationError))
		}
	}
	if cfg.Server.Timeout < 0 {
		errs = append(errs, ValidationError{Field: "server.timeout", Message: "must not be negative"})
	}
	if cfg.KBLookup.MaxNew < 0 {
		errs = append(errs, ValidationError{Field: "kblookup.maxNew", Message: "must not be negative"})
	}
	if cfg.KBLookup.SearchLimit < 0 {
		errs = append(errs, ValidationError{Field: "kblookup.searchLimit", Message: "must not be negative"})
	}
	if cfg.Log.File != "" && strings.TrimSpace(cfg.Log.File) == "" {
		errs = append(errs, ValidationError{Field: "log.file", Message: "must not be whitespace only"})
	}

	switch cfg.OTel.Protocol {
	case "", "otlphttp", "otlpgrpc":
	default:
		errs = append(errs, ValidationError{Field: "otel.protocol", Message: "must be otlphttp or otlpgrpc"})
	}
	if cfg.OTel.SampleRatio < 0 || cfg.OTel.SampleRatio > 1 {
		errs = append(errs, ValidationError{Field: "otel.sampleRatio", Message: "must be between 0 and 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateServerURL checks that u is an absolute http(s) URL.
func ValidateServerURL(u string) error {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return &ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("%q must be an absolute http or https URL", u),
		}
	}
	return nil
}
