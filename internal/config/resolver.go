package config

import (
	"os"

	"github.com/yoctobom/cli/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue records the outcome of resolving one configuration key.
type ResolvedValue struct {
	Key      string
	Value    string
	Source   ConfigSource
	Shadowed map[ConfigSource]string
}

// ResolveServerURLOptions contains options for server URL resolution.
type ResolveServerURLOptions struct {
	// FlagValue is the --server flag value (empty if not set).
	FlagValue string
	// ConfigValue is server.url from the config file (empty if not set).
	ConfigValue string
}

// ResolveServerURLResult contains the resolved server URL and its source.
type ResolveServerURLResult struct {
	// URL is the resolved KB server URL.
	URL string
	// Source indicates where the URL came from.
	Source ConfigSource
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// ResolveServerURL resolves the KB server URL using precedence:
// (1) --server flag, (2) YOCTOBOM_SERVER_URL env, (3) server.url
func ResolveServerURL(opts ResolveServerURLOptions) ResolveServerURLResult {
	result := ResolveServerURLResult{
		Shadowed: make(map[ConfigSource]string),
	}

	envValue := os.Getenv("YOCTOBOM_SERVER_URL")

	switch {
	case opts.FlagValue != "":
		result.URL = opts.FlagValue
		result.Source = SourceFlag
		if envValue != "" {
			result.Shadowed[SourceEnv] = envValue
		}
		if opts.ConfigValue != "" && opts.ConfigValue != envValue {
			result.Shadowed[SourceConfig] = opts.ConfigValue
		}
	case envValue != "":
		result.URL = envValue
		result.Source = SourceEnv
		if opts.ConfigValue != "" && opts.ConfigValue != envValue {
			result.Shadowed[SourceConfig] = opts.ConfigValue
		}
	case opts.ConfigValue != "":
		result.URL = opts.ConfigValue
		result.Source = SourceConfig
	}
	// If none set, URL stays empty and Source is zero value

	return result
}

// ResolveConfigPathOptions contains options for config path resolution.
type ResolveConfigPathOptions struct {
	// FlagValue is the --config flag value (empty if not set).
	FlagValue string
}

// ResolveConfigPathResult contains the resolved config path and its source.
type ResolveConfigPathResult struct {
	// ConfigPath is the resolved config file path.
	ConfigPath string
	// Source indicates where the config path came from.
	Source ConfigSource
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) YOCTOBOM_CONFIG env, (3) ~/.yoctobom/config.yaml
func ResolveConfigPath(opts ResolveConfigPathOptions) (ResolveConfigPathResult, error) {
	result := ResolveConfigPathResult{
		Shadowed: make(map[ConfigSource]string),
	}

	envValue := os.Getenv("YOCTOBOM_CONFIG")

	paths, err := DefaultPaths()
	if err != nil {
		return result, err
	}
	defaultPath := paths.ConfigFile

	switch {
	case opts.FlagValue != "":
		result.ConfigPath = opts.FlagValue
		result.Source = SourceFlag
		if envValue != "" {
			result.Shadowed[SourceEnv] = envValue
		}
		result.Shadowed[SourceDefault] = defaultPath
	case envValue != "":
		result.ConfigPath = envValue
		result.Source = SourceEnv
		result.Shadowed[SourceDefault] = defaultPath
	default:
		result.ConfigPath = defaultPath
		result.Source = SourceDefault
	}

	return result, nil
}

// LogResolvedValues logs configuration resolution at DEBUG level.
func LogResolvedValues(values []ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
