package config

import (
	"os"
	"path/filepath"
)

// Paths contains standard filesystem paths for yoctobom.
type Paths struct {
	// ConfigFile is the path to the config file (~/.yoctobom/config.yaml).
	ConfigFile string

	// HomeDir is the yoctobom home directory (~/.yoctobom).
	HomeDir string
}

// DefaultPaths returns the default paths for yoctobom.
func DefaultPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	home := filepath.Join(homeDir, ".yoctobom")

	return &Paths{
		ConfigFile: filepath.Join(home, "config.yaml"),
		HomeDir:    home,
	}, nil
}

// GetConfigFile returns the config file path.
// If YOCTOBOM_CONFIG is set, it takes precedence.
func GetConfigFile() (string, error) {
	if envPath := os.Getenv("YOCTOBOM_CONFIG"); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.ConfigFile, nil
}

// GetHomeDir returns the yoctobom home directory path.
func GetHomeDir() (string, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.HomeDir, nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 {
		return path, nil
	}

	if path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return homeDir, nil
	}

	// Handle ~/path/to/something
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// Handle ~username (not supported, return as-is)
	return path, nil
}
