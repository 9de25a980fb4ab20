// Package version provides build information for the yoctobom CLI.
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set via ldflags.
var (
	// Version is the CLI version (set via ldflags).
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Info contains version information.
type Info struct {
	// Version is the CLI version (set via ldflags).
	Version string `json:"version" yaml:"version"`

	// GitCommit is the git commit hash.
	GitCommit string `json:"gitCommit" yaml:"gitCommit"`

	// BuildDate is the build timestamp.
	BuildDate string `json:"buildDate" yaml:"buildDate"`

	// GoVersion is the Go version used to build.
	GoVersion string `json:"goVersion" yaml:"goVersion"`

	// Platform is GOOS/GOARCH of the binary.
	Platform string `json:"platform" yaml:"platform"`
}

// Get returns the current version information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a human-readable version string.
func (i Info) String() string {
	return fmt.Sprintf("yoctobom version %s\n  Commit:    %s\n  Built:     %s\n  Go:        %s\n  Platform:  %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// UserAgent is sent with every KB request.
func UserAgent() string {
	return fmt.Sprintf("yoctobom/%s (%s)", Version, runtime.GOOS)
}
