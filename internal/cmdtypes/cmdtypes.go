// Package cmdtypes provides shared types for the cmd package and the
// command helpers in cmdutil. It is separate from internal/cmd to avoid
// import cycles between internal/cmd and internal/cmdutil.
package cmdtypes

import (
	"github.com/yoctobom/cli/internal/config"
	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/telemetry"
)

// GlobalConfig holds CLI-wide configuration resolved during PersistentPreRunE.
// It is populated once at startup and passed explicitly into every sub-command
// constructor.
type GlobalConfig struct {
	Config     *config.Config
	ConfigPath string // resolved --config path
	ServerURL  string // resolved --server URL
	Verbose    bool

	// PartialVersions is true when --partial-versions is set or
	// matching.partialVersions is enabled in the config file.
	PartialVersions bool

	// SummaryFormat selects how run summaries are printed.
	SummaryFormat output.OutputFormat

	// Telemetry is the tracing handle. Set by initialization, cleared by shutdown.
	Telemetry *telemetry.Handle
}

// Exit codes, aliased from internal/errors.
const (
	ExitSuccess           = oerrors.ExitSuccess
	ExitGeneralError      = oerrors.ExitGeneralError
	ExitValidationError   = oerrors.ExitValidationError
	ExitConnectivityError = oerrors.ExitConnectivityError
	ExitPermissionDenied  = oerrors.ExitPermissionDenied
	ExitNotFound          = oerrors.ExitNotFound
)

// ExitError is a type alias to internal/errors.ExitError.
type ExitError = oerrors.ExitError
