package cmdutil

import (
	"fmt"
	"io"

	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
)

// PrintSummary writes the run summary to w: a counter table for the text
// format, or stats encoded as YAML/JSON.
func PrintSummary(w io.Writer, format output.OutputFormat, title string, stats any, counters []output.Counter) error {
	if format == output.FormatYAML || format == output.FormatJSON {
		return output.WriteStructured(w, format, stats)
	}
	_, err := fmt.Fprintln(w, output.RenderCounterTable(title, counters))
	return err
}

// ReportError records err in the diagnostic log and wraps it in an
// ExitError carrying the exit code derived from its sentinel. main prints
// the error to stderr.
func ReportError(msg string, err error) error {
	output.Error(msg, "error", err)
	return oerrors.NewExitError(fmt.Errorf("%s: %w", msg, err), oerrors.ExitCodeFromError(err))
}
