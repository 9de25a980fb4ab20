package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoctobom/cli/internal/cmdtypes"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show yoctobom version information.

Displays the version, commit, build date and Go toolchain of the binary.
With --summary-format yaml or json the same fields are encoded.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runVersion(c, gc)
		},
	}
}

func runVersion(c *cobra.Command, gc *cmdtypes.GlobalConfig) error {
	info := version.Get()
	if gc.SummaryFormat == output.FormatYAML || gc.SummaryFormat == output.FormatJSON {
		return output.WriteStructured(c.OutOrStdout(), gc.SummaryFormat, info)
	}
	_, err := fmt.Fprintln(c.OutOrStdout(), info.String())
	return err
}
