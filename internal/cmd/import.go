package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoctobom/cli/internal/cmdtypes"
	"github.com/yoctobom/cli/internal/cmdutil"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/pipeline"
)

// NewImportCmd creates the import command.
func NewImportCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var mf cmdutil.ManifestFlags
	var pf cmdutil.ProjectFlags

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a build manifest into a project version using KB URLs from a lookup file",
		Long: `Import a Yocto build manifest into the BOM of a project version using the
KB component versions recorded by 'yoctobom kblookup'.

The project and version are created when they do not exist. Manifest entries
that are not in the lookup file are skipped. Replacement and skip rules are
not applied in this mode.

With -d, manual components already in the BOM that were not imported by this
run are deleted afterwards.

Examples:
  # Import into a new or existing project version
  yoctobom import -c build.manifest -k kblookup.out -p my-image -v 1.0

  # Replace the manual components of the version
  yoctobom import -c build.manifest -k kblookup.out -p my-image -v 1.0 -d`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runImport(c, gc, &mf, &pf)
		},
	}

	mf.AddTo(cmd, "Input file of KB component IDs and URLs matching manifest components")
	_ = cmd.MarkFlagRequired("kbfile")
	pf.AddTo(cmd)

	return cmd
}

func runImport(c *cobra.Command, gc *cmdtypes.GlobalConfig, mf *cmdutil.ManifestFlags, pf *cmdutil.ProjectFlags) error {
	opts := pipeline.ImportOptions{
		ManifestFile:    mf.ManifestFile,
		LookupFile:      mf.LookupFile,
		Project:         pf.Project,
		Version:         pf.Version,
		DeleteManual:    pf.DeleteManual,
		PartialVersions: gc.PartialVersions,
	}
	if err := opts.Validate(); err != nil {
		return cmdutil.ReportError("invalid import options", err)
	}

	client, err := cmdutil.NewKBClient(gc)
	if err != nil {
		return cmdutil.ReportError("connecting to KB server", err)
	}

	progress, err := output.NewProgress(c.OutOrStdout(), "")
	if err != nil {
		return err
	}
	defer func() { _ = progress.Close() }()

	output.Info("import started", "manifest", opts.ManifestFile, "project", opts.Project, "version", opts.Version)
	stats, runErr := pipeline.RunImport(c.Context(), client, progress, opts)
	if stats != nil {
		if err := cmdutil.PrintSummary(c.OutOrStdout(), gc.SummaryFormat, "IMPORT SUMMARY", stats, stats.Counters(opts.DeleteManual)); err != nil {
			return err
		}
	}
	if runErr != nil {
		return cmdutil.ReportError(fmt.Sprintf("import into %s/%s failed", opts.Project, opts.Version), runErr)
	}

	output.Info("import completed", "added", stats.Added, "failed", stats.Failed)
	return nil
}
