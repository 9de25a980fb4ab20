package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yoctobom/cli/internal/cmdtypes"
	"github.com/yoctobom/cli/internal/cmdutil"
	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/pipeline"
)

// NewKBLookupCmd creates the kblookup command.
func NewKBLookupCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var mf cmdutil.ManifestFlags
	var lf cmdutil.LookupFlags

	cmd := &cobra.Command{
		Use:   "kblookup",
		Short: "Process a build manifest to find matching KB URLs and export them to a file",
		Long: `Process a Yocto build manifest to find matching KB component versions
and write them to a KB lookup file.

Each manifest line "<name> <arch> <version>" is resolved by searching the KB
for the package name, its replacement from the replace file and common
separator variants. Packages listed with SKIP in the replace file are not
searched.

Results from a previous run can be supplied with -k so resolved components
are not searched again. With -a the input file is copied to the output file
first, so a run that stopped early can be resumed.

Examples:
  # Resolve a manifest
  yoctobom kblookup -c build.manifest -r replace.txt

  # Resume from an earlier lookup file
  yoctobom kblookup -c build.manifest -r replace.txt -k kblookup.out -a -o kblookup.new

  # Also record per-component matches in a list file
  yoctobom kblookup -c build.manifest -r replace.txt -l matches.txt`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runKBLookup(c, gc, &mf, &lf)
		},
	}

	mf.AddTo(cmd, "Input file of KB component IDs matching manifest components")
	lf.AddTo(cmd)

	return cmd
}

func runKBLookup(c *cobra.Command, gc *cmdtypes.GlobalConfig, mf *cmdutil.ManifestFlags, lf *cmdutil.LookupFlags) error {
	cfg := gc.Config
	outputFile := lf.OutputFile
	if outputFile == "" {
		outputFile = cfg.KBLookup.Output
	}

	opts := pipeline.LookupOptions{
		ManifestFile:    mf.ManifestFile,
		RulesFile:       lf.RulesFile,
		InputLookup:     mf.LookupFile,
		OutputLookup:    outputFile,
		Append:          lf.Append,
		MaxNew:          cfg.KBLookup.MaxNew,
		SearchLimit:     cfg.KBLookup.SearchLimit,
		PartialVersions: gc.PartialVersions,
	}
	if err := opts.Validate(); err != nil {
		return cmdutil.ReportError("invalid kblookup options", err)
	}

	client, err := cmdutil.NewKBClient(gc)
	if err != nil {
		return cmdutil.ReportError("connecting to KB server", err)
	}

	progress, err := output.NewProgress(c.OutOrStdout(), lf.ListFile)
	if err != nil {
		return cmdutil.ReportError("opening list file", err)
	}
	defer func() {
		if cerr := progress.Close(); cerr != nil {
			output.Warn("closing list file", "path", lf.ListFile, "error", cerr)
		}
	}()

	output.Info("kblookup started", "manifest", opts.ManifestFile, "output", opts.OutputLookup, "max_new", opts.MaxNew)
	stats, runErr := pipeline.RunLookup(c.Context(), client, progress, opts)
	if stats != nil {
		if err := cmdutil.PrintSummary(c.OutOrStdout(), gc.SummaryFormat, "KBLOOKUP SUMMARY", stats, stats.Counters()); err != nil {
			return err
		}
	}

	switch {
	case runErr == nil:
		output.Info("kblookup completed", "entries", stats.Entries, "searches", stats.Searches)
		return nil
	case errors.Is(runErr, oerrors.ErrLimitReached):
		output.Info("kblookup stopped at component limit", "processed", stats.Processed)
		return nil
	default:
		return cmdutil.ReportError(fmt.Sprintf("kblookup of %s failed", opts.ManifestFile), runErr)
	}
}
