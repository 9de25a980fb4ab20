// Package cmd provides CLI command implementations.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/yoctobom/cli/internal/cmdtypes"
	"github.com/yoctobom/cli/internal/config"
	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
	"github.com/yoctobom/cli/internal/telemetry"
)

// rootFlags holds the persistent flags shared by every command.
type rootFlags struct {
	config          string
	server          string
	logFile         string
	summaryFormat   string
	verbose         bool
	partialVersions bool
	timestamps      bool
}

// NewRootCmd creates the root command for the yoctobom CLI.
func NewRootCmd() *cobra.Command {
	var flags rootFlags
	gc := &cmdtypes.GlobalConfig{}

	rootCmd := &cobra.Command{
		Use:   "yoctobom",
		Short: "Process or import a Yocto build manifest into a project version",
		Long: `yoctobom resolves the packages of a Yocto build manifest against a
software component knowledge base and imports the matches into the bill of
materials of a project version.

Run 'yoctobom kblookup' to build a KB lookup file from a manifest, then
'yoctobom import' to add the matched component versions to a project.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeGlobals(cmd, &flags, gc)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", "Path to config file (env: YOCTOBOM_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flags.server, "server", "", "KB server URL (env: YOCTOBOM_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", `Diagnostic log file, "-" for stderr (default: log.file from config, "yoctobom.log")`)
	rootCmd.PersistentFlags().StringVar(&flags.summaryFormat, "summary-format", "text", "Run summary format: text, yaml, json")
	rootCmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "Enable debug logging and mirror the log to stderr")
	rootCmd.PersistentFlags().BoolVar(&flags.partialVersions, "partial-versions", false, "Also try fuzzy version matching after the exact strategy")
	rootCmd.PersistentFlags().BoolVar(&flags.timestamps, "timestamps", true, "Write timestamps in log output")

	rootCmd.AddCommand(NewKBLookupCmd(gc))
	rootCmd.AddCommand(NewImportCmd(gc))
	rootCmd.AddCommand(NewConfigCmd(gc))
	rootCmd.AddCommand(NewVersionCmd(gc))

	// cobra skips PersistentPostRunE when RunE fails.
	shutdownAfterRun(rootCmd, gc)

	return rootCmd
}

// initializeGlobals loads configuration, sets up logging and tracing, and
// resolves the values every command needs into gc.
func initializeGlobals(cmd *cobra.Command, flags *rootFlags, gc *cmdtypes.GlobalConfig) error {
	format := output.OutputFormat(flags.summaryFormat)
	if !format.IsValid() {
		return oerrors.NewExitError(
			fmt.Errorf("%w: invalid --summary-format %q (valid: %v)", oerrors.ErrValidation, flags.summaryFormat, output.ValidFormats()),
			oerrors.ExitValidationError,
		)
	}

	pathResult, err := config.ResolveConfigPath(config.ResolveConfigPathOptions{FlagValue: flags.config})
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	cfg, loadErr := config.NewLoader().LoadWithDefaults(pathResult.ConfigPath)
	if loadErr != nil {
		// Don't fail here - allow commands that don't need config to work
		cfg = config.DefaultConfig()
	}

	// Log file: flag > config > default
	logCfg := output.LogConfig{
		Verbose: flags.verbose,
		File:    cfg.Log.File,
	}
	if flags.logFile != "" {
		logCfg.File = flags.logFile
	}
	// Timestamps: flag (if explicitly set) > config > default (nil = true)
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(flags.timestamps)
	} else if cfg.Log.Timestamps != nil {
		logCfg.Timestamps = cfg.Log.Timestamps
	}
	if err := output.SetupLogging(logCfg); err != nil {
		return err
	}
	if loadErr != nil {
		output.Warn("config load error, using defaults", "path", pathResult.ConfigPath, "error", loadErr)
	}

	serverResult := config.ResolveServerURL(config.ResolveServerURLOptions{
		FlagValue:   flags.server,
		ConfigValue: cfg.Server.URL,
	})
	config.LogResolvedValues([]config.ResolvedValue{
		{Key: "config", Value: pathResult.ConfigPath, Source: pathResult.Source, Shadowed: pathResult.Shadowed},
		{Key: "server.url", Value: serverResult.URL, Source: serverResult.Source, Shadowed: serverResult.Shadowed},
	})

	handle, err := telemetry.Init(cmd.Context(), telemetry.FromConfig(cfg.OTel))
	if err != nil {
		output.Warn("tracing disabled", "error", err)
		handle = telemetry.NewHandle(noop.NewTracerProvider())
	}

	gc.Config = cfg
	gc.ConfigPath = pathResult.ConfigPath
	gc.ServerURL = serverResult.URL
	gc.Verbose = flags.verbose
	gc.PartialVersions = flags.partialVersions || cfg.Matching.PartialVersions
	gc.SummaryFormat = format
	gc.Telemetry = handle

	output.Debug("initializing CLI",
		"command", cmd.CommandPath(),
		"config", gc.ConfigPath,
		"server", gc.ServerURL,
		"partial_versions", gc.PartialVersions,
		"summary_format", gc.SummaryFormat,
	)
	return nil
}

// shutdownAfterRun wraps the RunE of cmd and of every subcommand so that
// shutdownGlobals runs whether the command succeeds or fails.
func shutdownAfterRun(cmd *cobra.Command, gc *cmdtypes.GlobalConfig) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			defer shutdownGlobals(c, gc)
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		shutdownAfterRun(sub, gc)
	}
}

// shutdownGlobals flushes pending spans and closes the log file. Calling it
// again is a no-op.
func shutdownGlobals(cmd *cobra.Command, gc *cmdtypes.GlobalConfig) {
	defer output.CloseLogging()
	if gc.Telemetry == nil {
		return
	}
	handle := gc.Telemetry
	gc.Telemetry = nil
	if err := handle.Shutdown(cmd.Context()); err != nil {
		output.Warn("flushing traces", "error", err)
	}
}
