package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yoctobom/cli/internal/cmdtypes"
	"github.com/yoctobom/cli/internal/config"
	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/output"
)

// configHeader is written above the generated config.
const configHeader = `# yoctobom configuration
# Every key can be overridden with a YOCTOBOM_* environment variable,
# e.g. YOCTOBOM_SERVER_URL or YOCTOBOM_SERVER_TOKEN.

`

// NewConfigCmd creates the config command group.
func NewConfigCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  `Configuration management for the yoctobom CLI.`,
	}

	cmd.AddCommand(NewConfigInitCmd(gc))

	return cmd
}

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new yoctobom configuration file",
		Long: `Create a new yoctobom configuration file with default values.

The configuration file is created at ~/.yoctobom/config.yaml by default.
Use the --config flag or YOCTOBOM_CONFIG to choose a different location.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runConfigInit(c, gc, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")

	return cmd
}

func runConfigInit(c *cobra.Command, gc *cmdtypes.GlobalConfig, force bool) error {
	configFile := gc.ConfigPath
	if configFile == "" {
		var err error
		configFile, err = config.GetConfigFile()
		if err != nil {
			return fmt.Errorf("getting config file path: %w", err)
		}
	}

	expandedPath, err := config.ExpandPath(configFile)
	if err != nil {
		return fmt.Errorf("expanding config path: %w", err)
	}

	exists, err := config.ConfigFileExists(expandedPath)
	if err != nil {
		return fmt.Errorf("checking config file: %w", err)
	}
	if exists && !force {
		return oerrors.NewExitError(
			fmt.Errorf("config file already exists at %s (use --force to overwrite)", expandedPath),
			oerrors.ExitGeneralError,
		)
	}

	// The config may hold a server token.
	if err := os.MkdirAll(filepath.Dir(expandedPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append([]byte(configHeader), data...)

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	output.Info("config file created", "path", expandedPath)
	fmt.Fprintf(c.OutOrStdout(), "Config file created: %s\n", expandedPath)
	return nil
}
