package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoctobom/cli/internal/cmdtypes"
	"github.com/yoctobom/cli/internal/config"
	oerrors "github.com/yoctobom/cli/internal/errors"
)

func TestNewConfigInitCmd(t *testing.T) {
	cmd := NewConfigInitCmd(&cmdtypes.GlobalConfig{})

	assert.Equal(t, "init", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotNil(t, cmd.Flags().Lookup("force"))
}

func TestConfigInit_CreatesFile(t *testing.T) {
	home := setupCLIEnv(t)

	out, err := executeCLI(t, "config", "init")
	require.NoError(t, err)

	configFile := filepath.Join(home, ".yoctobom", "config.yaml")
	assert.Contains(t, out, "Config file created: "+configFile)

	dirInfo, err := os.Stat(filepath.Dir(configFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(configFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fileInfo.Mode().Perm())

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# yoctobom configuration")

	cfg, err := config.NewLoader().Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().KBLookup, cfg.KBLookup)
	assert.Equal(t, config.DefaultServerTimeout, cfg.Server.Timeout)
}

func TestConfigInit_ExistingConfig(t *testing.T) {
	home := setupCLIEnv(t)
	configFile := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("# existing\n"), 0o600))

	_, err := executeCLI(t, "config", "init", "--config", configFile)
	require.Error(t, err)

	var exitErr *oerrors.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, oerrors.ExitGeneralError, exitErr.Code)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, "# existing\n", string(data))
}

func TestConfigInit_Force(t *testing.T) {
	home := setupCLIEnv(t)
	configFile := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("# existing\n"), 0o600))

	_, err := executeCLI(t, "config", "init", "--config", configFile, "--force")
	require.NoError(t, err)

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kblookup:")
}
