package cmdutil

import (
	"fmt"

	"github.com/yoctobom/cli/internal/cmdtypes"
	"github.com/yoctobom/cli/internal/config"
	oerrors "github.com/yoctobom/cli/internal/errors"
	"github.com/yoctobom/cli/internal/kb"
	"github.com/yoctobom/cli/internal/output"
)

// NewKBClient builds the KB client for a command from the resolved global
// configuration. Requests are traced through gc.Telemetry.
func NewKBClient(gc *cmdtypes.GlobalConfig) (kb.Client, error) {
	cfg := gc.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", oerrors.ErrValidation, err)
	}

	rest, err := kb.NewRESTClient(kb.RESTOptions{
		BaseURL:  gc.ServerURL,
		Token:    cfg.Server.Token,
		Insecure: cfg.Server.Insecure,
		Timeout:  cfg.Server.Timeout,
	})
	if err != nil {
		return nil, err
	}
	output.Debug("KB client configured", "server", gc.ServerURL, "insecure", cfg.Server.Insecure)

	if gc.Telemetry == nil {
		return rest, nil
	}
	return kb.NewTraced(rest, gc.Telemetry.Provider), nil
}
