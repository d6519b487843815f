package cli

import (
	"os"

	"github.com/roach88/cachecheck/internal/config"
	"github.com/roach88/cachecheck/internal/scenario"
)

// resolveConfig layers the config file and environment over the defaults.
// Command flags are applied afterwards by each command.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	if err := config.LoadDotEnv(opts.DotEnv); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load env file", err)
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, WrapExitError(ExitCommandError, "invalid environment", err)
	}
	return cfg, nil
}

// loadTable returns the configured scenario table or the built-in battery.
func loadTable(cfg config.Config) (scenario.Table, error) {
	if cfg.Table == "" {
		return scenario.Default(), nil
	}
	table, err := scenario.LoadTable(cfg.Table)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scenario table", err)
	}
	return table, nil
}
