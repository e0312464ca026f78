// Package cmd provides CLI commands for the smithyrt binary.
package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/smithyrt/cli/config"
)

// Exit codes shared by all commands.
const (
	exitSuccess     = 0
	exitFailure     = 1
	exitConfigError = 2
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for decode and attempts --summary.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (decode, attempts --summary only)",
	}

	// ConfigFlag points at a smithyrt.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to smithyrt.yaml (flags override file values)",
		EnvVars: []string{"SMITHYRT_CONFIG"},
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// loadConfig loads --config when set. A nil config means no file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	return cfg, nil
}

// configVal reads a field from cfg, returning the zero value for a nil config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString returns the flag when set explicitly, then cfgVal when
// non-empty, then the flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

// resolveInt returns the flag when set explicitly, otherwise cfgVal.
func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	return cfgVal
}

// resolveIntPtr returns the flag when set explicitly, then *cfgVal, then
// the flag default.
func resolveIntPtr(c *cli.Context, name string, cfgVal *int) int {
	if c.IsSet(name) || cfgVal == nil {
		return c.Int(name)
	}
	return *cfgVal
}

// resolveBool returns the flag when set explicitly, otherwise cfgVal.
func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal
}

// resolveDuration returns the flag when set explicitly, then cfgVal when
// non-zero, then the flag default.
func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Duration(name)
	}
	return cfgVal
}

// resolveMap merges cfgVal with "Name: value" flag entries; flags win.
func resolveMap(c *cli.Context, name string, cfgVal map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(cfgVal))
	for k, v := range cfgVal {
		out[k] = v
	}
	for _, entry := range c.StringSlice(name) {
		k, v, err := parseHeaderFlag(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", name, err)
		}
		out[k] = v
	}
	return out, nil
}
