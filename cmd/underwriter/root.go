package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/underwriter/pkg/cli"
	"mercator-hq/underwriter/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "underwriter",
	Short: "Underwriter - multi-stage credit decision engine",
	Long: `Underwriter evaluates credit applications against versioned strategy
documents. Each strategy selects applicants through population conditions
and runs its stages in declared order:

  - requirements, scorecard, calculations, assignments and output rules
  - data integrations and model inference over HTTP
  - structured declines with per-stage processing detail

Decisions are recorded to an audit store and exposed through metrics,
traces and a JSON HTTP API.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cli.ErrDeclined) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

// configPath is the file loadConfig read, or "" when running on defaults.
var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration file with environment overrides. The
// default path falls back to built-in defaults when the file is absent.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if flag := cmd.Flag("config"); flag == nil || !flag.Changed {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	config.SetConfig(cfg)
	configPath = path
	return cfg, nil
}
