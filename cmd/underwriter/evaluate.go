package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/underwriter/pkg/cli"
	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/telemetry/logging"
)

var evaluateFlags struct {
	strategies   string
	input        string
	format       string
	requestID    string
	organization string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate an application record offline",
	Long: `Evaluate one application record against the strategies in a directory
and print the composite decision.

The exit code is 0 when the application passed, 3 when it was declined or
a stage faulted, and 1 on any other error.

Examples:
  # Evaluate a record from a file
  underwriter evaluate --strategies ./strategies --input application.json

  # Read the record from stdin and print JSON
  cat application.json | underwriter evaluate --strategies ./strategies --input - --format json`,
	RunE: evaluateRecord,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.strategies, "strategies", "s", "", "strategy file or directory (default: strategy.path from config)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.input, "input", "i", "", "application record JSON file, or - for stdin")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
	evaluateCmd.Flags().StringVar(&evaluateFlags.requestID, "request-id", "", "request ID attached to logs")
	evaluateCmd.Flags().StringVar(&evaluateFlags.organization, "organization", "", "only evaluate strategies of this organization")
	_ = evaluateCmd.MarkFlagRequired("input")
}

func evaluateRecord(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evaluateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Strategy.Source = "file"
	if evaluateFlags.strategies != "" {
		cfg.Strategy.Path = evaluateFlags.strategies
	}
	if evaluateFlags.organization != "" {
		cfg.Strategy.Organization = evaluateFlags.organization
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	rec, err := readRecord(cmd.InOrStdin(), evaluateFlags.input)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	strategies, closeStore, err := openStrategyStore(&cfg.Strategy, logger)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	defer closeStore()

	orch := newOrchestrator(cfg, strategies, engineDeps{logger: logger})

	ctx := context.Background()
	if evaluateFlags.requestID != "" {
		ctx = logging.WithRequestID(ctx, evaluateFlags.requestID)
	}
	if evaluateFlags.organization != "" {
		ctx = logging.WithOrganization(ctx, evaluateFlags.organization)
	}

	decision, err := orch.Evaluate(ctx, rec)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), decision); err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	if decision.Outcome() != "pass" {
		return fmt.Errorf("%w: outcome %s", cli.ErrDeclined, decision.Outcome())
	}
	return nil
}

// readRecord decodes a JSON object from path, or from stdin when path is
// "-".
func readRecord(stdin io.Reader, path string) (map[string]any, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var rec map[string]any
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("input must be a JSON object: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("input must be a JSON object")
	}
	if err := pipeline.CheckReserved(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
