package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/underwriter/pkg/cli"
	"mercator-hq/underwriter/pkg/store"
	"mercator-hq/underwriter/pkg/strategy"
)

var validateFlags struct {
	strategies string
	format     string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Decode and compile every strategy document",
	Long: `Decode and compile every strategy document in a file or directory,
inactive ones included, and report the result for each.

Examples:
  # Validate the configured strategy directory
  underwriter validate

  # Validate a directory and print JSON
  underwriter validate --strategies ./strategies --format json`,
	RunE: validateStrategies,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.strategies, "strategies", "s", "", "strategy file or directory (default: strategy.path from config)")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

func validateStrategies(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	path := cfg.Strategy.Path
	if validateFlags.strategies != "" {
		path = validateFlags.strategies
	}

	// Only warnings and errors; the report is the output.
	cfg.Telemetry.Logging.Level = "warn"
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	files, err := strategyFiles(path)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	orch := newOrchestrator(cfg, store.NewMemoryStore(), engineDeps{logger: logger})
	ctx := context.Background()

	var progress *cli.Progress
	if format == cli.FormatText && len(files) > 1 {
		progress = cli.NewProgress(cmd.ErrOrStderr(), "files")
	}
	progress.Start(len(files))

	var results []cli.ValidationResult
	for _, file := range files {
		fileResults := validateFile(ctx, file, func(doc *strategy.EngineConfig) (int, error) {
			e, err := orch.CompileEngine(ctx, doc)
			if err != nil {
				return 0, err
			}
			return len(e.Pipeline.Stages()), nil
		})
		ok := true
		for _, r := range fileResults {
			ok = ok && r.OK()
		}
		progress.Advance(file, ok)
		results = append(results, fileResults...)
	}
	progress.Finish()

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results); err != nil {
		return cli.NewCommandError("validate", err)
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return cli.NewCommandError("validate", fmt.Errorf("%d of %d strategies failed", failed, len(results)))
	}
	return nil
}

// validateFile decodes file and compiles each document with compile. A
// file that does not decode yields a single failed result named after it.
func validateFile(ctx context.Context, file string, compile func(*strategy.EngineConfig) (int, error)) []cli.ValidationResult {
	docs, err := strategy.DecodeFile(file)
	if err != nil {
		return []cli.ValidationResult{{Engine: filepath.Base(file), Error: err.Error()}}
	}

	results := make([]cli.ValidationResult, 0, len(docs))
	for _, doc := range docs {
		r := cli.ValidationResult{Engine: doc.ShortName(), Organization: doc.Organization}
		if err := ctx.Err(); err != nil {
			r.Error = err.Error()
		} else if err := doc.Validate(); err != nil {
			r.Error = err.Error()
		} else if r.Stages, err = compile(doc); err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}

// strategyFiles lists the strategy documents at path in lexical order,
// skipping hidden directories.
func strategyFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(store.Extensions, strings.ToLower(filepath.Ext(p))) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", path, err)
	}
	return files, nil
}
