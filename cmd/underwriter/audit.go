package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/underwriter/pkg/audit"
	"mercator-hq/underwriter/pkg/cli"
	"mercator-hq/underwriter/pkg/config"
)

var auditFlags struct {
	backend      string
	requestID    string
	organization string
	engine       string
	outcome      string
	since        time.Duration
	timeRange    string
	limit        int
	offset       int
	format       string
	output       string

	days       int
	maxRecords int64
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect or prune recorded decisions",
	Long: `Query, export and prune the decision audit store.

Subcommands:
  query   - list decision records matching filters
  prune   - apply the retention policy now`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query decision records",
	Long: `Query decision records with filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-01-01T00:00:00Z/2026-01-02T00:00:00Z"

Examples:
  # Declines in the last 24 hours
  underwriter audit query --outcome decline --since 24h

  # One request, full record as JSON
  underwriter audit query --request-id 3f2c... --format json

  # Export a day of decisions to CSV
  underwriter audit query --time-range "2026-01-01T00:00:00Z/2026-01-02T00:00:00Z" --format csv -o decisions.csv`,
	RunE: queryAudit,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records outside the retention policy",
	Long: `Delete decision records older than the retention period or beyond the
record cap. Flags override the audit.retention configuration.

Examples:
  # Apply the configured policy
  underwriter audit prune

  # Keep 30 days
  underwriter audit prune --days 30`,
	RunE: pruneAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditPruneCmd)

	auditCmd.PersistentFlags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")

	f := auditQueryCmd.Flags()
	f.StringVar(&auditFlags.requestID, "request-id", "", "filter by request ID")
	f.StringVar(&auditFlags.organization, "organization", "", "filter by organization")
	f.StringVar(&auditFlags.engine, "engine", "", "filter by engine name")
	f.StringVar(&auditFlags.outcome, "outcome", "", "filter by outcome (pass, decline, fault)")
	f.DurationVar(&auditFlags.since, "since", 0, "only records newer than this duration")
	f.StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	f.IntVar(&auditFlags.limit, "limit", 0, "max results (default: audit.query.default_limit)")
	f.IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	f.StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")
	f.StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")

	auditPruneCmd.Flags().IntVar(&auditFlags.days, "days", -1, "retention in days (0 keeps records forever)")
	auditPruneCmd.Flags().Int64Var(&auditFlags.maxRecords, "max-records", -1, "maximum records to keep (0 for no cap)")
}

// openAuditFromFlags opens the audit store named by config and --backend.
func openAuditFromFlags(cmd *cobra.Command) (audit.Storage, *config.AuditConfig, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if auditFlags.backend != "" {
		cfg.Audit.Backend = auditFlags.backend
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	s, err := openAuditStorage(&cfg.Audit, logger)
	if err != nil {
		return nil, nil, cli.NewCommandError("audit", err)
	}
	return s, &cfg.Audit, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	q, err := buildAuditQuery(time.Now())
	if err != nil {
		return err
	}

	s, cfg, err := openAuditFromFlags(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limits := audit.Limits{DefaultLimit: cfg.Query.DefaultLimit, MaxLimit: cfg.Query.MaxLimit}
	if err := q.Normalize(limits); err != nil {
		field := "query"
		var qe *audit.QueryError
		if errors.As(err, &qe) {
			field = qe.Field
		}
		return cli.NewConfigError(field, err.Error())
	}

	ctx := context.Background()
	records, err := s.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	out := cmd.OutOrStdout()
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit query", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	if strings.EqualFold(auditFlags.format, "text") {
		return writeRecordTable(out, records)
	}
	exporter, err := audit.NewExporter(auditFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	if err := exporter.Export(ctx, records, out); err != nil {
		return cli.NewCommandError("audit query", err)
	}
	return nil
}

// buildAuditQuery turns the query flags into an audit query. --since is
// relative to now and ignored when --time-range is set.
func buildAuditQuery(now time.Time) (*audit.Query, error) {
	q := &audit.Query{
		RequestID:    auditFlags.requestID,
		Organization: auditFlags.organization,
		Engine:       auditFlags.engine,
		Outcome:      auditFlags.outcome,
		Limit:        auditFlags.limit,
		Offset:       auditFlags.offset,
	}

	switch {
	case auditFlags.timeRange != "":
		start, end, ok := strings.Cut(auditFlags.timeRange, "/")
		if !ok {
			return nil, cli.NewConfigError("time-range", "must be start/end")
		}
		st, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, cli.NewConfigError("time-range", "invalid start: "+err.Error())
		}
		et, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return nil, cli.NewConfigError("time-range", "invalid end: "+err.Error())
		}
		q.StartTime, q.EndTime = &st, &et
	case auditFlags.since > 0:
		st := now.Add(-auditFlags.since)
		q.StartTime = &st
	}
	return q, nil
}

func writeRecordTable(w io.Writer, records []*audit.DecisionRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tREQUEST\tORGANIZATION\tENGINES\tOUTCOME\tREASONS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RecordedAt.Format(time.RFC3339),
			r.RequestID,
			r.Organization,
			strings.Join(r.Engines, ","),
			r.Outcome,
			strings.Join(r.DeclineReasons, "; "),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d records\n", len(records))
	return err
}

func pruneAudit(cmd *cobra.Command, args []string) error {
	s, cfg, err := openAuditFromFlags(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	rc := audit.RetentionConfig{
		Days:       cfg.Retention.Days,
		MaxRecords: cfg.Retention.MaxRecords,
	}
	if auditFlags.days >= 0 {
		rc.Days = auditFlags.days
	}
	if auditFlags.maxRecords >= 0 {
		rc.MaxRecords = auditFlags.maxRecords
	}

	deleted, err := audit.NewPruner(s, rc, nil, nil).Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d records\n", deleted)
	return nil
}
