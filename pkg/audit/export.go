package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Exporter writes decision records in a serialization format.
type Exporter interface {
	Export(ctx context.Context, records []*DecisionRecord, w io.Writer) error
}

// NewExporter returns the exporter for format ("json" or "csv").
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return &JSONExporter{Pretty: true}, nil
	case "csv":
		return &CSVExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// JSONExporter writes records as a JSON array.
type JSONExporter struct {
	Pretty bool
}

// Export implements Exporter.
func (e *JSONExporter) Export(ctx context.Context, records []*DecisionRecord, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if records == nil {
		records = []*DecisionRecord{}
	}
	return enc.Encode(records)
}

// CSVHeader is the header row written by CSVExporter.
var CSVHeader = []string{"id", "request_id", "organization", "engines", "outcome", "passed", "decline_reasons", "input_hash", "recorded_at"}

// CSVExporter writes one row per record. Input and decision bodies are
// omitted; use JSON for full records.
type CSVExporter struct{}

// Export implements Exporter.
func (e *CSVExporter) Export(ctx context.Context, records []*DecisionRecord, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			r.ID,
			r.RequestID,
			r.Organization,
			strings.Join(r.Engines, ";"),
			r.Outcome,
			strconv.FormatBool(r.Passed),
			strings.Join(r.DeclineReasons, ";"),
			r.InputHash,
			r.RecordedAt.Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
