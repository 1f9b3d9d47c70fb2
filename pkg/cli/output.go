package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"mercator-hq/underwriter/pkg/orchestrator"
	"mercator-hq/underwriter/pkg/pipeline"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", NewConfigError("format", fmt.Sprintf("unsupported output format %q", s))
	}
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	return &TextFormatter{}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// TextFormatter renders decisions and validation reports for a terminal.
// Other values are printed with %v.
type TextFormatter struct{}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *orchestrator.CompositeDecision:
		return writeDecision(w, v)
	case []ValidationResult:
		return writeValidation(w, v)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

func writeDecision(w io.Writer, d *orchestrator.CompositeDecision) error {
	var b strings.Builder

	result := "PASSED"
	switch d.Outcome() {
	case "decline":
		result = "DECLINED"
	case "fault":
		result = "FAULT"
	}
	fmt.Fprintf(&b, "Result:  %s\n", result)
	fmt.Fprintf(&b, "Engines: %s\n", strings.Join(d.Engines, ", "))

	if len(d.DeclineReasons) > 0 {
		b.WriteString("\nDecline reasons:\n")
		for _, r := range d.DeclineReasons {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}

	for _, name := range d.Engines {
		ed := d.CreditProcess[name]
		if ed == nil || ed.Decision == nil {
			continue
		}
		fmt.Fprintf(&b, "\n[%s] %s", name, engineStatus(ed.Decision))
		if req, ok := d.Requirements[name]; ok {
			fmt.Fprintf(&b, " (requirements passed: %t)", req.Passed)
		}
		b.WriteString("\n")
		if ed.Kind == pipeline.OutcomeFault {
			fmt.Fprintf(&b, "  error: %s\n", ed.Message)
		}
		for _, entry := range ed.ProcessingDetail {
			segment := entry.Segment
			if segment == "" {
				segment = "(no matching segment)"
			}
			fmt.Fprintf(&b, "  %-24s %s\n", entry.Name, segment)
		}
	}

	if len(d.OutputVariables) > 0 {
		b.WriteString("\nOutput variables:\n")
		keys := make([]string, 0, len(d.OutputVariables))
		for k := range d.OutputVariables {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %v\n", k, d.OutputVariables[k])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func engineStatus(d *pipeline.Decision) string {
	switch d.Kind {
	case pipeline.OutcomeFault:
		return "fault"
	case pipeline.OutcomeDecline:
		return "declined"
	default:
		return "passed"
	}
}

// ValidationResult reports whether one strategy document compiled.
type ValidationResult struct {
	Engine       string `json:"engine"`
	Organization string `json:"organization"`
	Stages       int    `json:"stages"`
	Error        string `json:"error,omitempty"`
}

// OK reports whether the document compiled.
func (r ValidationResult) OK() bool { return r.Error == "" }

func writeValidation(w io.Writer, results []ValidationResult) error {
	var b strings.Builder
	failed := 0
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(&b, "✓ %s (%s): %d stages\n", r.Engine, r.Organization, r.Stages)
			continue
		}
		failed++
		fmt.Fprintf(&b, "✗ %s (%s): %s\n", r.Engine, r.Organization, r.Error)
	}
	fmt.Fprintf(&b, "\n%d strategies, %d failed\n", len(results), failed)
	_, err := io.WriteString(w, b.String())
	return err
}
