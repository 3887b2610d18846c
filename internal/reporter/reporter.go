// Package reporter renders run results for the offline CLI path.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"remittance-reconciliation-service/internal/models"
	"remittance-reconciliation-service/internal/reconciler"
)

// ReportFormat selects the output format
type ReportFormat string

const (
	FormatConsole ReportFormat = "console"
	FormatJSON    ReportFormat = "json"
)

// ReportConfig holds report generation settings
type ReportConfig struct {
	Format      ReportFormat
	ShowSummary bool
}

// DefaultReportConfig returns console output with a summary block
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:      FormatConsole,
		ShowSummary: true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	switch c.Format {
	case FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid report format: %s", c.Format)
	}
}

// Generator renders RunResults to a writer
type Generator struct {
	config *ReportConfig
}

// NewGenerator creates a report generator with the given configuration
func NewGenerator(config *ReportConfig) (*Generator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report config: %w", err)
	}
	return &Generator{config: config}, nil
}

// Generate writes the run result in the configured format
func (g *Generator) Generate(result *reconciler.RunResult, w io.Writer) error {
	switch g.config.Format {
	case FormatJSON:
		return g.generateJSON(result, w)
	default:
		return g.generateConsole(result, w)
	}
}

func (g *Generator) generateJSON(result *reconciler.RunResult, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func (g *Generator) generateConsole(result *reconciler.RunResult, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "DATE\tAMOUNT\tPAYER\tSTATUS\tINVOICE\tMESSAGE")
	for _, r := range result.Results {
		invoice := r.MatchedInvoiceID
		if invoice == "" {
			invoice = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			r.Date, r.Amount, r.RawName, r.Status, invoice, r.Message)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if g.config.ShowSummary {
		counts := countByStatus(result.Results)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Run %s: %d rows, %d unpaid invoices considered\n",
			result.RunID, len(result.Results), result.UnpaidInvoiceCount)
		fmt.Fprintf(w, "  completed: %d, needs review: %d, unmatched: %d, errors: %d\n",
			counts[models.StatusCompleted], counts[models.StatusNeedsReview],
			counts[models.StatusUnmatched], counts[models.StatusError])
	}

	return nil
}

func countByStatus(results []models.ReconcileResult) map[models.ResultStatus]int {
	counts := make(map[models.ResultStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// FormatFromString parses a format name, accepting any casing
func FormatFromString(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "console", "":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format '%s', valid formats: console, json", s)
	}
}
