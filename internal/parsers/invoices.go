package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"remittance-reconciliation-service/internal/models"
	"remittance-reconciliation-service/pkg/logger"
)

// InvoiceParserConfig holds configuration for unpaid-invoice CSV snapshots
// used by the offline CLI path. The file carries a header row naming the
// id, amount, issue date and client name columns.
type InvoiceParserConfig struct {
	IDColumn         string
	AmountColumn     string
	IssueDateColumn  string
	ClientNameColumn string
	DateFormats      []string
	Delimiter        rune
}

// DefaultInvoiceParserConfig returns a configuration matching the snapshot
// format exported by the billing system.
func DefaultInvoiceParserConfig() *InvoiceParserConfig {
	return &InvoiceParserConfig{
		IDColumn:         "id",
		AmountColumn:     "total_amount",
		IssueDateColumn:  "issue_date",
		ClientNameColumn: "client_name",
		DateFormats: []string{
			"2006-01-02",
			"2006/01/02",
			time.RFC3339,
		},
		Delimiter: ',',
	}
}

// Validate validates the invoice parser configuration
func (c *InvoiceParserConfig) Validate() error {
	if c.IDColumn == "" || c.AmountColumn == "" || c.IssueDateColumn == "" || c.ClientNameColumn == "" {
		return fmt.Errorf("all invoice column names are required")
	}
	if len(c.DateFormats) == 0 {
		return fmt.Errorf("at least one date format is required")
	}
	return nil
}

// InvoiceParser reads unpaid-invoice snapshots from CSV files.
type InvoiceParser struct {
	config *InvoiceParserConfig
	logger logger.Logger
}

// NewInvoiceParser creates a new InvoiceParser with the given configuration
func NewInvoiceParser(config *InvoiceParserConfig) (*InvoiceParser, error) {
	if config == nil {
		config = DefaultInvoiceParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice parser config: %w", err)
	}

	return &InvoiceParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("invoice_parser"),
	}, nil
}

// ParseFile reads an invoice snapshot from a CSV file on disk.
func (ip *InvoiceParser) ParseFile(path string) ([]*models.UnpaidInvoice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open invoice file %s: %w", path, err)
	}
	defer file.Close()

	return ip.Parse(file)
}

// Parse reads an invoice snapshot. Rows that fail validation are skipped
// with a warning; the snapshot is returned in FIFO order (issue date
// ascending, then id) regardless of file order.
func (ip *InvoiceParser) Parse(r io.Reader) ([]*models.UnpaidInvoice, error) {
	reader := csv.NewReader(r)
	reader.Comma = ip.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice header row: %w", err)
	}

	headerMap := make(map[string]int, len(headers))
	for i, h := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(h))] = i
	}

	required := []string{ip.config.IDColumn, ip.config.AmountColumn, ip.config.IssueDateColumn, ip.config.ClientNameColumn}
	for _, col := range required {
		if _, ok := headerMap[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("invoice file is missing required column '%s'", col)
		}
	}

	var invoices []*models.UnpaidInvoice
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			ip.logger.WithError(err).WithField("line", line).Warn("skipping unreadable invoice row")
			continue
		}

		invoice, err := ip.buildInvoice(record, headerMap)
		if err != nil {
			ip.logger.WithError(err).WithField("line", line).Warn("skipping invalid invoice row")
			continue
		}

		invoices = append(invoices, invoice)
	}

	models.SortInvoicesFIFO(invoices)

	ip.logger.WithField("invoices", len(invoices)).Debug("parsed invoice snapshot")
	return invoices, nil
}

func (ip *InvoiceParser) buildInvoice(record []string, headerMap map[string]int) (*models.UnpaidInvoice, error) {
	cell := func(name string) string {
		idx, ok := headerMap[strings.ToLower(name)]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	amount, err := models.ParseAmount(cell(ip.config.AmountColumn))
	if err != nil {
		return nil, fmt.Errorf("invalid invoice amount: %w", err)
	}

	issueDate, err := ip.parseDate(cell(ip.config.IssueDateColumn))
	if err != nil {
		return nil, fmt.Errorf("invalid invoice issue date: %w", err)
	}

	invoice := &models.UnpaidInvoice{
		ID:          cell(ip.config.IDColumn),
		TotalAmount: amount,
		IssueDate:   issueDate,
		ClientName:  cell(ip.config.ClientNameColumn),
	}

	if err := invoice.Validate(); err != nil {
		return nil, err
	}

	return invoice, nil
}

func (ip *InvoiceParser) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date cannot be empty")
	}

	var lastErr error
	for _, format := range ip.config.DateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}
