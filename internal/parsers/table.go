// Package parsers turns decoded deposit-export text into rows of string
// cells, and reads unpaid-invoice snapshots for the offline CLI path.
//
// The table parser is deliberately forgiving at the cell level: the export
// has no header, field counts vary between banks, and quoting is sloppy.
// Structural limits are strict: a file over the row cap is rejected
// outright before any matching work happens.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	apperrors "remittance-reconciliation-service/pkg/errors"
	"remittance-reconciliation-service/pkg/logger"
)

// DefaultMaxRows caps how many rows a single run will accept.
const DefaultMaxRows = 10000

// TableConfig holds configuration for deposit-export parsing
type TableConfig struct {
	Delimiter rune
	MaxRows   int
}

// DefaultTableConfig returns a configuration with the standard limits
func DefaultTableConfig() *TableConfig {
	return &TableConfig{
		Delimiter: ',',
		MaxRows:   DefaultMaxRows,
	}
}

// Validate validates the table parser configuration
func (c *TableConfig) Validate() error {
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	if c.MaxRows <= 0 {
		return fmt.Errorf("max rows must be positive")
	}
	return nil
}

// TableParser splits decoded text into rows of string cells.
type TableParser struct {
	config *TableConfig
	logger logger.Logger
}

// NewTableParser creates a new TableParser with the given configuration
func NewTableParser(config *TableConfig) (*TableParser, error) {
	if config == nil {
		config = DefaultTableConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table config: %w", err)
	}

	return &TableParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("table_parser"),
	}, nil
}

// Parse reads the decoded export text into ordered rows of cells. The export
// is header-less; empty lines are skipped. Exceeding the row cap fails the
// whole request before any row is handed to the matcher.
func (tp *TableParser) Parse(text string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = tp.config.Delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // field counts vary between banks

	var rows [][]string
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			// A single unreadable line is ledger noise, not a failure.
			tp.logger.WithError(err).WithField("line", line).Debug("skipping unreadable line")
			continue
		}

		if isEmptyRow(record) {
			continue
		}

		rows = append(rows, record)
		if len(rows) > tp.config.MaxRows {
			tp.logger.WithField("max_rows", tp.config.MaxRows).Warn("row cap exceeded, rejecting file")
			return nil, apperrors.RejectedInput(apperrors.CodeTooManyRows,
				fmt.Sprintf("limit is %d", tp.config.MaxRows))
		}
	}

	tp.logger.WithField("rows", len(rows)).Debug("parsed deposit export")
	return rows, nil
}

// isEmptyRow checks if all cells in a row are empty or whitespace
func isEmptyRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
