// Package reconciler orchestrates one reconciliation run: decode, parse,
// resolve columns, canonicalize the invoice pool, match row by row, and
// aggregate the proposals.
//
// A run is a single synchronous pass. The only suspension points are the
// column-inference call and the batched transliteration call, each awaited
// at most once and never inside the per-row loop. Runs are independent; the
// engine's allocation state lives and dies with the run.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"remittance-reconciliation-service/internal/canonical"
	"remittance-reconciliation-service/internal/columns"
	"remittance-reconciliation-service/internal/decoder"
	"remittance-reconciliation-service/internal/matcher"
	"remittance-reconciliation-service/internal/models"
	"remittance-reconciliation-service/internal/parsers"
	"remittance-reconciliation-service/internal/store"
	apperrors "remittance-reconciliation-service/pkg/errors"
	"remittance-reconciliation-service/pkg/logger"
)

// MaxPayloadBytes caps the upload size; larger payloads are rejected before
// any decoding work.
const MaxPayloadBytes = 10 << 20

// Config holds run-level settings.
type Config struct {
	MaxPayloadBytes int64
	TableConfig     *parsers.TableConfig
	MatchingConfig  *matcher.MatchingConfig
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxPayloadBytes: MaxPayloadBytes,
		TableConfig:     parsers.DefaultTableConfig(),
		MatchingConfig:  matcher.DefaultMatchingConfig(),
	}
}

// Validate validates the run configuration
func (c *Config) Validate() error {
	if c.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max payload bytes must be positive")
	}
	if c.TableConfig != nil {
		if err := c.TableConfig.Validate(); err != nil {
			return fmt.Errorf("invalid table config: %w", err)
		}
	}
	if c.MatchingConfig != nil {
		if err := c.MatchingConfig.Validate(); err != nil {
			return fmt.Errorf("invalid matching config: %w", err)
		}
	}
	return nil
}

// RunResult aggregates one run's proposals in row-processing order, plus run
// metadata. Results are never deduplicated or re-sorted.
type RunResult struct {
	RunID              string                   `json:"run_id"`
	Results            []models.ReconcileResult `json:"results"`
	UnpaidInvoiceCount int                      `json:"unpaid_invoice_count"`
	Duration           time.Duration            `json:"-"`
}

// Service runs the reconciliation pipeline. It holds no per-run state and is
// safe for concurrent use; each Run builds its own matching engine.
type Service struct {
	config   *Config
	store    store.InvoiceStore
	resolver *columns.Resolver
	translit canonical.Transliterator
	parser   *parsers.TableParser
	logger   logger.Logger
}

// NewService creates a reconciliation service. The inference and
// transliteration collaborators may be nil, in which case the pipeline runs
// on defaults and non-transliterated canonical names.
func NewService(config *Config, invoiceStore store.InvoiceStore, inferrer columns.Inferrer, translit canonical.Transliterator) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconciler config: %w", err)
	}
	if invoiceStore == nil {
		return nil, fmt.Errorf("invoice store is required")
	}

	parser, err := parsers.NewTableParser(config.TableConfig)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:   config,
		store:    invoiceStore,
		resolver: columns.NewResolver(inferrer),
		translit: translit,
		parser:   parser,
		logger:   logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// Run executes one reconciliation pass over the uploaded payload for the
// acting account. Rejected input fails before any matching; otherwise every
// kept row yields exactly one proposal and no row aborts the run.
func (s *Service) Run(ctx context.Context, accountID string, payload []byte) (*RunResult, error) {
	started := time.Now()
	runID := uuid.New().String()
	log := s.logger.WithField("run_id", runID)

	if int64(len(payload)) > s.config.MaxPayloadBytes {
		return nil, apperrors.RejectedInput(apperrors.CodeFileTooLarge,
			fmt.Sprintf("limit is %d bytes", s.config.MaxPayloadBytes))
	}

	text := decoder.Decode(payload)

	rows, err := s.parser.Parse(text)
	if err != nil {
		return nil, err
	}

	columnMap := s.resolver.Resolve(ctx, rows)

	invoices, err := s.store.FetchUnpaid(ctx, accountID)
	if err != nil {
		return nil, err
	}

	clientNames := make([]string, len(invoices))
	for i, invoice := range invoices {
		clientNames[i] = invoice.ClientName
	}
	canonicalNames := canonical.CanonicalNames(ctx, clientNames, s.translit)

	engine, err := matcher.NewEngine(s.config.MatchingConfig)
	if err != nil {
		return nil, apperrors.InternalError("engine_setup", err)
	}
	if err := engine.LoadInvoices(invoices, canonicalNames); err != nil {
		return nil, apperrors.InternalError("engine_setup", err)
	}

	results := make([]models.ReconcileResult, 0, len(rows))
	dropped := 0

	for _, cells := range rows {
		row, ok := extractRow(cells, columnMap)
		if !ok {
			dropped++
			continue
		}
		results = append(results, engine.MatchRow(row))
	}

	log.WithFields(logger.Fields{
		"rows":      len(rows),
		"kept":      len(results),
		"dropped":   dropped,
		"invoices":  len(invoices),
		"allocated": engine.AllocatedCount(),
		"duration":  time.Since(started).String(),
	}).Info("reconciliation run completed")

	return &RunResult{
		RunID:              runID,
		Results:            results,
		UnpaidInvoiceCount: engine.UnpaidInvoiceCount(),
		Duration:           time.Since(started),
	}, nil
}

// extractRow pulls the mapped cells out of one parsed row and applies the
// keep-preconditions. Rows the map does not fit are dropped like any other
// malformed row.
func extractRow(cells []string, columnMap models.ColumnMap) (*models.RemittanceRow, bool) {
	if !columnMap.FitsRow(len(cells)) {
		return nil, false
	}
	return models.NewRemittanceRow(
		cells[columnMap.DateCol],
		cells[columnMap.AmountCol],
		cells[columnMap.NameCol],
	)
}
