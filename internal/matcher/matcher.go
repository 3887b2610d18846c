// Package matcher implements the matching and allocation engine: agency
// exceptions, exact-amount filtering, fuzzy-name ranking and per-run
// allocation exclusivity.
package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"remittance-reconciliation-service/internal/canonical"
	"remittance-reconciliation-service/internal/models"
	"remittance-reconciliation-service/pkg/logger"
)

// AllocationSet tracks invoice ids already claimed within one run. It is
// run-scoped and never persisted; concurrent runs each hold their own set.
type AllocationSet map[string]struct{}

// NewAllocationSet creates an empty allocation set
func NewAllocationSet() AllocationSet {
	return make(AllocationSet)
}

// Add claims an invoice id. It returns false if the id was already claimed,
// which would violate the one-payment-per-invoice invariant.
func (s AllocationSet) Add(id string) bool {
	if _, exists := s[id]; exists {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Contains reports whether the invoice id has been claimed in this run
func (s AllocationSet) Contains(id string) bool {
	_, exists := s[id]
	return exists
}

// Len returns the number of claimed invoice ids
func (s AllocationSet) Len() int {
	return len(s)
}

// Engine matches remittance rows against one run's invoice snapshot. An
// Engine is created per run and must not be shared between runs: its
// AllocationSet is the only mutable state in the pipeline.
type Engine struct {
	config *MatchingConfig
	logger logger.Logger

	// invoices and canonicalNames are parallel slices in FIFO order
	// (issue date ascending, then id). The ordering is the tie-break.
	invoices       []*models.UnpaidInvoice
	canonicalNames []string

	allocated AllocationSet
}

// NewEngine creates a new matching engine with the specified configuration
func NewEngine(config *MatchingConfig) (*Engine, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}

	return &Engine{
		config:    config.Clone(),
		logger:    logger.GetGlobalLogger().WithComponent("matcher"),
		allocated: NewAllocationSet(),
	}, nil
}

// LoadInvoices installs the run's read-only invoice snapshot together with
// the pre-computed canonical client names. The snapshot is re-sorted into
// FIFO order defensively; canonicalNames must be parallel to invoices.
func (e *Engine) LoadInvoices(invoices []*models.UnpaidInvoice, canonicalNames []string) error {
	if len(invoices) != len(canonicalNames) {
		return fmt.Errorf("invoice snapshot and canonical names differ in length: %d vs %d",
			len(invoices), len(canonicalNames))
	}

	paired := make([]invoiceEntry, len(invoices))
	for i := range invoices {
		paired[i] = invoiceEntry{invoice: invoices[i], canonical: canonicalNames[i]}
	}
	sortEntriesFIFO(paired)

	e.invoices = make([]*models.UnpaidInvoice, len(paired))
	e.canonicalNames = make([]string, len(paired))
	for i, entry := range paired {
		e.invoices[i] = entry.invoice
		e.canonicalNames[i] = entry.canonical
	}

	return nil
}

// UnpaidInvoiceCount returns the number of invoices in the loaded snapshot
func (e *Engine) UnpaidInvoiceCount() int {
	return len(e.invoices)
}

// AllocatedCount returns how many invoices this run has claimed so far
func (e *Engine) AllocatedCount() int {
	return e.allocated.Len()
}

// MatchRow produces exactly one ReconcileResult for a kept row. Rows must be
// offered in input order: allocation order is a correctness input, not an
// optimization.
func (e *Engine) MatchRow(row *models.RemittanceRow) models.ReconcileResult {
	result := models.ReconcileResult{
		Date:    row.RawDate,
		Amount:  row.Amount,
		RawName: row.RawName,
	}

	// Agency exceptions short-circuit: no invoice lookup in this branch.
	if agency := e.findAgency(row.RawName); agency != nil {
		if row.Amount == agency.ExpectedAmount {
			result.Status = models.StatusCompleted
			result.Message = fmt.Sprintf("agency transfer matched: %s", agency.Label)
		} else {
			result.Status = models.StatusError
			result.Message = fmt.Sprintf("amount mismatch, expected %d", agency.ExpectedAmount)
		}
		return result
	}

	best := e.selectCandidate(row)
	if best == nil {
		result.Status = models.StatusUnmatched
		if len(e.invoices) == 0 {
			result.Message = "no unpaid invoices to match against"
		} else {
			result.Message = fmt.Sprintf("no unpaid invoice at amount %d", row.Amount)
		}
		return result
	}

	// An exact amount match is always surfaced, never discarded: allocate
	// the winner regardless of how weak the name score is.
	if !e.allocated.Add(best.invoice.ID) {
		// Unreachable as long as selectCandidate filters allocated ids.
		e.logger.WithField("invoice_id", best.invoice.ID).Error("invoice allocated twice in one run")
	}

	result.MatchedInvoiceID = best.invoice.ID
	result.MatchedClientName = best.invoice.ClientName

	switch {
	case best.score >= e.config.CompleteThreshold:
		result.Status = models.StatusCompleted
		result.Message = "matched by name"
	case best.score >= e.config.ReviewThreshold:
		result.Status = models.StatusNeedsReview
		result.Message = "candidate found, name spelling differs"
	default:
		result.Status = models.StatusNeedsReview
		result.Message = "candidate found, only amount matches"
	}

	e.logger.WithFields(logger.Fields{
		"invoice_id": best.invoice.ID,
		"score":      best.score,
		"status":     result.Status,
	}).Debug("allocated invoice to remittance row")

	return result
}

// findAgency returns the first agency exception whose token appears in the
// raw payer name, or nil.
func (e *Engine) findAgency(rawName string) *models.AgencyException {
	for i := range e.config.Agencies {
		if strings.Contains(rawName, e.config.Agencies[i].MatchToken) {
			return &e.config.Agencies[i]
		}
	}
	return nil
}

type scoredCandidate struct {
	invoice *models.UnpaidInvoice
	score   float64
}

// selectCandidate ranks the exact-amount, unallocated candidate pool by
// similarity against the canonical payer name and returns the winner. Ties
// go to the earliest candidate in FIFO order (strictly-greater selection
// over a pre-ordered pool).
func (e *Engine) selectCandidate(row *models.RemittanceRow) *scoredCandidate {
	payerName := canonical.Normalize(row.RawName)

	var best *scoredCandidate
	for i, invoice := range e.invoices {
		if invoice.TotalAmount != row.Amount {
			continue
		}
		if e.allocated.Contains(invoice.ID) {
			continue
		}

		score := Similarity(payerName, e.canonicalNames[i])
		if best == nil || score > best.score {
			best = &scoredCandidate{invoice: invoice, score: score}
		}
	}

	return best
}

// Similarity scores two canonical names in [0, 1], where 1 is an exact
// match. The score is a rune-level Levenshtein ratio against the longer
// name's length. Substitutions cost 1, so the ratio cannot go below zero
// even for fully substituted names.
func Similarity(a, b string) float64 {
	ar, br := []rune(a), []rune(b)

	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.DistanceForStrings(ar, br, levenshtein.DefaultOptionsWithSub)
	return 1.0 - float64(distance)/float64(maxLen)
}

type invoiceEntry struct {
	invoice   *models.UnpaidInvoice
	canonical string
}

func sortEntriesFIFO(entries []invoiceEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].invoice, entries[j].invoice
		if !a.IssueDate.Equal(b.IssueDate) {
			return a.IssueDate.Before(b.IssueDate)
		}
		return a.ID < b.ID
	})
}
