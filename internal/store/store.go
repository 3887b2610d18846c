// Package store provides read-only access to the merchant's unpaid invoices.
// The reconciliation engine only ever reads a snapshot; the write path for
// confirmed payments belongs to a separate collaborator.
package store

import (
	"context"

	"remittance-reconciliation-service/internal/models"
)

// InvoiceStore fetches the unpaid-invoice snapshot for one run. The returned
// slice is ordered by issue date ascending, then id ascending, and belongs
// to the caller.
type InvoiceStore interface {
	FetchUnpaid(ctx context.Context, accountID string) ([]*models.UnpaidInvoice, error)
}

// MemoryStore is an in-memory InvoiceStore used by the offline CLI path and
// in tests.
type MemoryStore struct {
	invoices []*models.UnpaidInvoice
}

// NewMemoryStore creates a MemoryStore over the given invoices.
func NewMemoryStore(invoices []*models.UnpaidInvoice) *MemoryStore {
	return &MemoryStore{invoices: invoices}
}

// FetchUnpaid returns a FIFO-ordered copy of the snapshot. The accountID is
// ignored; a memory store holds a single merchant's invoices.
func (s *MemoryStore) FetchUnpaid(ctx context.Context, accountID string) ([]*models.UnpaidInvoice, error) {
	snapshot := make([]*models.UnpaidInvoice, len(s.invoices))
	copy(snapshot, s.invoices)
	models.SortInvoicesFIFO(snapshot)
	return snapshot, nil
}
