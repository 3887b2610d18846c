package store

import (
	"context"
	"testing"
	"time"

	"remittance-reconciliation-service/internal/models"
)

func TestMemoryStore_FetchUnpaid(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	seed := []*models.UnpaidInvoice{
		{ID: "INV-002", TotalAmount: 10000, IssueDate: d2, ClientName: "B社"},
		{ID: "INV-001", TotalAmount: 25000, IssueDate: d1, ClientName: "A社"},
	}

	memStore := NewMemoryStore(seed)

	invoices, err := memStore.FetchUnpaid(context.Background(), "default")
	if err != nil {
		t.Fatalf("FetchUnpaid() error = %v", err)
	}
	if len(invoices) != 2 {
		t.Fatalf("FetchUnpaid() returned %d invoices, want 2", len(invoices))
	}

	// FIFO order regardless of seed order.
	if invoices[0].ID != "INV-001" || invoices[1].ID != "INV-002" {
		t.Errorf("unexpected order: %s, %s", invoices[0].ID, invoices[1].ID)
	}
}

func TestMemoryStore_FetchUnpaid_ReturnsCopy(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	memStore := NewMemoryStore([]*models.UnpaidInvoice{
		{ID: "INV-001", TotalAmount: 10000, IssueDate: d, ClientName: "A社"},
	})

	first, err := memStore.FetchUnpaid(context.Background(), "default")
	if err != nil {
		t.Fatalf("FetchUnpaid() error = %v", err)
	}

	// Mutating the returned slice must not affect later fetches.
	first[0] = nil

	second, err := memStore.FetchUnpaid(context.Background(), "default")
	if err != nil {
		t.Fatalf("FetchUnpaid() error = %v", err)
	}
	if second[0] == nil || second[0].ID != "INV-001" {
		t.Error("FetchUnpaid() does not isolate callers from each other")
	}
}

func TestMemoryStore_Empty(t *testing.T) {
	memStore := NewMemoryStore(nil)

	invoices, err := memStore.FetchUnpaid(context.Background(), "default")
	if err != nil {
		t.Fatalf("FetchUnpaid() error = %v", err)
	}
	if len(invoices) != 0 {
		t.Errorf("FetchUnpaid() returned %d invoices, want 0", len(invoices))
	}
}
