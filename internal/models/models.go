package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ResultStatus classifies the outcome of matching one remittance row.
type ResultStatus string

const (
	// StatusCompleted means the row was confidently matched, or an agency
	// transfer arrived at its expected amount.
	StatusCompleted ResultStatus = "COMPLETED"
	// StatusNeedsReview means a candidate invoice was found but the payer
	// name does not line up well enough to confirm automatically.
	StatusNeedsReview ResultStatus = "NEEDS_REVIEW"
	// StatusError means a business-level mismatch, such as an agency
	// transfer at an unexpected amount. It is not a system failure.
	StatusError ResultStatus = "ERROR"
	// StatusUnmatched means no unpaid invoice is available at this amount.
	StatusUnmatched ResultStatus = "UNMATCHED"
)

// String returns the string representation of ResultStatus
func (s ResultStatus) String() string {
	return string(s)
}

// IsValid checks if the result status is valid
func (s ResultStatus) IsValid() bool {
	switch s {
	case StatusCompleted, StatusNeedsReview, StatusError, StatusUnmatched:
		return true
	}
	return false
}

// MaxPayerNameLength is the longest payer name a row may carry and still be
// processed. Longer names indicate a mis-detected column.
const MaxPayerNameLength = 200

// RemittanceRow is one parsed line of a bank deposit export. It is created
// per parse and discarded after producing a result.
type RemittanceRow struct {
	RawDate string `json:"rawDate"`
	Amount  int64  `json:"amount"`
	RawName string `json:"rawName"`
}

// NewRemittanceRow builds a RemittanceRow from raw cell values. The boolean
// is false when the row fails a keep-precondition (empty date, empty or
// overlong name, unparseable or non-positive amount); such rows are dropped
// silently and never surface in results.
func NewRemittanceRow(rawDate, amountStr, rawName string) (*RemittanceRow, bool) {
	rawDate = strings.TrimSpace(rawDate)
	rawName = strings.TrimSpace(rawName)

	if rawDate == "" || rawName == "" {
		return nil, false
	}
	if utf8.RuneCountInString(rawName) > MaxPayerNameLength {
		return nil, false
	}

	amount, err := ParseAmount(amountStr)
	if err != nil || amount <= 0 {
		return nil, false
	}

	return &RemittanceRow{
		RawDate: rawDate,
		Amount:  amount,
		RawName: rawName,
	}, true
}

// String returns a string representation of the RemittanceRow
func (r *RemittanceRow) String() string {
	return fmt.Sprintf("RemittanceRow{Date: %s, Amount: %d, Name: %s}", r.RawDate, r.Amount, r.RawName)
}

// UnpaidInvoice is a read-only snapshot of an outstanding invoice for one
// run. The engine never mutates stored invoices.
type UnpaidInvoice struct {
	ID          string    `json:"id"`
	TotalAmount int64     `json:"totalAmount"`
	IssueDate   time.Time `json:"issueDate"`
	ClientName  string    `json:"clientName"`
}

// Validate performs basic validation on the UnpaidInvoice
func (inv *UnpaidInvoice) Validate() error {
	if strings.TrimSpace(inv.ID) == "" {
		return fmt.Errorf("invoice id cannot be empty")
	}
	if inv.TotalAmount <= 0 {
		return fmt.Errorf("invoice total amount must be positive")
	}
	if inv.IssueDate.IsZero() {
		return fmt.Errorf("invoice issue date cannot be zero")
	}
	if strings.TrimSpace(inv.ClientName) == "" {
		return fmt.Errorf("invoice client name cannot be empty")
	}
	return nil
}

// String returns a string representation of the UnpaidInvoice
func (inv *UnpaidInvoice) String() string {
	return fmt.Sprintf("UnpaidInvoice{ID: %s, Amount: %d, Issued: %s, Client: %s}",
		inv.ID, inv.TotalAmount, inv.IssueDate.Format("2006-01-02"), inv.ClientName)
}

// SortInvoicesFIFO orders invoices by issue date ascending, then by id
// ascending. This ordering is load-bearing: the matcher breaks similarity
// ties by taking the first candidate in this order.
func SortInvoicesFIFO(invoices []*UnpaidInvoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		if !invoices[i].IssueDate.Equal(invoices[j].IssueDate) {
			return invoices[i].IssueDate.Before(invoices[j].IssueDate)
		}
		return invoices[i].ID < invoices[j].ID
	})
}

// AgencyException describes a known bulk-transfer intermediary. Rows whose
// payer name contains MatchToken bypass invoice matching entirely and are
// checked against ExpectedAmount instead.
type AgencyException struct {
	Label          string `json:"label" mapstructure:"label"`
	MatchToken     string `json:"matchToken" mapstructure:"match_token"`
	ExpectedAmount int64  `json:"expectedAmount" mapstructure:"expected_amount"`
}

// Validate performs basic validation on the AgencyException
func (a *AgencyException) Validate() error {
	if strings.TrimSpace(a.MatchToken) == "" {
		return fmt.Errorf("agency match token cannot be empty")
	}
	if a.ExpectedAmount <= 0 {
		return fmt.Errorf("agency expected amount must be positive")
	}
	return nil
}

// ColumnMap assigns column roles to cell indices of a parsed row.
type ColumnMap struct {
	DateCol   int `json:"dateCol"`
	AmountCol int `json:"amountCol"`
	NameCol   int `json:"nameCol"`
}

// DefaultColumnMap returns the static fallback layout used when inference is
// unavailable or returns an unusable candidate.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{DateCol: 0, AmountCol: 2, NameCol: 3}
}

// Validate checks the map is structurally usable: all indices present,
// non-negative and mutually distinct.
func (m ColumnMap) Validate() error {
	if m.DateCol < 0 || m.AmountCol < 0 || m.NameCol < 0 {
		return fmt.Errorf("column indices must be non-negative: %+v", m)
	}
	if m.DateCol == m.AmountCol || m.DateCol == m.NameCol || m.AmountCol == m.NameCol {
		return fmt.Errorf("column indices must be distinct: %+v", m)
	}
	return nil
}

// MaxIndex returns the highest index the map references.
func (m ColumnMap) MaxIndex() int {
	max := m.DateCol
	if m.AmountCol > max {
		max = m.AmountCol
	}
	if m.NameCol > max {
		max = m.NameCol
	}
	return max
}

// FitsRow reports whether a row of the given width carries every mapped cell.
func (m ColumnMap) FitsRow(width int) bool {
	return m.MaxIndex() < width
}

// ReconcileResult is the proposal produced for one retained remittance row.
// Created, returned, never stored.
type ReconcileResult struct {
	Date               string       `json:"date"`
	Amount             int64        `json:"amount"`
	RawName            string       `json:"raw_name"`
	Status             ResultStatus `json:"status"`
	Message            string       `json:"message"`
	MatchedInvoiceID   string       `json:"matched_invoice_id,omitempty"`
	MatchedClientName  string       `json:"matched_client_name,omitempty"`
}

// String returns a string representation of the ReconcileResult
func (r *ReconcileResult) String() string {
	if r.MatchedInvoiceID != "" {
		return fmt.Sprintf("ReconcileResult{%s %d %s -> %s invoice=%s}",
			r.Date, r.Amount, r.RawName, r.Status, r.MatchedInvoiceID)
	}
	return fmt.Sprintf("ReconcileResult{%s %d %s -> %s}", r.Date, r.Amount, r.RawName, r.Status)
}

// ParseAmount parses a whole-unit monetary amount from a raw cell value.
// Thousands separators and common currency markers are tolerated; fractional
// values are rejected because deposits in this ledger carry no subunits.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount string cannot be empty")
	}

	replacer := strings.NewReplacer(",", "", "，", "", "¥", "", "￥", "", "$", "", " ", "")
	s = replacer.Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format '%s': %w", s, err)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("amount '%s' has fractional units", s)
	}

	return d.IntPart(), nil
}
