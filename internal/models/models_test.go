package models

import (
	"strings"
	"testing"
	"time"
)

func TestResultStatus_String(t *testing.T) {
	tests := []struct {
		status   ResultStatus
		expected string
	}{
		{StatusCompleted, "COMPLETED"},
		{StatusNeedsReview, "NEEDS_REVIEW"},
		{StatusError, "ERROR"},
		{StatusUnmatched, "UNMATCHED"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("ResultStatus.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestResultStatus_IsValid(t *testing.T) {
	tests := []struct {
		status ResultStatus
		valid  bool
	}{
		{StatusCompleted, true},
		{StatusNeedsReview, true},
		{StatusError, true},
		{StatusUnmatched, true},
		{"PENDING", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.valid {
				t.Errorf("ResultStatus.IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestNewRemittanceRow(t *testing.T) {
	tests := []struct {
		name    string
		rawDate string
		amount  string
		rawName string
		want    *RemittanceRow
		kept    bool
	}{
		{
			name:    "valid row",
			rawDate: "2024-04-01",
			amount:  "10000",
			rawName: "カ）サンプル",
			want:    &RemittanceRow{RawDate: "2024-04-01", Amount: 10000, RawName: "カ）サンプル"},
			kept:    true,
		},
		{
			name:    "amount with thousands separators",
			rawDate: "2024-04-01",
			amount:  "1,250,000",
			rawName: "サンプル",
			want:    &RemittanceRow{RawDate: "2024-04-01", Amount: 1250000, RawName: "サンプル"},
			kept:    true,
		},
		{
			name:    "fields are trimmed",
			rawDate: "  2024-04-01 ",
			amount:  "500",
			rawName: " サンプル ",
			want:    &RemittanceRow{RawDate: "2024-04-01", Amount: 500, RawName: "サンプル"},
			kept:    true,
		},
		{
			name:    "empty date dropped",
			rawDate: "   ",
			amount:  "10000",
			rawName: "サンプル",
			kept:    false,
		},
		{
			name:    "empty name dropped",
			rawDate: "2024-04-01",
			amount:  "10000",
			rawName: "",
			kept:    false,
		},
		{
			name:    "unparseable amount dropped",
			rawDate: "2024-04-01",
			amount:  "abc",
			rawName: "サンプル",
			kept:    false,
		},
		{
			name:    "zero amount dropped",
			rawDate: "2024-04-01",
			amount:  "0",
			rawName: "サンプル",
			kept:    false,
		},
		{
			name:    "negative amount dropped",
			rawDate: "2024-04-01",
			amount:  "-500",
			rawName: "サンプル",
			kept:    false,
		},
		{
			name:    "overlong name dropped",
			rawDate: "2024-04-01",
			amount:  "10000",
			rawName: strings.Repeat("ア", MaxPayerNameLength+1),
			kept:    false,
		},
		{
			name:    "name at the length limit kept",
			rawDate: "2024-04-01",
			amount:  "10000",
			rawName: strings.Repeat("ア", MaxPayerNameLength),
			want:    &RemittanceRow{RawDate: "2024-04-01", Amount: 10000, RawName: strings.Repeat("ア", MaxPayerNameLength)},
			kept:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kept := NewRemittanceRow(tt.rawDate, tt.amount, tt.rawName)
			if kept != tt.kept {
				t.Fatalf("NewRemittanceRow() kept = %v, want %v", kept, tt.kept)
			}
			if !kept {
				return
			}
			if *got != *tt.want {
				t.Errorf("NewRemittanceRow() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      int64
		wantError bool
	}{
		{"plain integer", "10000", 10000, false},
		{"thousands separators", "1,250,000", 1250000, false},
		{"full-width separator", "1，000", 1000, false},
		{"yen sign", "¥5000", 5000, false},
		{"full-width yen sign", "￥5000", 5000, false},
		{"dollar sign", "$300", 300, false},
		{"embedded spaces", "1 000", 1000, false},
		{"integer with decimal zero", "5000.00", 5000, false},
		{"fractional amount rejected", "5000.50", 0, true},
		{"empty string rejected", "", 0, true},
		{"whitespace only rejected", "   ", 0, true},
		{"non-numeric rejected", "ten thousand", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseAmount(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnpaidInvoice_Validate(t *testing.T) {
	validDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		invoice   UnpaidInvoice
		wantError bool
	}{
		{
			name:    "valid invoice",
			invoice: UnpaidInvoice{ID: "INV-001", TotalAmount: 10000, IssueDate: validDate, ClientName: "株式会社サンプル"},
		},
		{
			name:      "empty id",
			invoice:   UnpaidInvoice{TotalAmount: 10000, IssueDate: validDate, ClientName: "サンプル"},
			wantError: true,
		},
		{
			name:      "non-positive amount",
			invoice:   UnpaidInvoice{ID: "INV-001", TotalAmount: 0, IssueDate: validDate, ClientName: "サンプル"},
			wantError: true,
		},
		{
			name:      "zero issue date",
			invoice:   UnpaidInvoice{ID: "INV-001", TotalAmount: 10000, ClientName: "サンプル"},
			wantError: true,
		},
		{
			name:      "empty client name",
			invoice:   UnpaidInvoice{ID: "INV-001", TotalAmount: 10000, IssueDate: validDate},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.invoice.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestSortInvoicesFIFO(t *testing.T) {
	d1 := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	invoices := []*UnpaidInvoice{
		{ID: "INV-200", TotalAmount: 100, IssueDate: d2, ClientName: "B"},
		{ID: "INV-102", TotalAmount: 100, IssueDate: d1, ClientName: "A"},
		{ID: "INV-101", TotalAmount: 100, IssueDate: d1, ClientName: "A"},
	}

	SortInvoicesFIFO(invoices)

	wantOrder := []string{"INV-101", "INV-102", "INV-200"}
	for i, want := range wantOrder {
		if invoices[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, invoices[i].ID, want)
		}
	}
}

func TestAgencyException_Validate(t *testing.T) {
	tests := []struct {
		name      string
		agency    AgencyException
		wantError bool
	}{
		{
			name:   "valid agency",
			agency: AgencyException{Label: "collection agency", MatchToken: "カイシユウ", ExpectedAmount: 50000},
		},
		{
			name:      "empty token",
			agency:    AgencyException{Label: "collection agency", ExpectedAmount: 50000},
			wantError: true,
		},
		{
			name:      "non-positive expected amount",
			agency:    AgencyException{Label: "collection agency", MatchToken: "カイシユウ"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.agency.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestColumnMap_Validate(t *testing.T) {
	tests := []struct {
		name      string
		m         ColumnMap
		wantError bool
	}{
		{"default map", DefaultColumnMap(), false},
		{"distinct indices", ColumnMap{DateCol: 1, AmountCol: 4, NameCol: 2}, false},
		{"negative index", ColumnMap{DateCol: -1, AmountCol: 1, NameCol: 2}, true},
		{"duplicate indices", ColumnMap{DateCol: 0, AmountCol: 0, NameCol: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestColumnMap_FitsRow(t *testing.T) {
	m := DefaultColumnMap() // highest index is 3

	tests := []struct {
		width int
		fits  bool
	}{
		{4, true},
		{5, true},
		{3, false},
		{0, false},
	}

	for _, tt := range tests {
		if got := m.FitsRow(tt.width); got != tt.fits {
			t.Errorf("FitsRow(%d) = %v, want %v", tt.width, got, tt.fits)
		}
	}
}
