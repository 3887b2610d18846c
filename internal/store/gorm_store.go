package store

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"remittance-reconciliation-service/internal/models"
	apperrors "remittance-reconciliation-service/pkg/errors"
)

// invoiceRecord is the persistence shape of an invoice. Only the columns the
// engine reads are mapped; payment state lives with the billing system.
type invoiceRecord struct {
	ID          string    `gorm:"column:id;primaryKey"`
	AccountID   string    `gorm:"column:account_id;index"`
	TotalAmount int64     `gorm:"column:total_amount"`
	IssueDate   time.Time `gorm:"column:issue_date"`
	ClientName  string    `gorm:"column:client_name"`
	Status      string    `gorm:"column:status"`
}

func (invoiceRecord) TableName() string {
	return "invoices"
}

// unpaidStatuses are the invoice states eligible for matching.
var unpaidStatuses = []string{"unpaid", "partially_paid"}

// GormStore is a postgres-backed InvoiceStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a postgres connection for invoice reads.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeStoreUnavailable, "open", err)
	}
	return &GormStore{db: db}, nil
}

// NewGormStoreWithDB wraps an existing gorm handle (used in tests).
func NewGormStoreWithDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FetchUnpaid loads the acting account's unpaid and partially-paid invoices,
// ordered by issue date ascending then id ascending. The ordering is
// load-bearing for the matcher's FIFO tie-break.
func (s *GormStore) FetchUnpaid(ctx context.Context, accountID string) ([]*models.UnpaidInvoice, error) {
	var records []invoiceRecord

	err := s.db.WithContext(ctx).
		Where("account_id = ? AND status IN ?", accountID, unpaidStatuses).
		Order("issue_date ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "fetch_unpaid", err)
	}

	invoices := make([]*models.UnpaidInvoice, 0, len(records))
	for _, rec := range records {
		invoices = append(invoices, &models.UnpaidInvoice{
			ID:          rec.ID,
			TotalAmount: rec.TotalAmount,
			IssueDate:   rec.IssueDate,
			ClientName:  rec.ClientName,
		})
	}

	return invoices, nil
}
