package models

import (
	"time"

	"folio/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// All returns every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Portfolio{},
		&Transaction{},
		&Dividend{},
		&CashFlow{},
		&IRRCalculation{},
		&SecurityPrice{},
		&BenchmarkDividend{},
		&AuditLog{},
	}
}

// NormalizeDate truncates t to midnight UTC of its calendar day.
// All date columns are stored in this form so equality and range queries
// behave the same on every driver.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
