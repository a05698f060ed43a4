package models

import (
	"time"

	"folio/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BenchmarkDividend is a per-share dividend paid by a ticker on its ex-date.
type BenchmarkDividend struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	Ticker    string          `gorm:"size:16;not null;uniqueIndex:uq_benchmark_dividends_ticker_date" json:"ticker"`
	ExDate    time.Time       `gorm:"type:date;not null;uniqueIndex:uq_benchmark_dividends_ticker_date" json:"ex_date"`
	Amount    decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"amount"`
	FetchedAt time.Time       `gorm:"not null" json:"fetched_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (d *BenchmarkDividend) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New()
	}
	return nil
}
