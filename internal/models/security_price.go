package models

import (
	"time"

	"folio/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SecurityPrice is a daily close for a ticker.
// This is immutable time-series data, so it has no Base embed.
type SecurityPrice struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	Ticker    string          `gorm:"size:16;not null;uniqueIndex:uq_security_prices_ticker_date" json:"ticker"`
	Date      time.Time       `gorm:"type:date;not null;uniqueIndex:uq_security_prices_ticker_date" json:"date"`
	Close     decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"close"`
	Source    string          `gorm:"size:16" json:"source"`
	FetchedAt time.Time       `gorm:"not null" json:"fetched_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (s *SecurityPrice) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New()
	}
	return nil
}
