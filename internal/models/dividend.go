package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dividend is a cash dividend received for a ticker, not attributed to lots.
type Dividend struct {
	Base
	PortfolioID string          `gorm:"type:uuid;not null;index:idx_dividends_portfolio_date" json:"portfolio_id"`
	Ticker      string          `gorm:"size:16;not null" json:"ticker"`
	PaymentDate time.Time       `gorm:"type:date;not null;index:idx_dividends_portfolio_date" json:"payment_date"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"total_amount"`
}
