package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the side of a trade
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"
)

// Valid reports whether t is a supported trade side.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// Transaction is a single buy or sell of a security within a portfolio.
type Transaction struct {
	Base
	PortfolioID   string          `gorm:"type:uuid;not null;index:idx_transactions_portfolio_date" json:"portfolio_id"`
	Ticker        string          `gorm:"size:16;not null" json:"ticker"`
	Type          TransactionType `gorm:"size:4;not null" json:"type"`
	Date          time.Time       `gorm:"type:date;not null;index:idx_transactions_portfolio_date" json:"date"`
	PricePerShare decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"price_per_share"`
	Shares        decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"shares"`
	TotalValue    decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"total_value"`
	Notes         string          `json:"notes,omitempty"`
}

// ComputeTotal sets TotalValue from price and share count.
func (t *Transaction) ComputeTotal() {
	t.TotalValue = t.PricePerShare.Mul(t.Shares)
}
