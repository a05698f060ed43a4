package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IRRCalculation stores one IRR computation. The latest row per portfolio
// is the one with the greatest CalculationDate.
type IRRCalculation struct {
	Base
	PortfolioID     string          `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	IRRValue        float64         `gorm:"not null" json:"irr_value"`
	TotalInvested   decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"total_invested"`
	CurrentValue    decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"current_value"`
	CalculationDate time.Time       `gorm:"not null;index" json:"calculation_date"`
}
