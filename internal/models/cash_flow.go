package models

import (
	"time"

	"folio/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FlowType tags a ledger entry.
type FlowType string

const (
	FlowTypeDeposit  FlowType = "DEPOSIT"
	FlowTypePurchase FlowType = "PURCHASE"
	FlowTypeSale     FlowType = "SALE"
	FlowTypeDividend FlowType = "DIVIDEND"
)

// Rank is the same-day ordering priority: dividends, then deposits, then trades.
func (f FlowType) Rank() int {
	switch f {
	case FlowTypeDividend:
		return 0
	case FlowTypeDeposit:
		return 1
	default:
		return 2
	}
}

// CashFlow is one row of the derived cash-flow ledger. Rows are only ever
// replaced wholesale by regeneration; Sequence keeps the generated order for
// rows sharing a date.
type CashFlow struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	PortfolioID    string          `gorm:"type:uuid;not null;index:idx_cash_flows_portfolio_seq" json:"portfolio_id"`
	Date           time.Time       `gorm:"type:date;not null" json:"date"`
	FlowType       FlowType        `gorm:"size:8;not null" json:"flow_type"`
	Amount         decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"amount"`
	Description    string          `json:"description"`
	RunningBalance decimal.Decimal `gorm:"type:numeric(28,10);not null" json:"running_balance"`
	Sequence       int             `gorm:"not null;index:idx_cash_flows_portfolio_seq" json:"sequence"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (c *CashFlow) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New()
	}
	return nil
}
