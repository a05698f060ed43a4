package models

import "time"

// Portfolio groups the transactions and dividends of one investor account.
// CashFlowHash is the consistency token of the materialised cash-flow ledger.
type Portfolio struct {
	Base
	Name                  string     `gorm:"not null" json:"name"`
	Description           string     `json:"description"`
	CashFlowHash          string     `gorm:"size:64" json:"-"`
	CashFlowHashUpdatedAt *time.Time `json:"cash_flow_hash_updated_at,omitempty"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE" json:"-"`
	Dividends    []Dividend    `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE" json:"-"`
}
