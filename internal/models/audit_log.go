package models

// AuditLog records mutations of portfolio source data and ledger regenerations.
type AuditLog struct {
	Base
	PortfolioID  string `gorm:"type:uuid;index" json:"portfolio_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
