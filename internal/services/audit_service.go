package services

import (
	"encoding/json"

	"gorm.io/gorm"

	apperrors "folio/internal/errors"
	"folio/internal/logger"
	"folio/internal/models"
	"folio/internal/pagination"
)

// Audit actions.
const (
	AuditActionCreate     = "create"
	AuditActionUpdate     = "update"
	AuditActionDelete     = "delete"
	AuditActionRegenerate = "regenerate"
)

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records a change to a portfolio's records. Failures are logged and swallowed
// so the mutation that triggered the entry still succeeds.
func (s *auditService) Log(portfolioID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		PortfolioID:  portfolioID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Named("audit").Errorw("failed to create audit log entry",
			"error", err,
			"portfolio_id", portfolioID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

// ListAuditLogs returns a portfolio's audit trail, newest first. Entries outlive the
// portfolio, so a deleted portfolio's trail stays readable.
func (s *auditService) ListAuditLogs(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	base := s.db.Model(&models.AuditLog{}).Where("portfolio_id = ?", portfolioID)
	result, err := pagination.Find[models.AuditLog](base, page, "created_at DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func encodeChanges(action string, changes map[string]any) string {
	if len(changes) == 0 {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Named("audit").Warnw("failed to marshal audit changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
