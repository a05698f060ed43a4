package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"folio/internal/cache"
	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
)

// portfolioService handles portfolio records.
type portfolioService struct {
	db    *gorm.DB
	cache cache.Cache
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB, c cache.Cache) PortfolioServicer {
	return &portfolioService{db: db, cache: c}
}

// CreatePortfolio creates an empty portfolio.
func (s *portfolioService) CreatePortfolio(name, description string) (*models.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}

	portfolio := &models.Portfolio{Name: name, Description: description}
	if err := s.db.Create(portfolio).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return portfolio, nil
}

// GetPortfolioByID returns a portfolio by its ID.
func (s *portfolioService) GetPortfolioByID(id string) (*models.Portfolio, error) {
	return findPortfolio(s.db, id)
}

// ListPortfolios returns a paginated list of portfolios ordered by name.
func (s *portfolioService) ListPortfolios(page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error) {
	result, err := pagination.Find[models.Portfolio](s.db.Model(&models.Portfolio{}), page, "name ASC, id ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdatePortfolio changes the name and/or description.
func (s *portfolioService) UpdatePortfolio(id string, name, description *string) (*models.Portfolio, error) {
	portfolio, err := findPortfolio(s.db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name cannot be empty")
		}
		updates["name"] = trimmed
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		return portfolio, nil
	}

	if err := s.db.Model(portfolio).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return findPortfolio(s.db, id)
}

// DeletePortfolio removes a portfolio with all of its source and derived rows.
func (s *portfolioService) DeletePortfolio(id string) error {
	if _, err := findPortfolio(s.db, id); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.CashFlow{}, &models.IRRCalculation{}, &models.Transaction{}, &models.Dividend{}} {
			if err := tx.Where("portfolio_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Portfolio{}, "id = ?", id).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.cache.Delete(cache.SummaryKey(id))
	return nil
}

// findPortfolio loads a portfolio or returns ErrPortfolioNotFound.
func findPortfolio(db *gorm.DB, id string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	if err := db.Where("id = ?", id).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPortfolioNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &portfolio, nil
}
