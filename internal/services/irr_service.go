package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"folio/internal/cache"
	apperrors "folio/internal/errors"
	"folio/internal/logger"
	"folio/internal/models"
	"folio/internal/pagination"
)

// irrService computes portfolio IRR and keeps the calculation history.
type irrService struct {
	db     *gorm.DB
	sync   CashFlowSyncServicer
	oracle PriceOracle
	cache  cache.Cache
	now    func() time.Time
}

// NewIRRService creates a new IRRServicer.
func NewIRRService(db *gorm.DB, sync CashFlowSyncServicer, oracle PriceOracle, c cache.Cache) IRRServicer {
	return &irrService{db: db, sync: sync, oracle: oracle, cache: c, now: time.Now}
}

// CalculatePortfolioIRR computes the IRR of the current ledger and stores it.
// The terminal value is the market value of the holdings only: sale proceeds
// and dividends are already inflows of the ledger, so the cash balance is not
// counted a second time.
func (s *irrService) CalculatePortfolioIRR(ctx context.Context, portfolioID string) (*models.IRRCalculation, error) {
	if _, err := s.sync.EnsureCashFlowsCurrent(portfolioID); err != nil {
		return nil, err
	}
	flows, err := readCashFlows(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	holdings, err := currentHoldings(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	_, holdingsValue := valueHoldings(ctx, s.oracle, holdings)

	now := s.now().UTC()
	calc := &models.IRRCalculation{
		PortfolioID:     portfolioID,
		IRRValue:        CalculateIRR(flows, holdingsValue, now, LedgerPortfolio),
		TotalInvested:   sumLedger(flows).Deposits,
		CurrentValue:    holdingsValue,
		CalculationDate: now,
	}
	if err := s.db.Create(calc).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.cache.Delete(cache.SummaryKey(portfolioID))

	logger.Get().Infow("portfolio irr calculated", "portfolio_id", portfolioID, "irr", calc.IRRValue)
	return calc, nil
}

// GetLatestIRR returns the most recent calculation, or nil when there is none.
func (s *irrService) GetLatestIRR(portfolioID string) (*models.IRRCalculation, error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	var calc models.IRRCalculation
	err := s.db.Where("portfolio_id = ?", portfolioID).Order("calculation_date DESC").First(&calc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &calc, nil
}

// GetIRRHistory returns stored calculations, newest first.
func (s *irrService) GetIRRHistory(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.IRRCalculation], error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	base := s.db.Model(&models.IRRCalculation{}).Where("portfolio_id = ?", portfolioID)
	result, err := pagination.Find[models.IRRCalculation](base, page, "calculation_date DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}
