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

// transactionService handles trades and dividends of a portfolio.
// The cash-flow ledger is not touched here: the consistency hash notices
// every change. Only the cached summary has to be dropped.
type transactionService struct {
	db    *gorm.DB
	cache cache.Cache
	audit AuditServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, c cache.Cache, audit AuditServicer) TransactionServicer {
	return &transactionService{db: db, cache: c, audit: audit}
}

// CreateTransaction records a BUY or SELL.
func (s *transactionService) CreateTransaction(portfolioID string, in TransactionInput) (*models.Transaction, error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	if err := validateTransactionInput(&in); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		PortfolioID:   portfolioID,
		Ticker:        in.Ticker,
		Type:          in.Type,
		Date:          in.Date,
		PricePerShare: in.PricePerShare,
		Shares:        in.Shares,
		Notes:         in.Notes,
	}
	transaction.ComputeTotal()

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.changed(portfolioID, AuditActionCreate, "transaction", transaction.ID, map[string]any{
		"ticker": transaction.Ticker, "type": transaction.Type, "shares": transaction.Shares.String(),
	})
	return transaction, nil
}

// GetTransactionByID returns a transaction that belongs to the portfolio.
func (s *transactionService) GetTransactionByID(portfolioID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND portfolio_id = ?", transactionID, portfolioID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// ListTransactions returns a page of transactions, newest first.
func (s *transactionService) ListTransactions(portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	base := applyTransactionFilters(s.db.Model(&models.Transaction{}).Where("portfolio_id = ?", portfolioID), filter)
	result, err := pagination.Find[models.Transaction](base, page, "date DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdateTransaction replaces the editable fields of a transaction.
func (s *transactionService) UpdateTransaction(portfolioID, transactionID string, in TransactionInput) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(portfolioID, transactionID)
	if err != nil {
		return nil, err
	}
	if err := validateTransactionInput(&in); err != nil {
		return nil, err
	}

	transaction.Ticker = in.Ticker
	transaction.Type = in.Type
	transaction.Date = in.Date
	transaction.PricePerShare = in.PricePerShare
	transaction.Shares = in.Shares
	transaction.Notes = in.Notes
	transaction.ComputeTotal()

	if err := s.db.Save(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.changed(portfolioID, AuditActionUpdate, "transaction", transaction.ID, map[string]any{
		"ticker": transaction.Ticker, "type": transaction.Type, "date": transaction.Date.Format("2006-01-02"),
	})
	return transaction, nil
}

// DeleteTransaction removes a transaction.
func (s *transactionService) DeleteTransaction(portfolioID, transactionID string) error {
	transaction, err := s.GetTransactionByID(portfolioID, transactionID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.changed(portfolioID, AuditActionDelete, "transaction", transactionID, nil)
	return nil
}

// CreateDividend records a cash dividend.
func (s *transactionService) CreateDividend(portfolioID string, in DividendInput) (*models.Dividend, error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	if err := validateDividendInput(&in); err != nil {
		return nil, err
	}

	dividend := &models.Dividend{
		PortfolioID: portfolioID,
		Ticker:      in.Ticker,
		PaymentDate: in.PaymentDate,
		TotalAmount: in.TotalAmount,
	}
	if err := s.db.Create(dividend).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.changed(portfolioID, AuditActionCreate, "dividend", dividend.ID, map[string]any{
		"ticker": dividend.Ticker, "amount": dividend.TotalAmount.String(),
	})
	return dividend, nil
}

// ListDividends returns a page of dividends, newest first.
func (s *transactionService) ListDividends(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Dividend], error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	base := s.db.Model(&models.Dividend{}).Where("portfolio_id = ?", portfolioID)
	result, err := pagination.Find[models.Dividend](base, page, "payment_date DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdateDividend replaces the editable fields of a dividend.
func (s *transactionService) UpdateDividend(portfolioID, dividendID string, in DividendInput) (*models.Dividend, error) {
	dividend, err := s.findDividend(portfolioID, dividendID)
	if err != nil {
		return nil, err
	}
	if err := validateDividendInput(&in); err != nil {
		return nil, err
	}

	dividend.Ticker = in.Ticker
	dividend.PaymentDate = in.PaymentDate
	dividend.TotalAmount = in.TotalAmount
	if err := s.db.Save(dividend).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.changed(portfolioID, AuditActionUpdate, "dividend", dividend.ID, map[string]any{
		"ticker": dividend.Ticker, "amount": dividend.TotalAmount.String(),
	})
	return dividend, nil
}

// DeleteDividend removes a dividend.
func (s *transactionService) DeleteDividend(portfolioID, dividendID string) error {
	dividend, err := s.findDividend(portfolioID, dividendID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(dividend).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.changed(portfolioID, AuditActionDelete, "dividend", dividendID, nil)
	return nil
}

func (s *transactionService) findDividend(portfolioID, dividendID string) (*models.Dividend, error) {
	var dividend models.Dividend
	if err := s.db.Where("id = ? AND portfolio_id = ?", dividendID, portfolioID).First(&dividend).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDividendNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &dividend, nil
}

// changed invalidates cached statistics and writes the audit entry.
func (s *transactionService) changed(portfolioID, action, resourceType, resourceID string, changes map[string]any) {
	s.cache.Delete(cache.SummaryKey(portfolioID))
	if s.audit != nil {
		s.audit.Log(portfolioID, action, resourceType, resourceID, "", changes)
	}
}

func validateTransactionInput(in *TransactionInput) error {
	in.Ticker = normalizeTicker(in.Ticker)
	if in.Ticker == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker is required")
	}
	if !in.Type.Valid() {
		return apperrors.ErrInvalidTransactionType
	}
	if in.Date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Date is required")
	}
	if !in.Shares.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Shares must be positive")
	}
	if !in.PricePerShare.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Price per share must be positive")
	}
	in.Date = models.NormalizeDate(in.Date)
	return nil
}

func validateDividendInput(in *DividendInput) error {
	in.Ticker = normalizeTicker(in.Ticker)
	if in.Ticker == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker is required")
	}
	if in.PaymentDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Payment date is required")
	}
	if !in.TotalAmount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Dividend amount must be positive")
	}
	in.PaymentDate = models.NormalizeDate(in.PaymentDate)
	return nil
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Ticker != "" {
		q = q.Where("ticker = ?", normalizeTicker(f.Ticker))
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", models.NormalizeDate(*f.FromDate))
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", models.NormalizeDate(*f.ToDate))
	}
	return q
}
