package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	apperrors "folio/internal/errors"
	"folio/internal/logger"
	"folio/internal/models"
)

const displayHashLength = 12

// SourceDataHash is the SHA-256 consistency token over the full ordered set of
// source records. Transactions must be ordered by (date, id) and dividends by
// (payment_date, id); every call re-hashes the whole set, so backdated
// inserts change the result.
func SourceDataHash(transactions []models.Transaction, dividends []models.Dividend) string {
	var b strings.Builder
	for _, t := range transactions {
		b.WriteString("T|")
		b.WriteString(t.ID)
		b.WriteByte('|')
		b.WriteString(dateKey(t.Date))
		b.WriteByte('|')
		b.WriteString(t.Ticker)
		b.WriteByte('|')
		b.WriteString(string(t.Type))
		b.WriteByte('|')
		b.WriteString(t.Shares.String())
		b.WriteByte('|')
		b.WriteString(t.TotalValue.String())
		b.WriteByte('\n')
	}
	for _, d := range dividends {
		b.WriteString("D|")
		b.WriteString(d.ID)
		b.WriteByte('|')
		b.WriteString(dateKey(d.PaymentDate))
		b.WriteByte('|')
		b.WriteString(d.Ticker)
		b.WriteByte('|')
		b.WriteString(d.TotalAmount.String())
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// cashFlowSyncService regenerates the stored ledger when its sources change.
// Regenerations of one portfolio are serialised by a per-portfolio mutex and
// each runs in a single database transaction.
type cashFlowSyncService struct {
	db    *gorm.DB
	audit AuditServicer
	locks sync.Map // portfolio id -> *sync.Mutex
}

// NewCashFlowSyncService creates a new CashFlowSyncServicer.
func NewCashFlowSyncService(db *gorm.DB, audit AuditServicer) CashFlowSyncServicer {
	return &cashFlowSyncService{db: db, audit: audit}
}

func (s *cashFlowSyncService) lockFor(portfolioID string) *sync.Mutex {
	m, _ := s.locks.LoadOrStore(portfolioID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// CalculateSourceDataHash hashes the current trades and dividends.
func (s *cashFlowSyncService) CalculateSourceDataHash(portfolioID string) (string, error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return "", err
	}
	transactions, dividends, err := loadSources(s.db, portfolioID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return SourceDataHash(transactions, dividends), nil
}

// IsCashFlowDataCurrent is true iff the stored hash matches and at least one row exists.
func (s *cashFlowSyncService) IsCashFlowDataCurrent(portfolioID string) (bool, error) {
	portfolio, err := findPortfolio(s.db, portfolioID)
	if err != nil {
		return false, err
	}
	if portfolio.CashFlowHash == "" {
		return false, nil
	}

	current, err := s.CalculateSourceDataHash(portfolioID)
	if err != nil {
		return false, err
	}
	if current != portfolio.CashFlowHash {
		return false, nil
	}

	var count int64
	if err := s.db.Model(&models.CashFlow{}).Where("portfolio_id = ?", portfolioID).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// RegenerateCashFlows rebuilds the ledger and returns the number of rows written.
func (s *cashFlowSyncService) RegenerateCashFlows(portfolioID string) (int, error) {
	mu := s.lockFor(portfolioID)
	mu.Lock()
	defer mu.Unlock()
	return s.regenerate(portfolioID)
}

// EnsureCashFlowsCurrent regenerates when stale and reports whether it did.
func (s *cashFlowSyncService) EnsureCashFlowsCurrent(portfolioID string) (bool, error) {
	current, err := s.IsCashFlowDataCurrent(portfolioID)
	if err != nil || current {
		return false, err
	}

	mu := s.lockFor(portfolioID)
	mu.Lock()
	defer mu.Unlock()

	// Another caller may have regenerated while we waited.
	if current, err = s.IsCashFlowDataCurrent(portfolioID); err != nil || current {
		return false, err
	}
	if _, err := s.regenerate(portfolioID); err != nil {
		return false, err
	}
	return true, nil
}

// regenerate deletes and re-inserts every row and stores the new hash in one
// transaction. Any failure rolls everything back. Callers hold the portfolio lock.
func (s *cashFlowSyncService) regenerate(portfolioID string) (int, error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return 0, err
	}

	var written int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		transactions, dividends, err := loadSources(tx, portfolioID)
		if err != nil {
			return err
		}
		flows := GenerateCashFlows(transactions, dividends)
		if err := replaceCashFlows(tx, portfolioID, flows); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.Portfolio{}).Where("id = ?", portfolioID).Updates(map[string]any{
			"cash_flow_hash":            SourceDataHash(transactions, dividends),
			"cash_flow_hash_updated_at": now,
		}).Error; err != nil {
			return err
		}
		written = len(flows)
		return nil
	})
	if err != nil {
		logger.Get().Errorw("cash flow regeneration failed", "portfolio_id", portfolioID, "error", err)
		return 0, apperrors.Wrap(apperrors.ErrCashFlowRegeneration, err)
	}

	logger.Get().Infow("cash flows regenerated", "portfolio_id", portfolioID, "rows", written)
	if s.audit != nil {
		s.audit.Log(portfolioID, AuditActionRegenerate, "cash_flows", portfolioID, "", map[string]any{"rows": written})
	}
	return written, nil
}

// GetSyncStatus reports hashes (truncated for display) and row counts.
func (s *cashFlowSyncService) GetSyncStatus(portfolioID string) (*SyncStatus, error) {
	portfolio, err := findPortfolio(s.db, portfolioID)
	if err != nil {
		return nil, err
	}
	current, err := s.CalculateSourceDataHash(portfolioID)
	if err != nil {
		return nil, err
	}

	status := &SyncStatus{
		PortfolioID:  portfolioID,
		CurrentHash:  truncateHash(current),
		StoredHash:   truncateHash(portfolio.CashFlowHash),
		LastSyncedAt: portfolio.CashFlowHashUpdatedAt,
	}
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.CashFlow{}, &status.CashFlowCount},
		{&models.Transaction{}, &status.TransactionCount},
		{&models.Dividend{}, &status.DividendCount},
	}
	for _, c := range counts {
		if err := s.db.Model(c.model).Where("portfolio_id = ?", portfolioID).Count(c.dst).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	status.IsCurrent = portfolio.CashFlowHash != "" && current == portfolio.CashFlowHash && status.CashFlowCount > 0
	status.NeedsRegeneration = !status.IsCurrent
	return status, nil
}

func truncateHash(h string) string {
	if len(h) > displayHashLength {
		return h[:displayHashLength]
	}
	return h
}
