package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "folio/internal/errors"
	"folio/internal/models"
)

const inferredDepositDescription = "Inferred deposit"

// ledgerEvent is a source record placed on the ledger timeline.
type ledgerEvent struct {
	date     time.Time
	flowType models.FlowType
	ticker   string
	amount   decimal.Decimal
}

// GenerateCashFlows turns trades and dividends into a chronological signed
// ledger. Events are ordered by (date, rank) with dividends first and trades
// last; trades of the same date keep their input order. A deposit is inferred
// for every date on which purchases would otherwise overdraw the balance, sized
// to the exact shortfall, and emitted once before that date's first trade. The
// running balance therefore never drops below zero.
func GenerateCashFlows(transactions []models.Transaction, dividends []models.Dividend) []models.CashFlow {
	events := make([]ledgerEvent, 0, len(transactions)+len(dividends))
	for _, t := range transactions {
		ft := models.FlowTypePurchase
		if t.Type == models.TransactionTypeSell {
			ft = models.FlowTypeSale
		}
		events = append(events, ledgerEvent{date: models.NormalizeDate(t.Date), flowType: ft, ticker: t.Ticker, amount: t.TotalValue})
	}
	for _, d := range dividends {
		events = append(events, ledgerEvent{date: models.NormalizeDate(d.PaymentDate), flowType: models.FlowTypeDividend, ticker: d.Ticker, amount: d.TotalAmount})
	}
	if len(events) == 0 {
		return []models.CashFlow{}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].date.Equal(events[j].date) {
			return events[i].date.Before(events[j].date)
		}
		return events[i].flowType.Rank() < events[j].flowType.Rank()
	})

	// Pass 1: cash needed per date.
	needed := make(map[string]decimal.Decimal)
	available := decimal.Zero
	for _, e := range events {
		switch e.flowType {
		case models.FlowTypePurchase:
			if available.LessThan(e.amount) {
				shortfall := e.amount.Sub(available)
				key := dateKey(e.date)
				needed[key] = needed[key].Add(shortfall)
				available = available.Add(shortfall)
			}
			available = available.Sub(e.amount)
		default:
			available = available.Add(e.amount)
		}
	}

	// Pass 2: emission.
	flows := make([]models.CashFlow, 0, len(events)+len(needed))
	balance := decimal.Zero
	emit := func(date time.Time, ft models.FlowType, amount decimal.Decimal, description string) {
		balance = balance.Add(amount)
		flows = append(flows, models.CashFlow{
			Date:           date,
			FlowType:       ft,
			Amount:         amount,
			Description:    description,
			RunningBalance: balance,
			Sequence:       len(flows),
		})
	}

	for _, e := range events {
		if e.flowType != models.FlowTypeDividend {
			if deposit, ok := needed[dateKey(e.date)]; ok {
				emit(e.date, models.FlowTypeDeposit, deposit, inferredDepositDescription)
				delete(needed, dateKey(e.date))
			}
		}
		switch e.flowType {
		case models.FlowTypePurchase:
			emit(e.date, e.flowType, e.amount.Neg(), "Purchase: "+e.ticker)
		case models.FlowTypeSale:
			emit(e.date, e.flowType, e.amount, "Sale: "+e.ticker)
		case models.FlowTypeDividend:
			emit(e.date, e.flowType, e.amount, "Dividend: "+e.ticker)
		}
	}
	return flows
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// cashFlowService reads and writes the materialised ledger.
type cashFlowService struct {
	db *gorm.DB
}

// NewCashFlowService creates a new CashFlowServicer.
func NewCashFlowService(db *gorm.DB) CashFlowServicer {
	return &cashFlowService{db: db}
}

// GenerateCashFlows builds the ledger of a portfolio without persisting it.
func (s *cashFlowService) GenerateCashFlows(portfolioID string) ([]models.CashFlow, error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	transactions, dividends, err := loadSources(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return withPortfolio(GenerateCashFlows(transactions, dividends), portfolioID), nil
}

// SaveCashFlows replaces every stored row of the portfolio with flows.
func (s *cashFlowService) SaveCashFlows(portfolioID string, flows []models.CashFlow) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return replaceCashFlows(tx, portfolioID, flows)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCashFlowRegeneration, err)
	}
	return nil
}

// GetCashFlows returns the stored ledger in generation order.
func (s *cashFlowService) GetCashFlows(portfolioID string) ([]models.CashFlow, error) {
	flows, err := readCashFlows(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return flows, nil
}

// loadSources reads trades ordered by (date, id) and dividends by (payment_date, id).
func loadSources(db *gorm.DB, portfolioID string) ([]models.Transaction, []models.Dividend, error) {
	var transactions []models.Transaction
	if err := db.Where("portfolio_id = ?", portfolioID).Order("date ASC, id ASC").Find(&transactions).Error; err != nil {
		return nil, nil, err
	}
	var dividends []models.Dividend
	if err := db.Where("portfolio_id = ?", portfolioID).Order("payment_date ASC, id ASC").Find(&dividends).Error; err != nil {
		return nil, nil, err
	}
	return transactions, dividends, nil
}

func readCashFlows(db *gorm.DB, portfolioID string) ([]models.CashFlow, error) {
	var flows []models.CashFlow
	if err := db.Where("portfolio_id = ?", portfolioID).Order("date ASC, sequence ASC").Find(&flows).Error; err != nil {
		return nil, err
	}
	return flows, nil
}

// replaceCashFlows must run inside a transaction.
func replaceCashFlows(tx *gorm.DB, portfolioID string, flows []models.CashFlow) error {
	if err := tx.Where("portfolio_id = ?", portfolioID).Delete(&models.CashFlow{}).Error; err != nil {
		return err
	}
	if len(flows) == 0 {
		return nil
	}
	rows := withPortfolio(flows, portfolioID)
	for i := range rows {
		rows[i].ID = ""
		rows[i].Sequence = i
	}
	return tx.CreateInBatches(rows, 200).Error
}

// withPortfolio returns a copy of flows stamped with portfolioID.
func withPortfolio(flows []models.CashFlow, portfolioID string) []models.CashFlow {
	out := make([]models.CashFlow, len(flows))
	for i, f := range flows {
		f.PortfolioID = portfolioID
		out[i] = f
	}
	return out
}
