package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"folio/internal/cache"
	apperrors "folio/internal/errors"
	"folio/internal/logger"
	"folio/internal/models"
)

// ledgerTotals are the sums of a cash-flow ledger by flow type.
type ledgerTotals struct {
	Deposits    decimal.Decimal
	Purchases   decimal.Decimal
	Sales       decimal.Decimal
	Dividends   decimal.Decimal
	CashBalance decimal.Decimal
}

func sumLedger(flows []models.CashFlow) ledgerTotals {
	var t ledgerTotals
	for _, f := range flows {
		switch f.FlowType {
		case models.FlowTypeDeposit:
			t.Deposits = t.Deposits.Add(f.Amount)
		case models.FlowTypePurchase:
			t.Purchases = t.Purchases.Add(f.Amount.Abs())
		case models.FlowTypeSale:
			t.Sales = t.Sales.Add(f.Amount)
		case models.FlowTypeDividend:
			t.Dividends = t.Dividends.Add(f.Amount)
		}
	}
	if len(flows) > 0 {
		t.CashBalance = flows[len(flows)-1].RunningBalance
	}
	return t
}

// currentHoldings nets BUY and SELL shares per ticker, keeping only positive positions.
func currentHoldings(db *gorm.DB, portfolioID string) (map[string]decimal.Decimal, error) {
	var transactions []models.Transaction
	if err := db.Select("ticker", "type", "shares").Where("portfolio_id = ?", portfolioID).Find(&transactions).Error; err != nil {
		return nil, err
	}

	net := make(map[string]decimal.Decimal)
	for _, t := range transactions {
		switch t.Type {
		case models.TransactionTypeBuy:
			net[t.Ticker] = net[t.Ticker].Add(t.Shares)
		case models.TransactionTypeSell:
			net[t.Ticker] = net[t.Ticker].Sub(t.Shares)
		}
	}
	for ticker, shares := range net {
		if !shares.IsPositive() {
			delete(net, ticker)
		}
	}
	return net, nil
}

// currentPrices prefers fresh quotes and falls back to the newest stored close.
func currentPrices(ctx context.Context, oracle PriceOracle, tickers []string) map[string]decimal.Decimal {
	prices := oracle.GetCurrentPrices(ctx, tickers, false)
	var missing []string
	for _, t := range tickers {
		if _, ok := prices[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		for t, p := range oracle.GetCurrentPrices(ctx, missing, true) {
			prices[t] = p
		}
	}
	return prices
}

// valueHoldings prices each holding; unavailable prices contribute zero.
func valueHoldings(ctx context.Context, oracle PriceOracle, holdings map[string]decimal.Decimal) ([]HoldingValue, decimal.Decimal) {
	tickers := make([]string, 0, len(holdings))
	for t := range holdings {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	prices := currentPrices(ctx, oracle, tickers)

	values := make([]HoldingValue, 0, len(tickers))
	total := decimal.Zero
	for _, t := range tickers {
		hv := HoldingValue{Ticker: t, Shares: holdings[t]}
		if price, ok := prices[t]; ok {
			hv.Price = price
			hv.Value = price.Mul(hv.Shares)
			hv.PriceAvailable = true
			total = total.Add(hv.Value)
		} else {
			logger.Get().Warnw("price unavailable, valuing holding at zero", "ticker", t)
		}
		values = append(values, hv)
	}
	return values, total
}

// percentOf returns part/whole*100 rounded to 2 decimals, or 0 when whole is not positive.
func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	pct := part.Div(whole).Mul(decimal.NewFromInt(100)).InexactFloat64()
	return math.Round(pct*100) / 100
}

// valuationService aggregates holdings, prices and ledger totals.
type valuationService struct {
	db       *gorm.DB
	sync     CashFlowSyncServicer
	oracle   PriceOracle
	irr      IRRServicer
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewValuationService creates a new ValuationServicer.
func NewValuationService(db *gorm.DB, sync CashFlowSyncServicer, oracle PriceOracle, irr IRRServicer, c cache.Cache, cacheTTL time.Duration) ValuationServicer {
	return &valuationService{
		db:       db,
		sync:     sync,
		oracle:   oracle,
		irr:      irr,
		cache:    c,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// GetCurrentHoldings returns net shares per ticker for open positions.
func (s *valuationService) GetCurrentHoldings(portfolioID string) (map[string]decimal.Decimal, error) {
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	holdings, err := currentHoldings(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return holdings, nil
}

// CalculatePortfolioValue values holdings at current prices plus the ledger cash balance.
func (s *valuationService) CalculatePortfolioValue(ctx context.Context, portfolioID string) (*PortfolioValue, error) {
	flows, err := s.currentLedger(portfolioID)
	if err != nil {
		return nil, err
	}
	holdings, err := currentHoldings(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	values, holdingsValue := valueHoldings(ctx, s.oracle, holdings)
	cash := sumLedger(flows).CashBalance

	return &PortfolioValue{
		PortfolioID:   portfolioID,
		Holdings:      values,
		HoldingsValue: holdingsValue,
		CashBalance:   cash,
		TotalValue:    holdingsValue.Add(cash),
		ValuedAt:      s.now().UTC(),
	}, nil
}

// GetPortfolioCurrentValue returns holdings value plus cash.
func (s *valuationService) GetPortfolioCurrentValue(ctx context.Context, portfolioID string) (decimal.Decimal, error) {
	value, err := s.CalculatePortfolioValue(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	return value.TotalValue, nil
}

// GetPortfolioSummary returns cached statistics, computing them on a miss.
// The latest IRR is computed lazily when none has been stored yet.
func (s *valuationService) GetPortfolioSummary(ctx context.Context, portfolioID string) (*PortfolioSummary, error) {
	key := cache.SummaryKey(portfolioID)
	if cached, ok := s.cache.Get(key); ok {
		if summary, ok := cached.(*PortfolioSummary); ok {
			copied := *summary
			return &copied, nil
		}
	}

	value, err := s.CalculatePortfolioValue(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	flows, err := readCashFlows(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	totals := sumLedger(flows)

	summary := &PortfolioSummary{
		PortfolioID:       portfolioID,
		TotalInvested:     totals.Deposits,
		DividendsReceived: totals.Dividends,
		SalesProceeds:     totals.Sales,
		CashBalance:       value.CashBalance,
		PortfolioValue:    value.TotalValue,
		InvestmentGain:    value.TotalValue.Sub(value.CashBalance).Sub(totals.Deposits).Sub(totals.Dividends),
		ReturnPct:         percentOf(value.TotalValue.Sub(totals.Deposits), totals.Deposits),
		NetCashFlow:       totals.Sales.Add(totals.Dividends).Sub(totals.Deposits),
	}

	latest, err := s.irr.GetLatestIRR(portfolioID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		if latest, err = s.irr.CalculatePortfolioIRR(ctx, portfolioID); err != nil {
			return nil, err
		}
	}
	summary.IRR = latest.IRRValue
	calculatedAt := latest.CalculationDate
	summary.IRRCalculatedAt = &calculatedAt

	copied := *summary
	s.cache.Set(key, &copied, s.cacheTTL)
	return summary, nil
}

// currentLedger makes sure the stored ledger is current and reads it.
func (s *valuationService) currentLedger(portfolioID string) ([]models.CashFlow, error) {
	if _, err := s.sync.EnsureCashFlowsCurrent(portfolioID); err != nil {
		return nil, err
	}
	flows, err := readCashFlows(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return flows, nil
}
