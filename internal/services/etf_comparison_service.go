package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "folio/internal/errors"
	"folio/internal/logger"
	"folio/internal/models"
)

// etfDay collects the benchmark events that fall on one date.
type etfDay struct {
	date     time.Time
	deposits []decimal.Decimal
	perShare decimal.Decimal
}

// etfComparisonService replays a portfolio's deposits into a benchmark ETF.
type etfComparisonService struct {
	db         *gorm.DB
	sync       CashFlowSyncServicer
	oracle     PriceOracle
	valuation  ValuationServicer
	benchmarks []string
	now        func() time.Time
}

// NewETFComparisonService creates a new ETFComparisonServicer. benchmarks are
// compared when CompareBenchmarks is called without tickers.
func NewETFComparisonService(db *gorm.DB, sync CashFlowSyncServicer, oracle PriceOracle, valuation ValuationServicer, benchmarks []string) ETFComparisonServicer {
	return &etfComparisonService{
		db:         db,
		sync:       sync,
		oracle:     oracle,
		valuation:  valuation,
		benchmarks: benchmarks,
		now:        time.Now,
	}
}

// GetETFCashFlows buys ticker with every deposit of the portfolio at that
// date's close and reinvests the ticker's dividends. A dividend is paid on
// the shares bought on or before its date. Events without a price are
// skipped and counted in SkippedEvents.
func (s *etfComparisonService) GetETFCashFlows(ctx context.Context, portfolioID, ticker string) (*ETFLedger, error) {
	ticker = normalizeTicker(ticker)
	if _, err := findPortfolio(s.db, portfolioID); err != nil {
		return nil, err
	}
	if _, err := s.sync.EnsureCashFlowsCurrent(portfolioID); err != nil {
		return nil, err
	}
	flows, err := readCashFlows(s.db, portfolioID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	ledger := &ETFLedger{
		PortfolioID: portfolioID,
		Ticker:      ticker,
		Rows:        []ETFCashFlow{},
	}

	days := make(map[string]*etfDay)
	dayFor := func(t time.Time) *etfDay {
		key := dateKey(t)
		d, ok := days[key]
		if !ok {
			d = &etfDay{date: models.NormalizeDate(t)}
			days[key] = d
		}
		return d
	}

	var firstDeposit time.Time
	for _, f := range flows {
		if f.FlowType != models.FlowTypeDeposit {
			continue
		}
		if firstDeposit.IsZero() {
			firstDeposit = models.NormalizeDate(f.Date)
		}
		d := dayFor(f.Date)
		d.deposits = append(d.deposits, f.Amount)
	}
	if firstDeposit.IsZero() {
		return ledger, nil
	}

	dividends, err := s.oracle.GetDividendHistory(ctx, ticker)
	if err != nil {
		logger.Get().Warnw("benchmark dividends unavailable, simulating without them", "ticker", ticker, "error", err)
	}
	today := models.NormalizeDate(s.now().UTC())
	for _, div := range dividends {
		date := models.NormalizeDate(div.Date)
		if date.Before(firstDeposit) || date.After(today) {
			continue
		}
		d := dayFor(date)
		d.perShare = d.perShare.Add(div.PerShare)
	}

	ordered := make([]*etfDay, 0, len(days))
	for _, d := range days {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].date.Before(ordered[j].date) })

	shares := decimal.Zero
	appendRow := func(date time.Time, ft models.FlowType, amount, bought, price, held, balance decimal.Decimal, description string) {
		ledger.Rows = append(ledger.Rows, ETFCashFlow{
			CashFlow: models.CashFlow{
				PortfolioID:    portfolioID,
				Date:           date,
				FlowType:       ft,
				Amount:         amount,
				Description:    description,
				RunningBalance: balance,
				Sequence:       len(ledger.Rows),
			},
			Ticker:        ticker,
			Shares:        bought,
			PricePerShare: price,
			SharesHeld:    held,
		})
	}

	for _, d := range ordered {
		price, ok := s.oracle.GetPrice(ctx, ticker, d.date)
		if !ok || !price.IsPositive() {
			skipped := len(d.deposits)
			if !d.perShare.IsZero() {
				skipped++
			}
			ledger.SkippedEvents += skipped
			logger.Get().Warnw("no benchmark price, skipping events", "ticker", ticker, "date", dateKey(d.date), "events", skipped)
			continue
		}

		depositShares := decimal.Zero
		for _, amount := range d.deposits {
			depositShares = depositShares.Add(amount.Div(price))
		}

		if d.perShare.IsPositive() {
			entitled := shares.Add(depositShares)
			if entitled.IsPositive() {
				cash := d.perShare.Mul(entitled)
				ledger.Dividends = ledger.Dividends.Add(cash)
				appendRow(d.date, models.FlowTypeDividend, cash, decimal.Zero, price, entitled, entitled.Mul(price).Add(cash),
					fmt.Sprintf("Dividend: %s %s/share on %s shares", ticker, formatUSD(d.perShare), entitled.StringFixed(4)))

				reinvested := cash.Div(price)
				shares = shares.Add(reinvested)
				appendRow(d.date, models.FlowTypePurchase, cash.Neg(), reinvested, price, shares, shares.Mul(price),
					fmt.Sprintf("Reinvested %s %s @ %s", reinvested.StringFixed(4), ticker, formatUSD(price)))
			}
		}

		for _, amount := range d.deposits {
			bought := amount.Div(price)
			shares = shares.Add(bought)
			ledger.TotalInvested = ledger.TotalInvested.Add(amount)
			appendRow(d.date, models.FlowTypePurchase, amount.Neg(), bought, price, shares, shares.Mul(price),
				fmt.Sprintf("Bought %s %s @ %s", bought.StringFixed(4), ticker, formatUSD(price)))
		}
	}

	ledger.TotalShares = shares
	return ledger, nil
}

// GetETFSummary values the simulated position at the current price.
func (s *etfComparisonService) GetETFSummary(ctx context.Context, portfolioID, ticker string) (*ETFSummary, error) {
	ledger, err := s.GetETFCashFlows(ctx, portfolioID, ticker)
	if err != nil {
		return nil, err
	}

	summary := &ETFSummary{
		PortfolioID:       portfolioID,
		Ticker:            ledger.Ticker,
		TotalInvested:     ledger.TotalInvested,
		TotalShares:       ledger.TotalShares,
		DividendsReceived: ledger.Dividends,
	}

	if ledger.TotalShares.IsPositive() {
		prices := currentPrices(ctx, s.oracle, []string{ledger.Ticker})
		if price, ok := prices[ledger.Ticker]; ok {
			summary.CurrentPrice = price
			summary.PriceAvailable = true
			summary.CurrentValue = ledger.TotalShares.Mul(price)
		} else {
			logger.Get().Warnw("current benchmark price unavailable", "ticker", ledger.Ticker)
		}
	}

	summary.InvestmentGain = summary.CurrentValue.Sub(ledger.TotalInvested).Sub(ledger.Dividends)
	summary.ReturnPct = percentOf(summary.CurrentValue.Sub(ledger.TotalInvested), ledger.TotalInvested)
	if summary.PriceAvailable {
		summary.IRR = CalculateIRR(ledger.CashFlows(), summary.CurrentValue, s.now().UTC(), LedgerBenchmark)
	}
	return summary, nil
}

// CompareBenchmarks summarises the portfolio and each benchmark. Without
// tickers the configured default benchmarks are used.
func (s *etfComparisonService) CompareBenchmarks(ctx context.Context, portfolioID string, tickers []string) (*BenchmarkComparison, error) {
	tickers = uniqueTickers(tickers)
	if len(tickers) == 0 {
		tickers = uniqueTickers(s.benchmarks)
	}

	portfolio, err := s.valuation.GetPortfolioSummary(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	// The ledger is current after the summary; the fan-out only reads it.
	summaries := make([]ETFSummary, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	for i, ticker := range tickers {
		g.Go(func() error {
			summary, err := s.GetETFSummary(gctx, portfolioID, ticker)
			if err != nil {
				return err
			}
			summaries[i] = *summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &BenchmarkComparison{
		PortfolioID: portfolioID,
		Portfolio:   portfolio,
		Benchmarks:  summaries,
	}, nil
}

// formatUSD renders a dollar amount rounded to cents, e.g. "$350.00".
func formatUSD(amount decimal.Decimal) string {
	return money.New(amount.Shift(2).Round(0).IntPart(), money.USD).Display()
}
