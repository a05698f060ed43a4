package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"folio/internal/cache"
	"folio/internal/logger"
)

func init() {
	logger.Init("test")
}

// fakeOracle serves prices from in-memory tables.
type fakeOracle struct {
	mu           sync.Mutex
	closes       map[string]map[string]decimal.Decimal
	fresh        map[string]decimal.Decimal
	stale        map[string]decimal.Decimal
	dividends    map[string][]DividendEvent
	dividendErr  error
	currentCalls int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		closes:    make(map[string]map[string]decimal.Decimal),
		fresh:     make(map[string]decimal.Decimal),
		stale:     make(map[string]decimal.Decimal),
		dividends: make(map[string][]DividendEvent),
	}
}

func (f *fakeOracle) setClose(ticker string, date time.Time, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closes[ticker] == nil {
		f.closes[ticker] = make(map[string]decimal.Decimal)
	}
	f.closes[ticker][dateKey(date)] = decimal.RequireFromString(price)
}

func (f *fakeOracle) setCurrent(ticker, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fresh[ticker] = decimal.RequireFromString(price)
}

func (f *fakeOracle) GetPrice(_ context.Context, ticker string, date time.Time) (decimal.Decimal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.closes[ticker][dateKey(date)]
	return p, ok
}

func (f *fakeOracle) GetCurrentPrice(ctx context.Context, ticker string, allowStale bool) (decimal.Decimal, bool) {
	p, ok := f.GetCurrentPrices(ctx, []string{ticker}, allowStale)[ticker]
	return p, ok
}

func (f *fakeOracle) GetPrices(ctx context.Context, tickers []string, date time.Time) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if p, ok := f.GetPrice(ctx, t, date); ok {
			out[t] = p
		}
	}
	return out
}

func (f *fakeOracle) GetCurrentPrices(_ context.Context, tickers []string, allowStale bool) map[string]decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentCalls++
	out := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if p, ok := f.fresh[t]; ok {
			out[t] = p
		} else if p, ok := f.stale[t]; ok && allowStale {
			out[t] = p
		}
	}
	return out
}

func (f *fakeOracle) GetDividendHistory(_ context.Context, ticker string) ([]DividendEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dividendErr != nil {
		return nil, f.dividendErr
	}
	return f.dividends[ticker], nil
}

// analytics wires the analytics services over one database and oracle.
type analytics struct {
	db           *gorm.DB
	cache        *cache.Memory
	portfolios   PortfolioServicer
	transactions TransactionServicer
	cashFlows    CashFlowServicer
	sync         CashFlowSyncServicer
	irr          IRRServicer
	valuation    ValuationServicer
	etf          ETFComparisonServicer
}

func newAnalytics(t *testing.T, db *gorm.DB, oracle PriceOracle) *analytics {
	t.Helper()
	c := cache.NewMemory()
	audit := NewAuditService(db)
	syncSvc := NewCashFlowSyncService(db, audit)
	irrSvc := NewIRRService(db, syncSvc, oracle, c)
	valuation := NewValuationService(db, syncSvc, oracle, irrSvc, c, time.Minute)
	return &analytics{
		db:           db,
		cache:        c,
		portfolios:   NewPortfolioService(db, c),
		transactions: NewTransactionService(db, c, audit),
		cashFlows:    NewCashFlowService(db),
		sync:         syncSvc,
		irr:          irrSvc,
		valuation:    valuation,
		etf:          NewETFComparisonService(db, syncSvc, oracle, valuation, []string{"VOO", "QQQ"}),
	}
}

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
