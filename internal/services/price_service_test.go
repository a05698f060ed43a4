package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/cache"
	"folio/internal/models"
	"folio/internal/oracle"
	"folio/internal/testutil"
)

// fakeProvider is an oracle.Provider with function fields.
type fakeProvider struct {
	mu             sync.Mutex
	historyCalls   int
	quoteBatches   [][]string
	dividendCalls  int
	FetchHistoryFn func(ctx context.Context, ticker string, from, to time.Time) ([]oracle.PricePoint, error)
	FetchDivsFn    func(ctx context.Context, ticker string, from, to time.Time) ([]oracle.DividendPoint, error)
	FetchQuotesFn  func(ctx context.Context, tickers []string) ([]oracle.Quote, []oracle.FetchError)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchHistory(ctx context.Context, ticker string, from, to time.Time) ([]oracle.PricePoint, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	if f.FetchHistoryFn == nil {
		return nil, errors.New("no history")
	}
	return f.FetchHistoryFn(ctx, ticker, from, to)
}

func (f *fakeProvider) FetchDividends(ctx context.Context, ticker string, from, to time.Time) ([]oracle.DividendPoint, error) {
	f.mu.Lock()
	f.dividendCalls++
	f.mu.Unlock()
	if f.FetchDivsFn == nil {
		return nil, nil
	}
	return f.FetchDivsFn(ctx, ticker, from, to)
}

func (f *fakeProvider) FetchQuotes(ctx context.Context, tickers []string) ([]oracle.Quote, []oracle.FetchError) {
	f.mu.Lock()
	f.quoteBatches = append(f.quoteBatches, append([]string(nil), tickers...))
	f.mu.Unlock()
	if f.FetchQuotesFn == nil {
		errs := make([]oracle.FetchError, len(tickers))
		for i, t := range tickers {
			errs[i] = oracle.FetchError{Ticker: t, Err: errors.New("unavailable")}
		}
		return nil, errs
	}
	return f.FetchQuotesFn(ctx, tickers)
}

var priceNow = time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

func newTestPriceService(t *testing.T, provider oracle.Provider, c cache.Cache) (*priceService, func()) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewPriceService(db, provider, c, PriceServiceConfig{
		CacheTTL:    time.Minute,
		Freshness:   15 * time.Minute,
		BatchSize:   2,
		Concurrency: 2,
		Benchmarks:  []string{"VOO", "QQQ"},
	}).(*priceService)
	svc.now = func() time.Time { return priceNow }
	return svc, func() { testutil.TeardownTestDB(t, db) }
}

func TestPriceService_GetPrice(t *testing.T) {
	t.Run("uses_stored_close_within_lookback", func(t *testing.T) {
		provider := &fakeProvider{}
		svc, teardown := newTestPriceService(t, provider, cache.NewMemory())
		defer teardown()
		testutil.CreateTestPrice(t, svc.db, "VOO", testutil.Date(2024, 3, 14), "359.5", priceNow)

		// Saturday: Thursday's close is the most recent.
		price, ok := svc.GetPrice(context.Background(), "voo", testutil.Date(2024, 3, 16))
		if !ok {
			t.Fatal("expected a price")
		}
		testutil.AssertDecimal(t, price, "359.5")
		if provider.historyCalls != 0 {
			t.Errorf("provider should not be called, got %d calls", provider.historyCalls)
		}
	})

	t.Run("fetches_and_stores_missing_history", func(t *testing.T) {
		provider := &fakeProvider{
			FetchHistoryFn: func(_ context.Context, ticker string, from, to time.Time) ([]oracle.PricePoint, error) {
				return []oracle.PricePoint{
					{Date: testutil.Date(2024, 1, 2), Close: dec("350")},
					{Date: testutil.Date(2024, 1, 3), Close: dec("351")},
				}, nil
			},
		}
		svc, teardown := newTestPriceService(t, provider, cache.NewMemory())
		defer teardown()

		price, ok := svc.GetPrice(context.Background(), "VOO", testutil.Date(2024, 1, 2))
		if !ok {
			t.Fatal("expected a price")
		}
		testutil.AssertDecimal(t, price, "350")

		var stored int64
		svc.db.Model(&models.SecurityPrice{}).Where("ticker = ?", "VOO").Count(&stored)
		if stored != 2 {
			t.Errorf("expected 2 stored closes, got %d", stored)
		}

		// Served from the cache.
		_, _ = svc.GetPrice(context.Background(), "VOO", testutil.Date(2024, 1, 2))
		if provider.historyCalls != 1 {
			t.Errorf("expected one provider call, got %d", provider.historyCalls)
		}
	})

	t.Run("unavailable_is_not_an_error", func(t *testing.T) {
		provider := &fakeProvider{}
		svc, teardown := newTestPriceService(t, provider, cache.NewMemory())
		defer teardown()

		if _, ok := svc.GetPrice(context.Background(), "NOPE", testutil.Date(2024, 1, 2)); ok {
			t.Fatal("expected no price")
		}
		// The miss is cached.
		_, _ = svc.GetPrice(context.Background(), "NOPE", testutil.Date(2024, 1, 2))
		if provider.historyCalls != 1 {
			t.Errorf("expected one provider call, got %d", provider.historyCalls)
		}
	})
}

func TestPriceService_GetCurrentPrices(t *testing.T) {
	t.Run("fresh_stored_price_skips_provider", func(t *testing.T) {
		provider := &fakeProvider{}
		svc, teardown := newTestPriceService(t, provider, cache.Nop{})
		defer teardown()
		testutil.CreateTestPrice(t, svc.db, "AAPL", testutil.Date(2024, 6, 10), "190", priceNow.Add(-time.Minute))

		prices := svc.GetCurrentPrices(context.Background(), []string{"AAPL"}, false)
		testutil.AssertDecimal(t, prices["AAPL"], "190")
		if len(provider.quoteBatches) != 0 {
			t.Errorf("expected no quote requests, got %v", provider.quoteBatches)
		}
	})

	t.Run("batches_missing_tickers", func(t *testing.T) {
		provider := &fakeProvider{
			FetchQuotesFn: func(_ context.Context, tickers []string) ([]oracle.Quote, []oracle.FetchError) {
				var quotes []oracle.Quote
				var errs []oracle.FetchError
				for _, t := range tickers {
					if t == "BAD" {
						errs = append(errs, oracle.FetchError{Ticker: t, Err: errors.New("unknown symbol")})
						continue
					}
					quotes = append(quotes, oracle.Quote{Ticker: t, Price: decimal.NewFromInt(100), AsOf: priceNow})
				}
				return quotes, errs
			},
		}
		svc, teardown := newTestPriceService(t, provider, cache.NewMemory())
		defer teardown()

		prices := svc.GetCurrentPrices(context.Background(), []string{"AAPL", "MSFT", "BAD", "VOO", "aapl"}, false)
		if len(prices) != 3 {
			t.Fatalf("expected 3 prices, got %v", prices)
		}
		if _, ok := prices["BAD"]; ok {
			t.Error("failed ticker must be absent")
		}
		if len(provider.quoteBatches) != 2 {
			t.Errorf("expected 2 batches of at most 2, got %v", provider.quoteBatches)
		}

		var stored models.SecurityPrice
		testutil.AssertNoError(t, svc.db.Where("ticker = ?", "MSFT").First(&stored).Error)
		if stored.Source != "fake" {
			t.Errorf("expected source fake, got %s", stored.Source)
		}
	})

	t.Run("stale_fallback", func(t *testing.T) {
		provider := &fakeProvider{}
		svc, teardown := newTestPriceService(t, provider, cache.Nop{})
		defer teardown()
		testutil.CreateTestPrice(t, svc.db, "AAPL", testutil.Date(2024, 5, 1), "170", priceNow.Add(-30*24*time.Hour))

		if _, ok := svc.GetCurrentPrice(context.Background(), "AAPL", false); ok {
			t.Error("stale close must not count as current")
		}
		price, ok := svc.GetCurrentPrice(context.Background(), "AAPL", true)
		if !ok {
			t.Fatal("expected stale price")
		}
		testutil.AssertDecimal(t, price, "170")
	})

	t.Run("quote_updates_existing_close", func(t *testing.T) {
		provider := &fakeProvider{
			FetchQuotesFn: func(_ context.Context, tickers []string) ([]oracle.Quote, []oracle.FetchError) {
				return []oracle.Quote{{Ticker: "AAPL", Price: dec("195"), AsOf: priceNow}}, nil
			},
		}
		svc, teardown := newTestPriceService(t, provider, cache.Nop{})
		defer teardown()
		testutil.CreateTestPrice(t, svc.db, "AAPL", testutil.Date(2024, 6, 10), "180", priceNow.Add(-time.Hour))

		price, ok := svc.GetCurrentPrice(context.Background(), "AAPL", false)
		if !ok {
			t.Fatal("expected a price")
		}
		testutil.AssertDecimal(t, price, "195")

		var rows []models.SecurityPrice
		svc.db.Where("ticker = ?", "AAPL").Find(&rows)
		if len(rows) != 1 {
			t.Fatalf("expected upsert into the existing row, got %d rows", len(rows))
		}
		testutil.AssertDecimal(t, rows[0].Close, "195")
	})
}

func TestPriceService_GetDividendHistory(t *testing.T) {
	t.Run("fetches_once_then_serves_stored", func(t *testing.T) {
		provider := &fakeProvider{
			FetchDivsFn: func(_ context.Context, ticker string, from, to time.Time) ([]oracle.DividendPoint, error) {
				return []oracle.DividendPoint{
					{Date: testutil.Date(2024, 3, 22), Amount: dec("1.54")},
					{Date: testutil.Date(2023, 12, 21), Amount: dec("1.80")},
				}, nil
			},
		}
		svc, teardown := newTestPriceService(t, provider, cache.Nop{})
		defer teardown()

		events, err := svc.GetDividendHistory(context.Background(), "VOO")
		testutil.AssertNoError(t, err)
		if len(events) != 2 || !events[0].Date.Equal(testutil.Date(2023, 12, 21)) {
			t.Fatalf("expected ascending history, got %+v", events)
		}
		testutil.AssertDecimal(t, events[1].PerShare, "1.54")

		_, err = svc.GetDividendHistory(context.Background(), "VOO")
		testutil.AssertNoError(t, err)
		if provider.dividendCalls != 1 {
			t.Errorf("expected a single fetch, got %d", provider.dividendCalls)
		}
	})

	t.Run("provider_failure_without_stored_rows", func(t *testing.T) {
		provider := &fakeProvider{
			FetchDivsFn: func(context.Context, string, time.Time, time.Time) ([]oracle.DividendPoint, error) {
				return nil, errors.New("rate limited")
			},
		}
		svc, teardown := newTestPriceService(t, provider, cache.Nop{})
		defer teardown()

		_, err := svc.GetDividendHistory(context.Background(), "VOO")
		testutil.AssertAppError(t, err, "PRICE_UNAVAILABLE")
	})

	t.Run("provider_failure_keeps_stored_rows", func(t *testing.T) {
		provider := &fakeProvider{
			FetchDivsFn: func(context.Context, string, time.Time, time.Time) ([]oracle.DividendPoint, error) {
				return nil, errors.New("rate limited")
			},
		}
		svc, teardown := newTestPriceService(t, provider, cache.Nop{})
		defer teardown()
		testutil.CreateTestBenchmarkDividend(t, svc.db, "VOO", testutil.Date(2023, 12, 21), "1.80", priceNow.Add(-72*time.Hour))

		events, err := svc.GetDividendHistory(context.Background(), "VOO")
		testutil.AssertNoError(t, err)
		if len(events) != 1 {
			t.Errorf("expected stored history, got %+v", events)
		}
	})
}

func TestPriceService_RefreshAndTracking(t *testing.T) {
	var gotFrom time.Time
	provider := &fakeProvider{
		FetchHistoryFn: func(_ context.Context, ticker string, from, to time.Time) ([]oracle.PricePoint, error) {
			gotFrom = from
			return []oracle.PricePoint{{Date: testutil.Date(2024, 6, 7), Close: dec("470")}}, nil
		},
	}
	c := cache.NewMemory()
	svc, teardown := newTestPriceService(t, provider, c)
	defer teardown()
	testutil.CreateTestPrice(t, svc.db, "VOO", testutil.Date(2024, 6, 3), "465", priceNow.Add(-96*time.Hour))
	c.Set(cache.QuoteKey("VOO"), dec("1"), time.Hour)

	testutil.AssertNoError(t, svc.RefreshTicker(context.Background(), "VOO"))
	if !gotFrom.Equal(testutil.Date(2024, 6, 3)) {
		t.Errorf("expected incremental fetch from the last stored close, got %s", gotFrom)
	}
	if _, ok := c.Get(cache.QuoteKey("VOO")); ok {
		t.Error("expected cached quote to be dropped")
	}

	portfolio := testutil.CreateTestPortfolio(t, svc.db)
	testutil.CreateTestTransaction(t, svc.db, portfolio.ID, "AAPL", models.TransactionTypeBuy, testutil.Date(2024, 1, 2), "100", "1")
	testutil.CreateTestTransaction(t, svc.db, portfolio.ID, "VOO", models.TransactionTypeBuy, testutil.Date(2024, 1, 2), "400", "1")

	tickers, err := svc.TrackedTickers()
	testutil.AssertNoError(t, err)
	want := []string{"AAPL", "QQQ", "VOO"}
	if len(tickers) != len(want) {
		t.Fatalf("expected %v, got %v", want, tickers)
	}
	for i := range want {
		if tickers[i] != want[i] {
			t.Errorf("expected %v, got %v", want, tickers)
			break
		}
	}
}
