package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folio/internal/cache"
	apperrors "folio/internal/errors"
	"folio/internal/logger"
	"folio/internal/models"
	"folio/internal/oracle"
)

const (
	// priceLookback is how far before a date a close may come from.
	priceLookback = 7 * 24 * time.Hour
	// initialHistory is fetched for tickers with no stored closes.
	initialHistory = 10 * 365 * 24 * time.Hour
	// dividendRefreshAge bounds how old a stored dividend history may be.
	dividendRefreshAge = 24 * time.Hour
)

// PriceServiceConfig tunes lookups and provider fan-out.
type PriceServiceConfig struct {
	CacheTTL       time.Duration
	Freshness      time.Duration
	RequestTimeout time.Duration
	BatchSize      int
	Concurrency    int
	Benchmarks     []string
}

// missingPrice is cached for lookups the provider could not answer.
type missingPrice struct{}

// priceService answers price lookups from the cache, then the security_prices
// table, then the provider. Provider failures degrade to "unavailable".
type priceService struct {
	db       *gorm.DB
	provider oracle.Provider
	cache    cache.Cache
	cfg      PriceServiceConfig
	now      func() time.Time
}

// NewPriceService creates a new PriceServicer.
func NewPriceService(db *gorm.DB, provider oracle.Provider, c cache.Cache, cfg PriceServiceConfig) PriceServicer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = 15 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &priceService{db: db, provider: provider, cache: c, cfg: cfg, now: time.Now}
}

// GetPrice returns the close on date, or the most recent close in the seven
// days before it.
func (s *priceService) GetPrice(ctx context.Context, ticker string, date time.Time) (decimal.Decimal, bool) {
	ticker = normalizeTicker(ticker)
	date = models.NormalizeDate(date)
	key := cache.PriceKey(ticker, date)

	if v, ok := s.cache.Get(key); ok {
		if price, ok := v.(decimal.Decimal); ok {
			return price, true
		}
		return decimal.Zero, false
	}

	if price, ok := s.storedCloseNear(ticker, date); ok {
		s.cache.Set(key, price, s.cfg.CacheTTL)
		return price, true
	}

	if err := s.fetchHistory(ctx, ticker, date.Add(-priceLookback), s.today()); err != nil {
		logger.Get().Warnw("price history fetch failed", "ticker", ticker, "date", dateKey(date), "error", err)
	}
	if price, ok := s.storedCloseNear(ticker, date); ok {
		s.cache.Set(key, price, s.cfg.CacheTTL)
		return price, true
	}

	s.cache.Set(key, missingPrice{}, s.cfg.CacheTTL)
	return decimal.Zero, false
}

// GetPrices looks up one date for several tickers concurrently. Tickers
// without a price are absent from the result.
func (s *priceService) GetPrices(ctx context.Context, tickers []string, date time.Time) map[string]decimal.Decimal {
	var mu sync.Mutex
	result := make(map[string]decimal.Decimal, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, t := range uniqueTickers(tickers) {
		g.Go(func() error {
			if price, ok := s.GetPrice(gctx, t, date); ok {
				mu.Lock()
				result[t] = price
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return result
}

// GetCurrentPrice returns the latest price. With allowStale the newest stored
// close of any age is acceptable; otherwise it must have been fetched within
// the freshness window or a new quote is requested.
func (s *priceService) GetCurrentPrice(ctx context.Context, ticker string, allowStale bool) (decimal.Decimal, bool) {
	prices := s.GetCurrentPrices(ctx, []string{ticker}, allowStale)
	price, ok := prices[normalizeTicker(ticker)]
	return price, ok
}

// GetCurrentPrices resolves what it can locally and fetches the rest in
// chunks of BatchSize, Concurrency chunks at a time. Failed tickers are
// absent from the result.
func (s *priceService) GetCurrentPrices(ctx context.Context, tickers []string, allowStale bool) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(tickers))
	var missing []string

	for _, t := range uniqueTickers(tickers) {
		if v, ok := s.cache.Get(cache.QuoteKey(t)); ok {
			if price, ok := v.(decimal.Decimal); ok {
				result[t] = price
				continue
			}
		}
		if price, ok := s.storedLatest(t, allowStale); ok {
			result[t] = price
			continue
		}
		missing = append(missing, t)
	}
	if len(missing) == 0 {
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, chunk := range oracle.Chunk(missing, s.cfg.BatchSize) {
		g.Go(func() error {
			fetched := s.fetchQuotes(gctx, chunk)
			mu.Lock()
			for t, p := range fetched {
				result[t] = p
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if allowStale {
		// The provider failed for some tickers; any stored close still counts.
		for _, t := range missing {
			if _, ok := result[t]; !ok {
				if price, ok := s.storedLatest(t, true); ok {
					result[t] = price
				}
			}
		}
	}
	return result
}

// GetDividendHistory returns per-share dividends ascending by date. The
// stored history is refreshed from the provider when older than a day.
func (s *priceService) GetDividendHistory(ctx context.Context, ticker string) ([]DividendEvent, error) {
	ticker = normalizeTicker(ticker)
	key := cache.DividendHistoryKey(ticker)
	if v, ok := s.cache.Get(key); ok {
		if events, ok := v.([]DividendEvent); ok {
			return events, nil
		}
	}

	var newest models.BenchmarkDividend
	err := s.db.Where("ticker = ?", ticker).Order("fetched_at DESC").First(&newest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	stale := err != nil || s.now().Sub(newest.FetchedAt) > dividendRefreshAge

	var fetchErr error
	if stale {
		fetchErr = s.fetchDividends(ctx, ticker, s.today().Add(-initialHistory), s.today())
		if fetchErr != nil {
			logger.Get().Warnw("dividend history fetch failed", "ticker", ticker, "error", fetchErr)
		}
	}

	var rows []models.BenchmarkDividend
	if err := s.db.Where("ticker = ?", ticker).Order("ex_date ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(rows) == 0 && fetchErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrPriceUnavailable, fetchErr)
	}

	events := make([]DividendEvent, len(rows))
	for i, r := range rows {
		events[i] = DividendEvent{Date: models.NormalizeDate(r.ExDate), PerShare: r.Amount}
	}
	s.cache.Set(key, events, s.cfg.CacheTTL)
	return events, nil
}

// RefreshTicker extends the stored history of ticker up to today and reloads
// its dividends. Cached lookups for the ticker are dropped.
func (s *priceService) RefreshTicker(ctx context.Context, ticker string) error {
	ticker = normalizeTicker(ticker)
	today := s.today()
	from := today.Add(-initialHistory)

	var last models.SecurityPrice
	err := s.db.Where("ticker = ?", ticker).Order("date DESC").First(&last).Error
	switch {
	case err == nil:
		from = models.NormalizeDate(last.Date)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.fetchHistory(ctx, ticker, from, today); err != nil {
		return err
	}
	if err := s.fetchDividends(ctx, ticker, today.Add(-initialHistory), today); err != nil {
		logger.Get().Warnw("dividend refresh failed", "ticker", ticker, "error", err)
	}

	s.cache.DeletePrefix("price:" + ticker + ":")
	s.cache.Delete(cache.QuoteKey(ticker))
	s.cache.Delete(cache.DividendHistoryKey(ticker))
	return nil
}

// TrackedTickers returns every traded ticker plus the configured benchmarks.
func (s *priceService) TrackedTickers() ([]string, error) {
	var traded []string
	if err := s.db.Model(&models.Transaction{}).Distinct().Pluck("ticker", &traded).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	all := uniqueTickers(append(traded, s.cfg.Benchmarks...))
	sort.Strings(all)
	return all, nil
}

func (s *priceService) today() time.Time {
	return models.NormalizeDate(s.now().UTC())
}

func (s *priceService) storedCloseNear(ticker string, date time.Time) (decimal.Decimal, bool) {
	var row models.SecurityPrice
	err := s.db.Where("ticker = ? AND date <= ? AND date >= ?", ticker, date, date.Add(-priceLookback)).
		Order("date DESC").First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Get().Errorw("price lookup failed", "ticker", ticker, "error", err)
		}
		return decimal.Zero, false
	}
	return row.Close, true
}

func (s *priceService) storedLatest(ticker string, allowStale bool) (decimal.Decimal, bool) {
	q := s.db.Where("ticker = ?", ticker)
	if !allowStale {
		q = q.Where("fetched_at >= ?", s.now().Add(-s.cfg.Freshness))
	}
	var row models.SecurityPrice
	if err := q.Order("date DESC").First(&row).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Get().Errorw("latest price lookup failed", "ticker", ticker, "error", err)
		}
		return decimal.Zero, false
	}
	return row.Close, true
}

func (s *priceService) fetchQuotes(ctx context.Context, tickers []string) map[string]decimal.Decimal {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	quotes, fetchErrors := s.provider.FetchQuotes(ctx, tickers)
	for _, fe := range fetchErrors {
		logger.Get().Warnw("quote fetch failed", "ticker", fe.Ticker, "provider", s.provider.Name(), "error", fe.Err)
	}

	now := s.now().UTC()
	out := make(map[string]decimal.Decimal, len(quotes))
	rows := make([]models.SecurityPrice, 0, len(quotes))
	for _, q := range quotes {
		t := normalizeTicker(q.Ticker)
		out[t] = q.Price
		rows = append(rows, models.SecurityPrice{
			Ticker:    t,
			Date:      models.NormalizeDate(q.AsOf),
			Close:     q.Price,
			Source:    s.provider.Name(),
			FetchedAt: now,
		})
		s.cache.Set(cache.QuoteKey(t), q.Price, min(s.cfg.CacheTTL, s.cfg.Freshness))
	}
	if err := s.storePrices(rows); err != nil {
		logger.Get().Errorw("failed to store quotes", "error", err)
	}
	return out
}

func (s *priceService) fetchHistory(ctx context.Context, ticker string, from, to time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	points, err := s.provider.FetchHistory(ctx, ticker, from, to)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPriceUnavailable, err)
	}

	now := s.now().UTC()
	rows := make([]models.SecurityPrice, 0, len(points))
	for _, p := range points {
		rows = append(rows, models.SecurityPrice{
			Ticker:    ticker,
			Date:      models.NormalizeDate(p.Date),
			Close:     p.Close,
			Source:    s.provider.Name(),
			FetchedAt: now,
		})
	}
	if err := s.storePrices(rows); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *priceService) fetchDividends(ctx context.Context, ticker string, from, to time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	points, err := s.provider.FetchDividends(ctx, ticker, from, to)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPriceUnavailable, err)
	}

	now := s.now().UTC()
	rows := make([]models.BenchmarkDividend, 0, len(points))
	for _, p := range points {
		rows = append(rows, models.BenchmarkDividend{
			Ticker:    ticker,
			ExDate:    models.NormalizeDate(p.Date),
			Amount:    p.Amount,
			FetchedAt: now,
		})
	}
	if len(rows) == 0 {
		// Mark the history as checked so callers don't refetch on every lookup.
		return s.db.Model(&models.BenchmarkDividend{}).Where("ticker = ?", ticker).Update("fetched_at", now).Error
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "ex_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "fetched_at"}),
	}).CreateInBatches(rows, 200).Error
}

// storePrices upserts closes keyed by (ticker, date).
func (s *priceService) storePrices(rows []models.SecurityPrice) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"close", "source", "fetched_at"}),
	}).CreateInBatches(rows, 200).Error
}

func uniqueTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = normalizeTicker(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
