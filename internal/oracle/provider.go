// Package oracle fetches closing prices, quotes and dividend histories from
// external market-data providers.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a daily close.
type PricePoint struct {
	Date  time.Time
	Close decimal.Decimal
}

// DividendPoint is a per-share cash dividend keyed by ex-date.
type DividendPoint struct {
	Date   time.Time
	Amount decimal.Decimal
}

// Quote is the latest traded price of a ticker.
type Quote struct {
	Ticker string
	Price  decimal.Decimal
	AsOf   time.Time
}

// FetchError represents a failed fetch for a specific ticker.
type FetchError struct {
	Ticker string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.Ticker, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Provider fetches market data for tickers.
type Provider interface {
	// Name returns the provider's short name, stored as the price source.
	Name() string

	// FetchHistory returns daily closes in [from, to], ascending by date.
	FetchHistory(ctx context.Context, ticker string, from, to time.Time) ([]PricePoint, error)

	// FetchDividends returns per-share dividends in [from, to], ascending by date.
	FetchDividends(ctx context.Context, ticker string, from, to time.Time) ([]DividendPoint, error)

	// FetchQuotes fetches current prices for the given tickers.
	// A provider should return as many quotes as possible, even if some fail.
	FetchQuotes(ctx context.Context, tickers []string) ([]Quote, []FetchError)
}

// Chunk splits tickers into consecutive slices of at most size elements.
func Chunk(tickers []string, size int) [][]string {
	if size <= 0 {
		size = len(tickers)
	}
	var out [][]string
	for i := 0; i < len(tickers); i += size {
		end := min(i+size, len(tickers))
		out = append(out, tickers[i:end])
	}
	return out
}

// batchErrors creates FetchErrors for all tickers in a failed batch.
func batchErrors(tickers []string, err error) []FetchError {
	errs := make([]FetchError, len(tickers))
	for i, t := range tickers {
		errs[i] = FetchError{Ticker: t, Err: err}
	}
	return errs
}

// day truncates t to midnight UTC.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
