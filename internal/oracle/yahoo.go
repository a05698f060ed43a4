package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	yahooQuoteURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooBatchMax = 50
	yahooUA       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// yahooQuoteResponse is the top-level v7 quote response.
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuoteResult `json:"result"`
		Error  *json.RawMessage   `json:"error"`
	} `json:"quoteResponse"`
}

type yahooQuoteResult struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
}

// yahooChartResponse is the v8 chart response with dividend events.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooProvider fetches prices and dividends from Yahoo Finance.
type YahooProvider struct {
	httpClient *http.Client
	quoteURL   string
	chartURL   string
	batchSize  int
}

// YahooOption configures a YahooProvider.
type YahooOption func(*YahooProvider)

// WithYahooBaseURLs overrides the quote and chart endpoints.
func WithYahooBaseURLs(quoteURL, chartURL string) YahooOption {
	return func(p *YahooProvider) {
		p.quoteURL = quoteURL
		p.chartURL = chartURL
	}
}

// WithYahooBatchSize sets how many tickers go into one quote request.
func WithYahooBatchSize(n int) YahooOption {
	return func(p *YahooProvider) {
		if n > 0 && n <= yahooBatchMax {
			p.batchSize = n
		}
	}
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider(httpClient *http.Client, opts ...YahooOption) *YahooProvider {
	p := &YahooProvider{
		httpClient: httpClient,
		quoteURL:   yahooQuoteURL,
		chartURL:   yahooChartURL,
		batchSize:  yahooBatchMax,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider's short name.
func (p *YahooProvider) Name() string { return "yahoo" }

// FetchQuotes fetches current prices in batches. A failed batch marks every
// ticker of that batch as failed; other batches are unaffected.
func (p *YahooProvider) FetchQuotes(ctx context.Context, tickers []string) ([]Quote, []FetchError) {
	var quotes []Quote
	var fetchErrors []FetchError
	for _, batch := range Chunk(tickers, p.batchSize) {
		q, errs := p.fetchQuoteBatch(ctx, batch)
		quotes = append(quotes, q...)
		fetchErrors = append(fetchErrors, errs...)
	}
	return quotes, fetchErrors
}

func (p *YahooProvider) fetchQuoteBatch(ctx context.Context, tickers []string) ([]Quote, []FetchError) {
	var resp yahooQuoteResponse
	if err := p.getJSON(ctx, p.quoteURL+"?symbols="+url.QueryEscape(strings.Join(tickers, ",")), &resp); err != nil {
		return nil, batchErrors(tickers, err)
	}

	byTicker := make(map[string]yahooQuoteResult, len(resp.QuoteResponse.Result))
	for _, r := range resp.QuoteResponse.Result {
		byTicker[strings.ToUpper(r.Symbol)] = r
	}

	var quotes []Quote
	var fetchErrors []FetchError
	for _, t := range tickers {
		r, found := byTicker[strings.ToUpper(t)]
		if !found {
			fetchErrors = append(fetchErrors, FetchError{Ticker: t, Err: fmt.Errorf("symbol %s not found in response", t)})
			continue
		}
		if r.RegularMarketPrice <= 0 {
			fetchErrors = append(fetchErrors, FetchError{Ticker: t, Err: fmt.Errorf("non-positive price for %s", t)})
			continue
		}
		asOf := time.Now().UTC()
		if r.RegularMarketTime > 0 {
			asOf = time.Unix(r.RegularMarketTime, 0).UTC()
		}
		quotes = append(quotes, Quote{Ticker: t, Price: decimal.NewFromFloat(r.RegularMarketPrice), AsOf: asOf})
	}
	return quotes, fetchErrors
}

// FetchHistory returns daily closes from the chart endpoint. Null closes
// (halted sessions) are skipped.
func (p *YahooProvider) FetchHistory(ctx context.Context, ticker string, from, to time.Time) ([]PricePoint, error) {
	chart, err := p.fetchChart(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	res := chart.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, nil
	}
	closes := res.Indicators.Quote[0].Close

	var points []PricePoint
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		d := day(time.Unix(ts, 0))
		if d.Before(day(from)) || d.After(day(to)) {
			continue
		}
		points = append(points, PricePoint{Date: d, Close: decimal.NewFromFloat(*closes[i])})
	}
	return points, nil
}

// FetchDividends returns dividend events from the chart endpoint.
func (p *YahooProvider) FetchDividends(ctx context.Context, ticker string, from, to time.Time) ([]DividendPoint, error) {
	chart, err := p.fetchChart(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	var points []DividendPoint
	for _, div := range chart.Chart.Result[0].Events.Dividends {
		if div.Amount <= 0 {
			continue
		}
		d := day(time.Unix(div.Date, 0))
		if d.Before(day(from)) || d.After(day(to)) {
			continue
		}
		points = append(points, DividendPoint{Date: d, Amount: decimal.NewFromFloat(div.Amount)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func (p *YahooProvider) fetchChart(ctx context.Context, ticker string, from, to time.Time) (*yahooChartResponse, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(day(from).Unix(), 10))
	params.Set("period2", strconv.FormatInt(day(to).Add(24*time.Hour).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "div")

	var chart yahooChartResponse
	if err := p.getJSON(ctx, p.chartURL+"/"+url.PathEscape(ticker)+"?"+params.Encode(), &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error for %s: %s", ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart returned no result for %s", ticker)
	}
	return &chart, nil
}

func (p *YahooProvider) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
