package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	eodhdBaseURL       = "https://eodhd.com/api"
	eodhdDefaultRate   = 5 // requests per second
	eodhdDefaultSuffix = "US"
	eodhdBatchMax      = 15
)

// flexDecimal accepts a JSON number, a numeric string, or "NA".
type flexDecimal struct {
	decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" || s == "NA" || s == "N/A" {
		f.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("cannot unmarshal %s into decimal", string(data))
	}
	f.Decimal = d
	return nil
}

type eodhdBar struct {
	Date  string      `json:"date"`
	Close flexDecimal `json:"close"`
}

type eodhdDividend struct {
	Date  string      `json:"date"`
	Value flexDecimal `json:"value"`
}

type eodhdRealTime struct {
	Code      string      `json:"code"`
	Timestamp int64       `json:"timestamp"`
	Close     flexDecimal `json:"close"`
}

// EODHDProvider fetches market data from the EODHD API.
type EODHDProvider struct {
	baseURL    string
	apiKey     string
	exchange   string
	batchSize  int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// EODHDOption configures an EODHDProvider.
type EODHDOption func(*EODHDProvider)

// WithEODHDBaseURL sets the base URL
func WithEODHDBaseURL(baseURL string) EODHDOption {
	return func(p *EODHDProvider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithEODHDRateLimit sets the rate limit in requests per second.
func WithEODHDRateLimit(requestsPerSecond int) EODHDOption {
	return func(p *EODHDProvider) {
		if requestsPerSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithEODHDExchange sets the exchange suffix appended to bare tickers.
func WithEODHDExchange(exchange string) EODHDOption {
	return func(p *EODHDProvider) {
		p.exchange = exchange
	}
}

// WithEODHDBatchSize sets how many tickers go into one real-time request.
func WithEODHDBatchSize(n int) EODHDOption {
	return func(p *EODHDProvider) {
		if n > 0 && n <= eodhdBatchMax {
			p.batchSize = n
		}
	}
}

// NewEODHDProvider creates a new EODHD provider.
func NewEODHDProvider(apiKey string, httpClient *http.Client, opts ...EODHDOption) *EODHDProvider {
	p := &EODHDProvider{
		baseURL:    eodhdBaseURL,
		apiKey:     apiKey,
		exchange:   eodhdDefaultSuffix,
		batchSize:  eodhdBatchMax,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(eodhdDefaultRate), eodhdDefaultRate),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider's short name.
func (p *EODHDProvider) Name() string { return "eodhd" }

// APIError represents a non-200 EODHD response.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// symbol maps a bare ticker to EODHD's TICKER.EXCHANGE form.
func (p *EODHDProvider) symbol(ticker string) string {
	if strings.Contains(ticker, ".") || p.exchange == "" {
		return ticker
	}
	return ticker + "." + p.exchange
}

// FetchHistory returns daily closes from /eod.
func (p *EODHDProvider) FetchHistory(ctx context.Context, ticker string, from, to time.Time) ([]PricePoint, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	params.Set("from", day(from).Format("2006-01-02"))
	params.Set("to", day(to).Format("2006-01-02"))

	var bars []eodhdBar
	if err := p.get(ctx, "/eod/"+p.symbol(ticker), params, &bars); err != nil {
		return nil, err
	}

	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		d, err := time.Parse("2006-01-02", b.Date)
		if err != nil || !b.Close.IsPositive() {
			continue
		}
		points = append(points, PricePoint{Date: d, Close: b.Close.Decimal})
	}
	return points, nil
}

// FetchDividends returns per-share dividends from /div keyed by ex-date.
func (p *EODHDProvider) FetchDividends(ctx context.Context, ticker string, from, to time.Time) ([]DividendPoint, error) {
	params := url.Values{}
	params.Set("from", day(from).Format("2006-01-02"))
	params.Set("to", day(to).Format("2006-01-02"))

	var divs []eodhdDividend
	if err := p.get(ctx, "/div/"+p.symbol(ticker), params, &divs); err != nil {
		return nil, err
	}

	points := make([]DividendPoint, 0, len(divs))
	for _, dv := range divs {
		d, err := time.Parse("2006-01-02", dv.Date)
		if err != nil || !dv.Value.IsPositive() {
			continue
		}
		points = append(points, DividendPoint{Date: d, Amount: dv.Value.Decimal})
	}
	return points, nil
}

// FetchQuotes uses /real-time with the extra tickers in the "s" parameter.
func (p *EODHDProvider) FetchQuotes(ctx context.Context, tickers []string) ([]Quote, []FetchError) {
	var quotes []Quote
	var fetchErrors []FetchError
	for _, batch := range Chunk(tickers, p.batchSize) {
		q, errs := p.fetchRealTime(ctx, batch)
		quotes = append(quotes, q...)
		fetchErrors = append(fetchErrors, errs...)
	}
	return quotes, fetchErrors
}

func (p *EODHDProvider) fetchRealTime(ctx context.Context, tickers []string) ([]Quote, []FetchError) {
	params := url.Values{}
	if len(tickers) > 1 {
		extra := make([]string, 0, len(tickers)-1)
		for _, t := range tickers[1:] {
			extra = append(extra, p.symbol(t))
		}
		params.Set("s", strings.Join(extra, ","))
	}

	// A single ticker yields an object, several yield an array.
	var raw json.RawMessage
	if err := p.get(ctx, "/real-time/"+p.symbol(tickers[0]), params, &raw); err != nil {
		return nil, batchErrors(tickers, err)
	}
	var rows []eodhdRealTime
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, batchErrors(tickers, fmt.Errorf("decoding response: %w", err))
		}
	} else {
		var one eodhdRealTime
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, batchErrors(tickers, fmt.Errorf("decoding response: %w", err))
		}
		rows = []eodhdRealTime{one}
	}

	byCode := make(map[string]eodhdRealTime, len(rows))
	for _, r := range rows {
		byCode[strings.ToUpper(r.Code)] = r
	}

	var quotes []Quote
	var fetchErrors []FetchError
	for _, t := range tickers {
		r, ok := byCode[strings.ToUpper(p.symbol(t))]
		if !ok {
			fetchErrors = append(fetchErrors, FetchError{Ticker: t, Err: fmt.Errorf("symbol %s not found in response", t)})
			continue
		}
		if !r.Close.IsPositive() {
			fetchErrors = append(fetchErrors, FetchError{Ticker: t, Err: fmt.Errorf("non-positive price for %s", t)})
			continue
		}
		asOf := time.Now().UTC()
		if r.Timestamp > 0 {
			asOf = time.Unix(r.Timestamp, 0).UTC()
		}
		quotes = append(quotes, Quote{Ticker: t, Price: r.Close.Decimal, AsOf: asOf})
	}
	return quotes, fetchErrors
}

// get performs a rate-limited GET request
func (p *EODHDProvider) get(ctx context.Context, path string, params url.Values, result any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", p.apiKey)
	params.Set("fmt", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
