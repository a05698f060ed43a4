package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newQuoteMockServer serves v7 quote responses; tickers missing from priceMap are omitted.
func newQuoteMockServer(priceMap map[string]float64, calls *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		var resp yahooQuoteResponse
		for _, s := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			if price, ok := priceMap[s]; ok {
				resp.QuoteResponse.Result = append(resp.QuoteResponse.Result, yahooQuoteResult{
					Symbol:             s,
					RegularMarketPrice: price,
					RegularMarketTime:  1700000000,
				})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

const chartBody = `{"chart":{"result":[{
	"timestamp":[1672756200,1672842600,1672929000],
	"indicators":{"quote":[{"close":[351.2,null,349.5]}]},
	"events":{"dividends":{
		"1679578200":{"amount":1.4386,"date":1679578200},
		"1672842600":{"amount":1.6677,"date":1672842600}
	}}
}],"error":null}}`

func newChartMockServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestYahooProvider_FetchQuotes(t *testing.T) {
	t.Run("partial_failure", func(t *testing.T) {
		srv := newQuoteMockServer(map[string]float64{"VOO": 410.5, "QQQ": 0}, nil)
		defer srv.Close()

		p := NewYahooProvider(srv.Client(), WithYahooBaseURLs(srv.URL, srv.URL))
		quotes, errs := p.FetchQuotes(context.Background(), []string{"VOO", "QQQ", "NOPE"})

		if len(quotes) != 1 || quotes[0].Ticker != "VOO" || quotes[0].Price.String() != "410.5" {
			t.Fatalf("unexpected quotes %+v", quotes)
		}
		if len(errs) != 2 {
			t.Fatalf("expected 2 errors, got %d", len(errs))
		}
	})

	t.Run("batches_requests", func(t *testing.T) {
		var calls atomic.Int32
		prices := map[string]float64{}
		tickers := make([]string, 0, 7)
		for _, s := range []string{"A", "B", "C", "D", "E", "F", "G"} {
			prices[s] = 10
			tickers = append(tickers, s)
		}
		srv := newQuoteMockServer(prices, &calls)
		defer srv.Close()

		p := NewYahooProvider(srv.Client(), WithYahooBaseURLs(srv.URL, srv.URL), WithYahooBatchSize(3))
		quotes, errs := p.FetchQuotes(context.Background(), tickers)
		if len(quotes) != 7 || len(errs) != 0 {
			t.Fatalf("expected 7 quotes, got %d (errors %d)", len(quotes), len(errs))
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 batch requests, got %d", calls.Load())
		}
	})

	t.Run("server_error_fails_whole_batch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		p := NewYahooProvider(srv.Client(), WithYahooBaseURLs(srv.URL, srv.URL))
		quotes, errs := p.FetchQuotes(context.Background(), []string{"VOO", "QQQ"})
		if len(quotes) != 0 || len(errs) != 2 {
			t.Errorf("expected 0 quotes and 2 errors, got %d and %d", len(quotes), len(errs))
		}
	})
}

func TestYahooProvider_FetchHistory(t *testing.T) {
	srv := newChartMockServer(chartBody)
	defer srv.Close()

	p := NewYahooProvider(srv.Client(), WithYahooBaseURLs(srv.URL, srv.URL))
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	points, err := p.FetchHistory(context.Background(), "VOO", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected null close skipped, got %d points", len(points))
	}
	if !points[0].Date.Equal(time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first date %s", points[0].Date)
	}
	if points[1].Close.String() != "349.5" {
		t.Errorf("unexpected close %s", points[1].Close)
	}
}

func TestYahooProvider_FetchDividends(t *testing.T) {
	srv := newChartMockServer(chartBody)
	defer srv.Close()

	p := NewYahooProvider(srv.Client(), WithYahooBaseURLs(srv.URL, srv.URL))
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	divs, err := p.FetchDividends(context.Background(), "VOO", from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(divs) != 2 {
		t.Fatalf("expected 2 dividends, got %d", len(divs))
	}
	if !divs[0].Date.Before(divs[1].Date) {
		t.Error("expected ascending dates")
	}
	if divs[0].Amount.String() != "1.6677" {
		t.Errorf("unexpected first amount %s", divs[0].Amount)
	}
}

func TestYahooProvider_ChartError(t *testing.T) {
	srv := newChartMockServer(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	defer srv.Close()

	p := NewYahooProvider(srv.Client(), WithYahooBaseURLs(srv.URL, srv.URL))
	if _, err := p.FetchHistory(context.Background(), "NOPE", time.Now(), time.Now()); err == nil {
		t.Error("expected error for chart error response")
	}
}

func TestChunk(t *testing.T) {
	got := Chunk([]string{"a", "b", "c", "d", "e"}, 2)
	if len(got) != 3 || len(got[2]) != 1 {
		t.Errorf("unexpected chunks %v", got)
	}
	if len(Chunk(nil, 2)) != 0 {
		t.Error("expected no chunks for empty input")
	}
}
