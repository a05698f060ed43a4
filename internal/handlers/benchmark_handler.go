package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/services"
	"folio/internal/validator"
)

// BenchmarkHandler serves ETF comparisons of a portfolio.
type BenchmarkHandler struct {
	etfService services.ETFComparisonServicer
}

// NewBenchmarkHandler creates a new BenchmarkHandler.
func NewBenchmarkHandler(etfService services.ETFComparisonServicer) *BenchmarkHandler {
	return &BenchmarkHandler{etfService: etfService}
}

// CompareBenchmarks puts the portfolio next to several benchmarks.
// @Summary     Compare with benchmarks
// @Description Compare the portfolio with ETFs bought with the same deposits
// @Tags        benchmarks
// @Produce     json
// @Param       id      path  string true  "Portfolio ID"
// @Param       tickers query string false "Comma separated tickers (default from configuration)"
// @Success     200 {object} services.BenchmarkComparison "Comparison"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/benchmarks [get]
func (h *BenchmarkHandler) CompareBenchmarks(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	comparison, err := h.etfService.CompareBenchmarks(c.Request.Context(), portfolioID, parseTickerList(c.Query("tickers")))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, comparison)
}

// GetBenchmarkSummary returns the simulated performance of one ETF.
// @Summary     Get benchmark summary
// @Tags        benchmarks
// @Produce     json
// @Param       id     path string true "Portfolio ID"
// @Param       ticker path string true "ETF ticker"
// @Success     200 {object} services.ETFSummary "Benchmark summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/benchmarks/{ticker} [get]
func (h *BenchmarkHandler) GetBenchmarkSummary(c *gin.Context) {
	portfolioID, ticker, ok := parseBenchmarkParams(c)
	if !ok {
		return
	}

	summary, err := h.etfService.GetETFSummary(c.Request.Context(), portfolioID, ticker)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetBenchmarkCashFlows returns the simulated ETF ledger.
// @Summary     Get benchmark cash flows
// @Description Simulated purchases, dividends and reinvestments of one ETF
// @Tags        benchmarks
// @Produce     json
// @Param       id     path string true "Portfolio ID"
// @Param       ticker path string true "ETF ticker"
// @Success     200 {object} services.ETFLedger "Benchmark ledger"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/benchmarks/{ticker}/cash-flows [get]
func (h *BenchmarkHandler) GetBenchmarkCashFlows(c *gin.Context) {
	portfolioID, ticker, ok := parseBenchmarkParams(c)
	if !ok {
		return
	}

	ledger, err := h.etfService.GetETFCashFlows(c.Request.Context(), portfolioID, ticker)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ledger)
}

func parseBenchmarkParams(c *gin.Context) (string, string, bool) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	if !validator.IsTicker(ticker) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid ticker"))
		return "", "", false
	}
	return portfolioID, ticker, true
}
