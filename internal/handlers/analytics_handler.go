package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/pagination"
	"folio/internal/services"
)

// AnalyticsHandler serves the derived views of a portfolio: the cash-flow
// ledger, holdings, valuation and IRR.
type AnalyticsHandler struct {
	cashFlowService  services.CashFlowServicer
	syncService      services.CashFlowSyncServicer
	irrService       services.IRRServicer
	valuationService services.ValuationServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(
	cashFlowService services.CashFlowServicer,
	syncService services.CashFlowSyncServicer,
	irrService services.IRRServicer,
	valuationService services.ValuationServicer,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		cashFlowService:  cashFlowService,
		syncService:      syncService,
		irrService:       irrService,
		valuationService: valuationService,
	}
}

// GetCashFlows returns the cash-flow ledger, regenerating it first when the
// source data changed.
// @Summary     Get cash flows
// @Description Get the portfolio cash-flow ledger in chronological order
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} map[string]interface{} "Cash-flow ledger"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Regeneration failed"
// @Router      /portfolios/{id}/cash-flows [get]
func (h *AnalyticsHandler) GetCashFlows(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	regenerated, err := h.syncService.EnsureCashFlowsCurrent(portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	flows, err := h.cashFlowService.GetCashFlows(portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"portfolio_id": portfolioID,
		"regenerated":  regenerated,
		"cash_flows":   flows,
	})
}

// GetSyncStatus reports whether the stored ledger matches its source data.
// @Summary     Get cash-flow sync status
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} services.SyncStatus "Sync status"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/cash-flows/sync-status [get]
func (h *AnalyticsHandler) GetSyncStatus(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.syncService.GetSyncStatus(portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// RegenerateCashFlows forces a rebuild of the ledger.
// @Summary     Regenerate cash flows
// @Description Rebuild the cash-flow ledger from transactions and dividends
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} map[string]interface{} "Number of rows written"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Regeneration failed"
// @Router      /portfolios/{id}/cash-flows/regenerate [post]
func (h *AnalyticsHandler) RegenerateCashFlows(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	count, err := h.syncService.RegenerateCashFlows(portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolio_id": portfolioID, "cash_flow_count": count})
}

// GetHoldings returns the net share count per ticker.
// @Summary     Get holdings
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} map[string]interface{} "Shares per ticker"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/holdings [get]
func (h *AnalyticsHandler) GetHoldings(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdings, err := h.valuationService.GetCurrentHoldings(portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolio_id": portfolioID, "holdings": holdings})
}

// GetValue values the holdings at current prices.
// @Summary     Get portfolio value
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} services.PortfolioValue "Valuation"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/value [get]
func (h *AnalyticsHandler) GetValue(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	value, err := h.valuationService.CalculatePortfolioValue(c.Request.Context(), portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, value)
}

// GetSummary returns the performance summary of a portfolio.
// @Summary     Get portfolio summary
// @Description Totals, current value, gain, return and IRR
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} services.PortfolioSummary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/summary [get]
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.valuationService.GetPortfolioSummary(c.Request.Context(), portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetIRR returns the latest stored IRR, computing one when none exists.
// @Summary     Get latest IRR
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} models.IRRCalculation "Latest IRR"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/irr [get]
func (h *AnalyticsHandler) GetIRR(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	calc, err := h.irrService.GetLatestIRR(portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if calc == nil {
		calc, err = h.irrService.CalculatePortfolioIRR(c.Request.Context(), portfolioID)
		if err != nil {
			respondWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"irr": calc})
}

// CalculateIRR computes and stores a fresh IRR.
// @Summary     Calculate IRR
// @Tags        analytics
// @Produce     json
// @Param       id path string true "Portfolio ID"
// @Success     201 {object} models.IRRCalculation "New IRR calculation"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/irr [post]
func (h *AnalyticsHandler) CalculateIRR(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	calc, err := h.irrService.CalculatePortfolioIRR(c.Request.Context(), portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"irr": calc})
}

// GetIRRHistory lists stored IRR calculations, newest first.
// @Summary     List IRR history
// @Tags        analytics
// @Produce     json
// @Param       id        path  string true  "Portfolio ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.IRRCalculation] "Paginated IRR history"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/irr/history [get]
func (h *AnalyticsHandler) GetIRRHistory(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.irrService.GetIRRHistory(portfolioID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
