package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/oracle"
)

// PriceRefresher runs background price refreshes.
type PriceRefresher interface {
	Trigger(tickers []string) error
	Status() oracle.Progress
}

// TickerSource lists the tickers whose prices are kept up to date.
type TickerSource interface {
	TrackedTickers() ([]string, error)
}

// PipelineHandler exposes the price refresh to schedulers.
type PipelineHandler struct {
	refresher PriceRefresher
	tickers   TickerSource
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(refresher PriceRefresher, tickers TickerSource) *PipelineHandler {
	return &PipelineHandler{refresher: refresher, tickers: tickers}
}

// RefreshPricesRequest optionally narrows a refresh to some tickers.
type RefreshPricesRequest struct {
	Tickers []string `json:"tickers" binding:"omitempty,max=500,dive,ticker"`
}

// RefreshPrices queues a price refresh.
// @Summary     Refresh prices
// @Description Queue a refresh of closes and dividends. Without tickers every held ticker and benchmark is refreshed.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RefreshPricesRequest false "Tickers to refresh"
// @Success     202 {object} oracle.Progress "Refresh queued"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     409 {object} ErrorResponse "Refresh already running"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/prices/refresh [post]
func (h *PipelineHandler) RefreshPrices(c *gin.Context) {
	var req RefreshPricesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	tickers := parseTickerList(strings.Join(req.Tickers, ","))
	if len(tickers) == 0 {
		tracked, err := h.tickers.TrackedTickers()
		if err != nil {
			respondWithError(c, err)
			return
		}
		tickers = tracked
	}

	if err := h.refresher.Trigger(tickers); err != nil {
		if errors.Is(err, oracle.ErrBusy) {
			respondWithError(c, apperrors.ErrRefreshInProgress)
			return
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, h.refresher.Status())
}

// GetRefreshStatus reports the progress of the last refresh.
// @Summary     Get refresh status
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} oracle.Progress "Refresh progress"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/prices/refresh [get]
func (h *PipelineHandler) GetRefreshStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.refresher.Status())
}
