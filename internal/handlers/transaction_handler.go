package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/services"
)

// TransactionHandler handles trades and dividends of a portfolio.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// TransactionRequest represents the request payload for creating or replacing a trade.
type TransactionRequest struct {
	Ticker        string                 `json:"ticker" binding:"required,ticker"`
	Type          models.TransactionType `json:"type" binding:"required,transaction_type"`
	Date          string                 `json:"date" binding:"required,datetime=2006-01-02"`
	PricePerShare decimal.Decimal        `json:"price_per_share" swaggertype:"string" example:"150.25"`
	Shares        decimal.Decimal        `json:"shares" swaggertype:"string" example:"10"`
	Notes         string                 `json:"notes" binding:"max=500"`
}

// DividendRequest represents the request payload for creating or replacing a dividend.
type DividendRequest struct {
	Ticker      string          `json:"ticker" binding:"required,ticker"`
	PaymentDate string          `json:"payment_date" binding:"required,datetime=2006-01-02"`
	TotalAmount decimal.Decimal `json:"total_amount" swaggertype:"string" example:"12.50"`
}

func (r TransactionRequest) input() services.TransactionInput {
	date, _ := time.Parse(dateLayout, r.Date)
	return services.TransactionInput{
		Ticker:        r.Ticker,
		Type:          r.Type,
		Date:          date,
		PricePerShare: r.PricePerShare,
		Shares:        r.Shares,
		Notes:         r.Notes,
	}
}

func (r DividendRequest) input() services.DividendInput {
	date, _ := time.Parse(dateLayout, r.PaymentDate)
	return services.DividendInput{
		Ticker:      r.Ticker,
		PaymentDate: date,
		TotalAmount: r.TotalAmount,
	}
}

// CreateTransaction handles recording a trade.
// @Summary     Create transaction
// @Description Record a BUY or SELL. The cash-flow ledger is regenerated on next read.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id      path string             true "Portfolio ID"
// @Param       request body TransactionRequest true "Trade details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.CreateTransaction(portfolioID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// ListTransactions handles listing trades.
// @Summary     List transactions
// @Description Get a paginated list of trades, newest first
// @Tags        transactions
// @Produce     json
// @Param       id        path  string true  "Portfolio ID"
// @Param       ticker    query string false "Filter by ticker"
// @Param       type      query string false "Filter by type (BUY or SELL)"
// @Param       from_date query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "Filter by end date (RFC3339 or YYYY-MM-DD)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
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

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(portfolioID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles retrieving one trade.
// @Summary     Get transaction
// @Tags        transactions
// @Produce     json
// @Param       id             path string true "Portfolio ID"
// @Param       transaction_id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /portfolios/{id}/transactions/{transaction_id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	portfolioID, transactionID, ok := parseChildIDs(c, "transaction_id")
	if !ok {
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(portfolioID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles replacing a trade.
// @Summary     Update transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id             path string             true "Portfolio ID"
// @Param       transaction_id path string             true "Transaction ID"
// @Param       request        body TransactionRequest true "Trade details"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /portfolios/{id}/transactions/{transaction_id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	portfolioID, transactionID, ok := parseChildIDs(c, "transaction_id")
	if !ok {
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(portfolioID, transactionID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles removing a trade.
// @Summary     Delete transaction
// @Tags        transactions
// @Produce     json
// @Param       id             path string true "Portfolio ID"
// @Param       transaction_id path string true "Transaction ID"
// @Success     200 {object} map[string]string "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /portfolios/{id}/transactions/{transaction_id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	portfolioID, transactionID, ok := parseChildIDs(c, "transaction_id")
	if !ok {
		return
	}

	if err := h.transactionService.DeleteTransaction(portfolioID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// CreateDividend handles recording a received dividend.
// @Summary     Create dividend
// @Tags        dividends
// @Accept      json
// @Produce     json
// @Param       id      path string          true "Portfolio ID"
// @Param       request body DividendRequest true "Dividend details"
// @Success     201 {object} models.Dividend "Dividend created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/dividends [post]
func (h *TransactionHandler) CreateDividend(c *gin.Context) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DividendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	dividend, err := h.transactionService.CreateDividend(portfolioID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"dividend": dividend})
}

// ListDividends handles listing dividends.
// @Summary     List dividends
// @Tags        dividends
// @Produce     json
// @Param       id        path  string true  "Portfolio ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Dividend] "Paginated dividends"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Router      /portfolios/{id}/dividends [get]
func (h *TransactionHandler) ListDividends(c *gin.Context) {
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

	result, err := h.transactionService.ListDividends(portfolioID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateDividend handles replacing a dividend.
// @Summary     Update dividend
// @Tags        dividends
// @Accept      json
// @Produce     json
// @Param       id          path string          true "Portfolio ID"
// @Param       dividend_id path string          true "Dividend ID"
// @Param       request     body DividendRequest true "Dividend details"
// @Success     200 {object} models.Dividend "Dividend updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Dividend not found"
// @Router      /portfolios/{id}/dividends/{dividend_id} [put]
func (h *TransactionHandler) UpdateDividend(c *gin.Context) {
	portfolioID, dividendID, ok := parseChildIDs(c, "dividend_id")
	if !ok {
		return
	}

	var req DividendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	dividend, err := h.transactionService.UpdateDividend(portfolioID, dividendID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dividend": dividend})
}

// DeleteDividend handles removing a dividend.
// @Summary     Delete dividend
// @Tags        dividends
// @Produce     json
// @Param       id          path string true "Portfolio ID"
// @Param       dividend_id path string true "Dividend ID"
// @Success     200 {object} map[string]string "Dividend deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Dividend not found"
// @Router      /portfolios/{id}/dividends/{dividend_id} [delete]
func (h *TransactionHandler) DeleteDividend(c *gin.Context) {
	portfolioID, dividendID, ok := parseChildIDs(c, "dividend_id")
	if !ok {
		return
	}

	if err := h.transactionService.DeleteDividend(portfolioID, dividendID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Dividend deleted successfully"})
}

// parseChildIDs parses the portfolio ID and a nested resource ID, writing the
// error response itself on failure.
func parseChildIDs(c *gin.Context, param string) (string, string, bool) {
	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	childID, err := parsePathID(c, param)
	if err != nil {
		respondWithError(c, err)
		return "", "", false
	}
	return portfolioID, childID, true
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	filter.Ticker = c.Query("ticker")

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	if v := c.Query("type"); v != "" {
		txType := models.TransactionType(v)
		if !txType.Valid() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be BUY or SELL")
		}
		filter.Type = &txType
	}

	return filter, nil
}
