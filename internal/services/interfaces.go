package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/models"
	"folio/internal/pagination"
)

// PortfolioServicer defines the contract for portfolio records.
type PortfolioServicer interface {
	CreatePortfolio(name, description string) (*models.Portfolio, error)
	GetPortfolioByID(id string) (*models.Portfolio, error)
	ListPortfolios(page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	UpdatePortfolio(id string, name, description *string) (*models.Portfolio, error)
	DeletePortfolio(id string) error
}

// TransactionInput carries the editable fields of a trade.
type TransactionInput struct {
	Ticker        string
	Type          models.TransactionType
	Date          time.Time
	PricePerShare decimal.Decimal
	Shares        decimal.Decimal
	Notes         string
}

// DividendInput carries the editable fields of a received dividend.
type DividendInput struct {
	Ticker      string
	PaymentDate time.Time
	TotalAmount decimal.Decimal
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Ticker   string
	Type     *models.TransactionType
	FromDate *time.Time
	ToDate   *time.Time
}

// TransactionServicer defines the contract for the source records of a
// portfolio: trades and dividends.
type TransactionServicer interface {
	CreateTransaction(portfolioID string, in TransactionInput) (*models.Transaction, error)
	GetTransactionByID(portfolioID, transactionID string) (*models.Transaction, error)
	ListTransactions(portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(portfolioID, transactionID string, in TransactionInput) (*models.Transaction, error)
	DeleteTransaction(portfolioID, transactionID string) error

	CreateDividend(portfolioID string, in DividendInput) (*models.Dividend, error)
	ListDividends(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Dividend], error)
	UpdateDividend(portfolioID, dividendID string, in DividendInput) (*models.Dividend, error)
	DeleteDividend(portfolioID, dividendID string) error
}

// CashFlowServicer builds and stores the derived cash-flow ledger.
type CashFlowServicer interface {
	GenerateCashFlows(portfolioID string) ([]models.CashFlow, error)
	SaveCashFlows(portfolioID string, flows []models.CashFlow) error
	GetCashFlows(portfolioID string) ([]models.CashFlow, error)
}

// SyncStatus is a diagnostic view of the ledger consistency token.
type SyncStatus struct {
	PortfolioID       string     `json:"portfolio_id"`
	IsCurrent         bool       `json:"is_current"`
	NeedsRegeneration bool       `json:"needs_regeneration"`
	CurrentHash       string     `json:"current_hash"`
	StoredHash        string     `json:"stored_hash"`
	CashFlowCount     int64      `json:"cash_flow_count"`
	TransactionCount  int64      `json:"transaction_count"`
	DividendCount     int64      `json:"dividend_count"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
}

// CashFlowSyncServicer keeps the stored ledger consistent with its sources.
type CashFlowSyncServicer interface {
	CalculateSourceDataHash(portfolioID string) (string, error)
	IsCashFlowDataCurrent(portfolioID string) (bool, error)
	RegenerateCashFlows(portfolioID string) (int, error)
	EnsureCashFlowsCurrent(portfolioID string) (bool, error)
	GetSyncStatus(portfolioID string) (*SyncStatus, error)
}

// IRRServicer computes and stores portfolio IRR.
type IRRServicer interface {
	CalculatePortfolioIRR(ctx context.Context, portfolioID string) (*models.IRRCalculation, error)
	// GetLatestIRR returns nil without error when nothing has been computed yet.
	GetLatestIRR(portfolioID string) (*models.IRRCalculation, error)
	GetIRRHistory(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.IRRCalculation], error)
}

// DividendEvent is a per-share dividend of a ticker.
type DividendEvent struct {
	Date     time.Time       `json:"date"`
	PerShare decimal.Decimal `json:"per_share"`
}

// PriceOracle is the market-data contract consumed by the analytics core.
// Missing data is reported as ok=false or an absent map entry, never as an error.
type PriceOracle interface {
	GetPrice(ctx context.Context, ticker string, date time.Time) (decimal.Decimal, bool)
	GetCurrentPrice(ctx context.Context, ticker string, allowStale bool) (decimal.Decimal, bool)
	GetPrices(ctx context.Context, tickers []string, date time.Time) map[string]decimal.Decimal
	GetCurrentPrices(ctx context.Context, tickers []string, allowStale bool) map[string]decimal.Decimal
	GetDividendHistory(ctx context.Context, ticker string) ([]DividendEvent, error)
}

// PriceServicer is the stored-price implementation of PriceOracle plus the
// maintenance operations used by the refresher.
type PriceServicer interface {
	PriceOracle
	RefreshTicker(ctx context.Context, ticker string) error
	TrackedTickers() ([]string, error)
}

// ETFCashFlow is one row of a simulated benchmark ledger.
type ETFCashFlow struct {
	models.CashFlow
	Ticker        string          `json:"ticker"`
	Shares        decimal.Decimal `json:"shares"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	SharesHeld    decimal.Decimal `json:"shares_held"`
}

// ETFLedger is the benchmark ledger replaying a portfolio's deposits.
type ETFLedger struct {
	PortfolioID   string          `json:"portfolio_id"`
	Ticker        string          `json:"ticker"`
	Rows          []ETFCashFlow   `json:"rows"`
	TotalShares   decimal.Decimal `json:"total_shares"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	Dividends     decimal.Decimal `json:"dividends_received"`
	SkippedEvents int             `json:"skipped_events"`
}

// CashFlows returns the rows as plain ledger entries.
func (l *ETFLedger) CashFlows() []models.CashFlow {
	out := make([]models.CashFlow, len(l.Rows))
	for i := range l.Rows {
		out[i] = l.Rows[i].CashFlow
	}
	return out
}

// ETFSummary aggregates a benchmark ledger.
type ETFSummary struct {
	PortfolioID       string          `json:"portfolio_id"`
	Ticker            string          `json:"ticker"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	TotalShares       decimal.Decimal `json:"total_shares"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	PriceAvailable    bool            `json:"price_available"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	InvestmentGain    decimal.Decimal `json:"investment_gain"`
	DividendsReceived decimal.Decimal `json:"dividends_received"`
	ReturnPct         float64         `json:"return_pct"`
	IRR               float64         `json:"irr"`
}

// BenchmarkComparison puts a portfolio next to several benchmarks.
type BenchmarkComparison struct {
	PortfolioID string            `json:"portfolio_id"`
	Portfolio   *PortfolioSummary `json:"portfolio"`
	Benchmarks  []ETFSummary      `json:"benchmarks"`
}

// ETFComparisonServicer simulates investing the portfolio's deposits in a benchmark.
type ETFComparisonServicer interface {
	GetETFCashFlows(ctx context.Context, portfolioID, ticker string) (*ETFLedger, error)
	GetETFSummary(ctx context.Context, portfolioID, ticker string) (*ETFSummary, error)
	CompareBenchmarks(ctx context.Context, portfolioID string, tickers []string) (*BenchmarkComparison, error)
}

// HoldingValue is the valuation of a single position.
type HoldingValue struct {
	Ticker         string          `json:"ticker"`
	Shares         decimal.Decimal `json:"shares"`
	Price          decimal.Decimal `json:"price"`
	Value          decimal.Decimal `json:"value"`
	PriceAvailable bool            `json:"price_available"`
}

// PortfolioValue is a point-in-time valuation.
type PortfolioValue struct {
	PortfolioID   string          `json:"portfolio_id"`
	Holdings      []HoldingValue  `json:"holdings"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	TotalValue    decimal.Decimal `json:"total_value"`
	ValuedAt      time.Time       `json:"valued_at"`
}

// PortfolioSummary aggregates ledger totals, valuation and the latest IRR.
type PortfolioSummary struct {
	PortfolioID       string          `json:"portfolio_id"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	DividendsReceived decimal.Decimal `json:"dividends_received"`
	SalesProceeds     decimal.Decimal `json:"sales_proceeds"`
	CashBalance       decimal.Decimal `json:"cash_balance"`
	PortfolioValue    decimal.Decimal `json:"portfolio_value"`
	InvestmentGain    decimal.Decimal `json:"investment_gain"`
	ReturnPct         float64         `json:"return_pct"`
	NetCashFlow       decimal.Decimal `json:"net_cash_flow"`
	IRR               float64         `json:"irr"`
	IRRCalculatedAt   *time.Time      `json:"irr_calculated_at,omitempty"`
}

// ValuationServicer values holdings and summarises portfolio performance.
type ValuationServicer interface {
	GetCurrentHoldings(portfolioID string) (map[string]decimal.Decimal, error)
	CalculatePortfolioValue(ctx context.Context, portfolioID string) (*PortfolioValue, error)
	GetPortfolioCurrentValue(ctx context.Context, portfolioID string) (decimal.Decimal, error)
	GetPortfolioSummary(ctx context.Context, portfolioID string) (*PortfolioSummary, error)
}

// AuditServicer records and lists changes to portfolio records.
type AuditServicer interface {
	Log(portfolioID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
	ListAuditLogs(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
