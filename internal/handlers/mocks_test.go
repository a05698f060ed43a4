package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"folio/internal/models"
	"folio/internal/oracle"
	"folio/internal/pagination"
	"folio/internal/services"
)

// --- mock services ---

type mockPortfolioService struct {
	createFn func(name, description string) (*models.Portfolio, error)
	getFn    func(id string) (*models.Portfolio, error)
	listFn   func(page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	updateFn func(id string, name, description *string) (*models.Portfolio, error)
	deleteFn func(id string) error
}

var _ services.PortfolioServicer = (*mockPortfolioService)(nil)

func (m *mockPortfolioService) CreatePortfolio(name, description string) (*models.Portfolio, error) {
	if m.createFn != nil {
		return m.createFn(name, description)
	}
	return &models.Portfolio{Name: name, Description: description}, nil
}

func (m *mockPortfolioService) GetPortfolioByID(id string) (*models.Portfolio, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return &models.Portfolio{Base: models.Base{ID: id}}, nil
}

func (m *mockPortfolioService) ListPortfolios(page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error) {
	if m.listFn != nil {
		return m.listFn(page)
	}
	page.Defaults()
	result := pagination.NewPageResponse[models.Portfolio](nil, page.Page, page.PageSize, 0)
	return &result, nil
}

func (m *mockPortfolioService) UpdatePortfolio(id string, name, description *string) (*models.Portfolio, error) {
	if m.updateFn != nil {
		return m.updateFn(id, name, description)
	}
	return &models.Portfolio{Base: models.Base{ID: id}}, nil
}

func (m *mockPortfolioService) DeletePortfolio(id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(id)
	}
	return nil
}

type mockTransactionService struct {
	createFn         func(portfolioID string, in services.TransactionInput) (*models.Transaction, error)
	getFn            func(portfolioID, transactionID string) (*models.Transaction, error)
	listFn           func(portfolioID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	updateFn         func(portfolioID, transactionID string, in services.TransactionInput) (*models.Transaction, error)
	deleteFn         func(portfolioID, transactionID string) error
	createDividendFn func(portfolioID string, in services.DividendInput) (*models.Dividend, error)
	listDividendsFn  func(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Dividend], error)
	updateDividendFn func(portfolioID, dividendID string, in services.DividendInput) (*models.Dividend, error)
	deleteDividendFn func(portfolioID, dividendID string) error
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func (m *mockTransactionService) CreateTransaction(portfolioID string, in services.TransactionInput) (*models.Transaction, error) {
	if m.createFn != nil {
		return m.createFn(portfolioID, in)
	}
	return &models.Transaction{PortfolioID: portfolioID, Ticker: in.Ticker, Type: in.Type}, nil
}

func (m *mockTransactionService) GetTransactionByID(portfolioID, transactionID string) (*models.Transaction, error) {
	if m.getFn != nil {
		return m.getFn(portfolioID, transactionID)
	}
	return &models.Transaction{Base: models.Base{ID: transactionID}, PortfolioID: portfolioID}, nil
}

func (m *mockTransactionService) ListTransactions(portfolioID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.listFn != nil {
		return m.listFn(portfolioID, page, filter)
	}
	page.Defaults()
	result := pagination.NewPageResponse[models.Transaction](nil, page.Page, page.PageSize, 0)
	return &result, nil
}

func (m *mockTransactionService) UpdateTransaction(portfolioID, transactionID string, in services.TransactionInput) (*models.Transaction, error) {
	if m.updateFn != nil {
		return m.updateFn(portfolioID, transactionID, in)
	}
	return &models.Transaction{Base: models.Base{ID: transactionID}, PortfolioID: portfolioID}, nil
}

func (m *mockTransactionService) DeleteTransaction(portfolioID, transactionID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(portfolioID, transactionID)
	}
	return nil
}

func (m *mockTransactionService) CreateDividend(portfolioID string, in services.DividendInput) (*models.Dividend, error) {
	if m.createDividendFn != nil {
		return m.createDividendFn(portfolioID, in)
	}
	return &models.Dividend{PortfolioID: portfolioID, Ticker: in.Ticker, TotalAmount: in.TotalAmount}, nil
}

func (m *mockTransactionService) ListDividends(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.Dividend], error) {
	if m.listDividendsFn != nil {
		return m.listDividendsFn(portfolioID, page)
	}
	page.Defaults()
	result := pagination.NewPageResponse[models.Dividend](nil, page.Page, page.PageSize, 0)
	return &result, nil
}

func (m *mockTransactionService) UpdateDividend(portfolioID, dividendID string, in services.DividendInput) (*models.Dividend, error) {
	if m.updateDividendFn != nil {
		return m.updateDividendFn(portfolioID, dividendID, in)
	}
	return &models.Dividend{Base: models.Base{ID: dividendID}, PortfolioID: portfolioID}, nil
}

func (m *mockTransactionService) DeleteDividend(portfolioID, dividendID string) error {
	if m.deleteDividendFn != nil {
		return m.deleteDividendFn(portfolioID, dividendID)
	}
	return nil
}

type mockCashFlowService struct {
	getFn func(portfolioID string) ([]models.CashFlow, error)
}

var _ services.CashFlowServicer = (*mockCashFlowService)(nil)

func (m *mockCashFlowService) GenerateCashFlows(string) ([]models.CashFlow, error) { return nil, nil }

func (m *mockCashFlowService) SaveCashFlows(string, []models.CashFlow) error { return nil }

func (m *mockCashFlowService) GetCashFlows(portfolioID string) ([]models.CashFlow, error) {
	if m.getFn != nil {
		return m.getFn(portfolioID)
	}
	return []models.CashFlow{}, nil
}

type mockSyncService struct {
	ensureFn     func(portfolioID string) (bool, error)
	regenerateFn func(portfolioID string) (int, error)
	statusFn     func(portfolioID string) (*services.SyncStatus, error)
}

var _ services.CashFlowSyncServicer = (*mockSyncService)(nil)

func (m *mockSyncService) CalculateSourceDataHash(string) (string, error) { return "", nil }

func (m *mockSyncService) IsCashFlowDataCurrent(string) (bool, error) { return true, nil }

func (m *mockSyncService) RegenerateCashFlows(portfolioID string) (int, error) {
	if m.regenerateFn != nil {
		return m.regenerateFn(portfolioID)
	}
	return 0, nil
}

func (m *mockSyncService) EnsureCashFlowsCurrent(portfolioID string) (bool, error) {
	if m.ensureFn != nil {
		return m.ensureFn(portfolioID)
	}
	return false, nil
}

func (m *mockSyncService) GetSyncStatus(portfolioID string) (*services.SyncStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(portfolioID)
	}
	return &services.SyncStatus{PortfolioID: portfolioID, IsCurrent: true}, nil
}

type mockIRRService struct {
	calculateFn func(ctx context.Context, portfolioID string) (*models.IRRCalculation, error)
	latestFn    func(portfolioID string) (*models.IRRCalculation, error)
	historyFn   func(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.IRRCalculation], error)
}

var _ services.IRRServicer = (*mockIRRService)(nil)

func (m *mockIRRService) CalculatePortfolioIRR(ctx context.Context, portfolioID string) (*models.IRRCalculation, error) {
	if m.calculateFn != nil {
		return m.calculateFn(ctx, portfolioID)
	}
	return &models.IRRCalculation{PortfolioID: portfolioID}, nil
}

func (m *mockIRRService) GetLatestIRR(portfolioID string) (*models.IRRCalculation, error) {
	if m.latestFn != nil {
		return m.latestFn(portfolioID)
	}
	return nil, nil
}

func (m *mockIRRService) GetIRRHistory(portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.IRRCalculation], error) {
	if m.historyFn != nil {
		return m.historyFn(portfolioID, page)
	}
	page.Defaults()
	result := pagination.NewPageResponse[models.IRRCalculation](nil, page.Page, page.PageSize, 0)
	return &result, nil
}

type mockValuationService struct {
	holdingsFn func(portfolioID string) (map[string]decimal.Decimal, error)
	valueFn    func(ctx context.Context, portfolioID string) (*services.PortfolioValue, error)
	summaryFn  func(ctx context.Context, portfolioID string) (*services.PortfolioSummary, error)
}

var _ services.ValuationServicer = (*mockValuationService)(nil)

func (m *mockValuationService) GetCurrentHoldings(portfolioID string) (map[string]decimal.Decimal, error) {
	if m.holdingsFn != nil {
		return m.holdingsFn(portfolioID)
	}
	return map[string]decimal.Decimal{}, nil
}

func (m *mockValuationService) CalculatePortfolioValue(ctx context.Context, portfolioID string) (*services.PortfolioValue, error) {
	if m.valueFn != nil {
		return m.valueFn(ctx, portfolioID)
	}
	return &services.PortfolioValue{PortfolioID: portfolioID}, nil
}

func (m *mockValuationService) GetPortfolioCurrentValue(ctx context.Context, portfolioID string) (decimal.Decimal, error) {
	v, err := m.CalculatePortfolioValue(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	return v.TotalValue, nil
}

func (m *mockValuationService) GetPortfolioSummary(ctx context.Context, portfolioID string) (*services.PortfolioSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, portfolioID)
	}
	return &services.PortfolioSummary{PortfolioID: portfolioID}, nil
}

type mockETFService struct {
	cashFlowsFn func(ctx context.Context, portfolioID, ticker string) (*services.ETFLedger, error)
	summaryFn   func(ctx context.Context, portfolioID, ticker string) (*services.ETFSummary, error)
	compareFn   func(ctx context.Context, portfolioID string, tickers []string) (*services.BenchmarkComparison, error)
}

var _ services.ETFComparisonServicer = (*mockETFService)(nil)

func (m *mockETFService) GetETFCashFlows(ctx context.Context, portfolioID, ticker string) (*services.ETFLedger, error) {
	if m.cashFlowsFn != nil {
		return m.cashFlowsFn(ctx, portfolioID, ticker)
	}
	return &services.ETFLedger{PortfolioID: portfolioID, Ticker: ticker}, nil
}

func (m *mockETFService) GetETFSummary(ctx context.Context, portfolioID, ticker string) (*services.ETFSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, portfolioID, ticker)
	}
	return &services.ETFSummary{PortfolioID: portfolioID, Ticker: ticker}, nil
}

func (m *mockETFService) CompareBenchmarks(ctx context.Context, portfolioID string, tickers []string) (*services.BenchmarkComparison, error) {
	if m.compareFn != nil {
		return m.compareFn(ctx, portfolioID, tickers)
	}
	return &services.BenchmarkComparison{PortfolioID: portfolioID}, nil
}

type mockRefresher struct {
	triggerFn func(tickers []string) error
	progress  oracle.Progress
}

var _ PriceRefresher = (*mockRefresher)(nil)

func (m *mockRefresher) Trigger(tickers []string) error {
	if m.triggerFn != nil {
		return m.triggerFn(tickers)
	}
	m.progress = oracle.Progress{Status: oracle.StatusQueued, Total: len(tickers)}
	return nil
}

func (m *mockRefresher) Status() oracle.Progress { return m.progress }

type mockTickerSource struct {
	tickers []string
	err     error
}

func (m *mockTickerSource) TrackedTickers() ([]string, error) { return m.tickers, m.err }
