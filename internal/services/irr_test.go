package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/testutil"
)

func flow(date string, ft models.FlowType, amount string) models.CashFlow {
	return models.CashFlow{Date: mustDate(date), FlowType: ft, Amount: dec(amount)}
}

func TestCalculateIRR(t *testing.T) {
	t.Run("ten_percent_over_a_year", func(t *testing.T) {
		flows := []models.CashFlow{
			flow("2023-01-01", models.FlowTypeDeposit, "1000"),
			flow("2024-01-01", models.FlowTypeSale, "1100"),
		}
		irr := CalculateIRR(flows, decimal.Zero, mustDate("2024-01-01"), LedgerAuto)
		if math.Abs(irr-0.10) > 0.01 {
			t.Errorf("expected ~0.10, got %v", irr)
		}
	})

	t.Run("terminal_value_counts_as_inflow", func(t *testing.T) {
		flows := []models.CashFlow{flow("2023-01-01", models.FlowTypeDeposit, "1000")}
		irr := CalculateIRR(flows, dec("1100"), mustDate("2024-01-01"), LedgerPortfolio)
		if math.Abs(irr-0.10) > 0.01 {
			t.Errorf("expected ~0.10, got %v", irr)
		}
	})

	t.Run("rounded_to_four_places", func(t *testing.T) {
		flows := []models.CashFlow{flow("2023-01-01", models.FlowTypeDeposit, "1000")}
		irr := CalculateIRR(flows, dec("1234.56"), mustDate("2024-06-30"), LedgerPortfolio)
		if irr != math.Round(irr*1e4)/1e4 {
			t.Errorf("expected 4 decimal places, got %v", irr)
		}
	})

	t.Run("no_solution_returns_zero", func(t *testing.T) {
		asOf := mustDate("2024-01-01")
		cases := map[string][]models.CashFlow{
			"empty":       nil,
			"all_outflow": {flow("2023-01-01", models.FlowTypeDeposit, "1000"), flow("2023-06-01", models.FlowTypeDeposit, "500")},
			"all_inflow":  {flow("2023-01-01", models.FlowTypeDividend, "10"), flow("2023-06-01", models.FlowTypeSale, "500")},
			"single_flow": {flow("2023-01-01", models.FlowTypeDeposit, "1000")},
			"nets_to_zero": {
				flow("2023-01-01", models.FlowTypeDeposit, "1000"),
				flow("2023-01-01", models.FlowTypeSale, "1000"),
			},
		}
		for name, flows := range cases {
			t.Run(name, func(t *testing.T) {
				if irr := CalculateIRR(flows, decimal.Zero, asOf, LedgerAuto); irr != 0 {
					t.Errorf("expected 0, got %v", irr)
				}
			})
		}
	})

	t.Run("unreasonable_rate_returns_zero", func(t *testing.T) {
		flows := []models.CashFlow{
			flow("2024-01-01", models.FlowTypeDeposit, "1"),
			flow("2024-01-02", models.FlowTypeSale, "1000000"),
		}
		if irr := CalculateIRR(flows, decimal.Zero, mustDate("2024-01-02"), LedgerAuto); irr != 0 {
			t.Errorf("expected 0 for an absurd rate, got %v", irr)
		}
	})

	t.Run("out_of_range_root_is_not_replaced", func(t *testing.T) {
		// NPV has roots near -0.50 and +12.03; Newton from the seed settles on the
		// second, which is rejected rather than swapped for the first.
		flows := []models.CashFlow{
			flow("2023-01-01", models.FlowTypeDeposit, "100"),
			flow("2024-01-01", models.FlowTypeSale, "1350"),
			flow("2025-01-01", models.FlowTypeDeposit, "650"),
		}
		if irr := CalculateIRR(flows, decimal.Zero, mustDate("2025-01-01"), LedgerPortfolio); irr != 0 {
			t.Errorf("expected 0, got %v", irr)
		}
	})

	t.Run("ledger_kinds", func(t *testing.T) {
		// A benchmark ledger carries purchases only; a portfolio ledger
		// carries both, with deposits marking invested capital.
		benchmark := []models.CashFlow{flow("2023-01-01", models.FlowTypePurchase, "-1000")}
		portfolio := []models.CashFlow{
			flow("2023-01-01", models.FlowTypeDeposit, "1000"),
			flow("2023-01-01", models.FlowTypePurchase, "-1000"),
		}
		asOf := mustDate("2024-01-01")
		value := dec("1100")

		if irr := CalculateIRR(benchmark, value, asOf, LedgerAuto); math.Abs(irr-0.10) > 0.01 {
			t.Errorf("auto on purchases only: expected ~0.10, got %v", irr)
		}
		if irr := CalculateIRR(benchmark, value, asOf, LedgerBenchmark); math.Abs(irr-0.10) > 0.01 {
			t.Errorf("benchmark: expected ~0.10, got %v", irr)
		}
		if irr := CalculateIRR(portfolio, value, asOf, LedgerAuto); math.Abs(irr-0.10) > 0.01 {
			t.Errorf("auto on a portfolio ledger: expected ~0.10, got %v", irr)
		}
		if irr := CalculateIRR(portfolio, value, asOf, LedgerPortfolio); math.Abs(irr-0.10) > 0.01 {
			t.Errorf("portfolio: expected ~0.10, got %v", irr)
		}
		// Treating both as outflows would double the invested capital.
		if irr := CalculateIRR(benchmark, value, asOf, LedgerPortfolio); irr != 0 {
			t.Errorf("portfolio kind ignores purchases: expected 0, got %v", irr)
		}
	})

	t.Run("negative_return", func(t *testing.T) {
		flows := []models.CashFlow{flow("2023-01-01", models.FlowTypeDeposit, "1000")}
		irr := CalculateIRR(flows, dec("800"), mustDate("2024-01-01"), LedgerPortfolio)
		if irr >= 0 || irr < -0.99 {
			t.Errorf("expected a loss, got %v", irr)
		}
	})
}

func TestIRRService(t *testing.T) {
	setup := func(t *testing.T) (*analytics, *models.Portfolio, func()) {
		db := testutil.SetupTestDB(t)
		oracle := newFakeOracle()
		oracle.setCurrent("AAPL", "180")
		a := newAnalytics(t, db, oracle)
		a.irr.(*irrService).now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
		portfolio := testutil.CreateTestPortfolio(t, db)
		testutil.CreateTestTransaction(t, db, portfolio.ID, "AAPL", models.TransactionTypeBuy, testutil.Date(2023, 1, 1), "150", "10")
		return a, portfolio, func() { testutil.TeardownTestDB(t, db) }
	}

	t.Run("calculate_and_persist", func(t *testing.T) {
		a, portfolio, teardown := setup(t)
		defer teardown()

		calc, err := a.irr.CalculatePortfolioIRR(context.Background(), portfolio.ID)
		testutil.AssertNoError(t, err)
		if math.Abs(calc.IRRValue-0.20) > 0.01 {
			t.Errorf("expected ~0.20, got %v", calc.IRRValue)
		}
		testutil.AssertDecimal(t, calc.TotalInvested, "1500")
		testutil.AssertDecimal(t, calc.CurrentValue, "1800")

		latest, err := a.irr.GetLatestIRR(portfolio.ID)
		testutil.AssertNoError(t, err)
		if latest == nil || latest.ID != calc.ID {
			t.Errorf("expected latest to be %s, got %+v", calc.ID, latest)
		}
	})

	t.Run("latest_is_nil_before_first_calculation", func(t *testing.T) {
		a, portfolio, teardown := setup(t)
		defer teardown()

		latest, err := a.irr.GetLatestIRR(portfolio.ID)
		testutil.AssertNoError(t, err)
		if latest != nil {
			t.Errorf("expected nil, got %+v", latest)
		}
	})

	t.Run("history_is_paginated_newest_first", func(t *testing.T) {
		a, portfolio, teardown := setup(t)
		defer teardown()

		svc := a.irr.(*irrService)
		for i := range 3 {
			svc.now = func() time.Time { return time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC) }
			_, err := a.irr.CalculatePortfolioIRR(context.Background(), portfolio.ID)
			testutil.AssertNoError(t, err)
		}

		page, err := a.irr.GetIRRHistory(portfolio.ID, pagination.PageRequest{Page: 1, PageSize: 2})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 || len(page.Data) != 2 {
			t.Fatalf("expected 2 of 3 items, got %d of %d", len(page.Data), page.TotalItems)
		}
		if !page.Data[0].CalculationDate.After(page.Data[1].CalculationDate) {
			t.Error("expected newest first")
		}
	})

	t.Run("unknown_portfolio", func(t *testing.T) {
		a, _, teardown := setup(t)
		defer teardown()
		_, err := a.irr.GetLatestIRR("missing")
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}
