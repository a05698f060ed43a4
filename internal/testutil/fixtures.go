package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"folio/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestPortfolio creates a portfolio with a unique name.
func CreateTestPortfolio(t *testing.T, db *gorm.DB) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		Name:        fmt.Sprintf("Test Portfolio %d", nextID()),
		Description: "fixture",
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// CreateTestTransaction inserts a trade directly, bypassing the service layer.
// price and shares are decimal strings.
func CreateTestTransaction(t *testing.T, db *gorm.DB, portfolioID, ticker string, txType models.TransactionType, date time.Time, price, shares string) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		PortfolioID:   portfolioID,
		Ticker:        ticker,
		Type:          txType,
		Date:          models.NormalizeDate(date),
		PricePerShare: decimal.RequireFromString(price),
		Shares:        decimal.RequireFromString(shares),
	}
	tx.ComputeTotal()
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestDividend inserts a received dividend.
func CreateTestDividend(t *testing.T, db *gorm.DB, portfolioID, ticker string, date time.Time, amount string) *models.Dividend {
	t.Helper()

	div := &models.Dividend{
		PortfolioID: portfolioID,
		Ticker:      ticker,
		PaymentDate: models.NormalizeDate(date),
		TotalAmount: decimal.RequireFromString(amount),
	}
	if err := db.Create(div).Error; err != nil {
		t.Fatalf("failed to create test dividend: %v", err)
	}
	return div
}

// CreateTestPrice stores a daily close fetched at fetchedAt.
func CreateTestPrice(t *testing.T, db *gorm.DB, ticker string, date time.Time, close string, fetchedAt time.Time) *models.SecurityPrice {
	t.Helper()

	price := &models.SecurityPrice{
		Ticker:    ticker,
		Date:      models.NormalizeDate(date),
		Close:     decimal.RequireFromString(close),
		Source:    "test",
		FetchedAt: fetchedAt,
	}
	if err := db.Create(price).Error; err != nil {
		t.Fatalf("failed to create test price: %v", err)
	}
	return price
}

// CreateTestBenchmarkDividend stores a per-share dividend of a benchmark.
func CreateTestBenchmarkDividend(t *testing.T, db *gorm.DB, ticker string, exDate time.Time, amount string, fetchedAt time.Time) *models.BenchmarkDividend {
	t.Helper()

	div := &models.BenchmarkDividend{
		Ticker:    ticker,
		ExDate:    models.NormalizeDate(exDate),
		Amount:    decimal.RequireFromString(amount),
		FetchedAt: fetchedAt,
	}
	if err := db.Create(div).Error; err != nil {
		t.Fatalf("failed to create test benchmark dividend: %v", err)
	}
	return div
}
