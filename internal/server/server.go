// Package server assembles the services, handlers and routes of the Folio API.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"folio/internal/cache"
	"folio/internal/config"
	"folio/internal/handlers"
	"folio/internal/logger"
	"folio/internal/middleware"
	"folio/internal/oracle"
	"folio/internal/services"
)

// App is a wired Folio instance.
type App struct {
	Router    *gin.Engine
	Prices    services.PriceServicer
	Refresher *oracle.Refresher
}

// New wires every service on top of db and provider and registers the routes.
func New(db *gorm.DB, provider oracle.Provider, cfg *config.Config) *App {
	c := cache.NewMemory()

	prices := services.NewPriceService(db, provider, c, services.PriceServiceConfig{
		CacheTTL:       cfg.CacheTTL,
		Freshness:      cfg.PriceFreshness,
		RequestTimeout: cfg.PriceRequestTimeout,
		BatchSize:      cfg.PriceBatchSize,
		Concurrency:    cfg.PriceConcurrency,
		Benchmarks:     cfg.DefaultBenchmarks,
	})

	auditService := services.NewAuditService(db)
	portfolioService := services.NewPortfolioService(db, c)
	transactionService := services.NewTransactionService(db, c, auditService)
	cashFlowService := services.NewCashFlowService(db)
	syncService := services.NewCashFlowSyncService(db, auditService)
	irrService := services.NewIRRService(db, syncService, prices, c)
	valuationService := services.NewValuationService(db, syncService, prices, irrService, c, cfg.CacheTTL)
	etfService := services.NewETFComparisonService(db, syncService, prices, valuationService, cfg.DefaultBenchmarks)

	refresher := oracle.NewRefresher(prices, cfg.PriceConcurrency, logger.Named("refresher"))

	router := newRouter(routes{
		portfolios:   handlers.NewPortfolioHandler(portfolioService, auditService),
		transactions: handlers.NewTransactionHandler(transactionService),
		analytics:    handlers.NewAnalyticsHandler(cashFlowService, syncService, irrService, valuationService),
		benchmarks:   handlers.NewBenchmarkHandler(etfService),
		pipeline:     handlers.NewPipelineHandler(refresher, prices),
	}, cfg.PipelineAPIKey)

	return &App{Router: router, Prices: prices, Refresher: refresher}
}

// Start runs the background refresh worker until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Refresher.Start(ctx)
}

type routes struct {
	portfolios   *handlers.PortfolioHandler
	transactions *handlers.TransactionHandler
	analytics    *handlers.AnalyticsHandler
	benchmarks   *handlers.BenchmarkHandler
	pipeline     *handlers.PipelineHandler
}

func newRouter(h routes, pipelineAPIKey string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	portfolios := v1.Group("/portfolios")
	portfolios.POST("", h.portfolios.CreatePortfolio)
	portfolios.GET("", h.portfolios.ListPortfolios)
	portfolios.GET("/:id", h.portfolios.GetPortfolio)
	portfolios.PUT("/:id", h.portfolios.UpdatePortfolio)
	portfolios.DELETE("/:id", h.portfolios.DeletePortfolio)

	portfolio := portfolios.Group("/:id")
	portfolio.GET("/audit-logs", h.portfolios.ListAuditLogs)

	portfolio.POST("/transactions", h.transactions.CreateTransaction)
	portfolio.GET("/transactions", h.transactions.ListTransactions)
	portfolio.GET("/transactions/:transaction_id", h.transactions.GetTransaction)
	portfolio.PUT("/transactions/:transaction_id", h.transactions.UpdateTransaction)
	portfolio.DELETE("/transactions/:transaction_id", h.transactions.DeleteTransaction)

	portfolio.POST("/dividends", h.transactions.CreateDividend)
	portfolio.GET("/dividends", h.transactions.ListDividends)
	portfolio.PUT("/dividends/:dividend_id", h.transactions.UpdateDividend)
	portfolio.DELETE("/dividends/:dividend_id", h.transactions.DeleteDividend)

	portfolio.GET("/cash-flows", h.analytics.GetCashFlows)
	portfolio.GET("/cash-flows/sync-status", h.analytics.GetSyncStatus)
	portfolio.POST("/cash-flows/regenerate", h.analytics.RegenerateCashFlows)
	portfolio.GET("/holdings", h.analytics.GetHoldings)
	portfolio.GET("/value", h.analytics.GetValue)
	portfolio.GET("/summary", h.analytics.GetSummary)
	portfolio.GET("/irr", h.analytics.GetIRR)
	portfolio.POST("/irr", h.analytics.CalculateIRR)
	portfolio.GET("/irr/history", h.analytics.GetIRRHistory)

	portfolio.GET("/benchmarks", h.benchmarks.CompareBenchmarks)
	portfolio.GET("/benchmarks/:ticker", h.benchmarks.GetBenchmarkSummary)
	portfolio.GET("/benchmarks/:ticker/cash-flows", h.benchmarks.GetBenchmarkCashFlows)

	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(pipelineAPIKey))
	pipeline.POST("/prices/refresh", h.pipeline.RefreshPrices)
	pipeline.GET("/prices/refresh", h.pipeline.GetRefreshStatus)

	return router
}
