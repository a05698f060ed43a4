// Command oracle refreshes stored closes and dividend histories once and exits.
// Without arguments every held ticker and configured benchmark is refreshed.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"folio/internal/cache"
	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/logger"
	"folio/internal/oracle"
	"folio/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	code, err := run()
	if err != nil {
		logger.Get().Errorw("oracle run failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
	if code != 0 {
		logger.Sync()
		os.Exit(code)
	}
}

func run() (int, error) {
	log := logger.Named("oracle")

	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return 0, fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.Migrate(); err != nil {
		return 0, fmt.Errorf("failed to run database migrations: %w", err)
	}

	provider, err := oracle.NewProviderFromConfig(cfg, &http.Client{Timeout: cfg.PriceRequestTimeout})
	if err != nil {
		return 0, fmt.Errorf("failed to create price provider: %w", err)
	}

	prices := services.NewPriceService(dbManager.DB(), provider, cache.Nop{}, services.PriceServiceConfig{
		Freshness:      cfg.PriceFreshness,
		RequestTimeout: cfg.PriceRequestTimeout,
		BatchSize:      cfg.PriceBatchSize,
		Concurrency:    cfg.PriceConcurrency,
		Benchmarks:     cfg.DefaultBenchmarks,
	})

	tickers := tickersFromArgs(os.Args[1:])
	if len(tickers) == 0 {
		tickers, err = prices.TrackedTickers()
		if err != nil {
			return 0, fmt.Errorf("failed to list tracked tickers: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := oracle.NewRefresher(prices, cfg.PriceConcurrency, log).Run(ctx, tickers)

	log.Infow("oracle run completed",
		"provider", provider.Name(),
		"tickers", result.Tickers,
		"refreshed", result.Refreshed,
		"errors", len(result.Errors),
		"duration", result.Duration.String(),
	)
	for _, fetchErr := range result.Errors {
		log.Warnw("price refresh failed", "ticker", fetchErr.Ticker, "error", fetchErr.Err.Error())
	}

	if len(result.Errors) > 0 {
		return 2, nil
	}
	return 0, nil
}

func tickersFromArgs(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
