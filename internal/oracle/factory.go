package oracle

import (
	"fmt"
	"net/http"

	"folio/internal/config"
)

// NewProviderFromConfig builds the provider selected by PRICE_PROVIDER.
func NewProviderFromConfig(cfg *config.Config, httpClient *http.Client) (Provider, error) {
	switch cfg.PriceProvider {
	case "yahoo":
		return NewYahooProvider(httpClient, WithYahooBatchSize(cfg.PriceBatchSize)), nil
	case "eodhd":
		if cfg.EODHDAPIKey == "" {
			return nil, fmt.Errorf("EODHD_API_KEY is required for the eodhd provider")
		}
		return NewEODHDProvider(cfg.EODHDAPIKey, httpClient,
			WithEODHDRateLimit(cfg.EODHDRateLimit),
			WithEODHDBatchSize(cfg.PriceBatchSize),
		), nil
	default:
		return nil, fmt.Errorf("unknown price provider %q", cfg.PriceProvider)
	}
}
