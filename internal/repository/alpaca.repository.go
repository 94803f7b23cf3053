package repository

import (
	"context"
	"fmt"

	"papertrade/internal/logger"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// AlpacaRepository is the fallback equities price source when the
// primary quote lookup comes back empty.
type AlpacaRepository interface {
	GetLatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

func NewAlpacaRepository(apiKey, apiSecret, endpoint string) AlpacaRepository {
	mdClient := marketdata.NewClient(marketdata.ClientOpts{
		BaseURL:   endpoint,
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &alpacaRepositoryHandler{
		MdClient: mdClient,
	}
}

type alpacaRepositoryHandler struct {
	MdClient *marketdata.Client
}

func (h *alpacaRepositoryHandler) GetLatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	log := logger.FromContext(ctx)

	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	results, err := h.MdClient.GetLatestQuotes(symbols, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to get latest quotes: %w", err)
	}

	out := map[string]decimal.Decimal{}
	for symbol, result := range results {
		price := decimal.NewFromFloat(result.BidPrice)
		if price.IsZero() {
			log.Warnf("alpaca returned 0 price for %s, skipping", symbol)
			continue
		}
		out[symbol] = price
	}

	return out, nil
}
