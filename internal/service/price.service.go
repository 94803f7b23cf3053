package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"papertrade/internal/logger"
	"papertrade/internal/repository"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// prices stay warm long enough to cover a review -> confirm round trip
const priceCacheTtl = 30 * time.Second

// PriceService resolves current market prices. It satisfies the
// ledger's PriceLookup; the ledger never fetches prices itself.
type PriceService interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetCryptoPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

func NewPriceService(
	finnhubRepository repository.FinnhubRepository,
	alpacaRepository repository.AlpacaRepository,
	coinbaseRepository repository.CoinbaseRepository,
) PriceService {
	return &priceServiceHandler{
		FinnhubRepository:  finnhubRepository,
		AlpacaRepository:   alpacaRepository,
		CoinbaseRepository: coinbaseRepository,
		quoteFn:            quote.Get,
		cache:              map[string]cachedPrice{},
	}
}

type priceServiceHandler struct {
	FinnhubRepository  repository.FinnhubRepository
	AlpacaRepository   repository.AlpacaRepository
	CoinbaseRepository repository.CoinbaseRepository

	// swapped out in tests
	quoteFn func(symbol string) (*finance.Quote, error)

	mu    sync.Mutex
	cache map[string]cachedPrice
}

type cachedPrice struct {
	price decimal.Decimal
	at    time.Time
}

func (h *priceServiceHandler) getCached(key string) (decimal.Decimal, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cached, ok := h.cache[key]
	if !ok || time.Since(cached.at) > priceCacheTtl {
		return decimal.Zero, false
	}
	return cached.price, true
}

func (h *priceServiceHandler) setCached(key string, price decimal.Decimal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache[key] = cachedPrice{price: price, at: time.Now()}
}

func (h *priceServiceHandler) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	log := logger.FromContext(ctx)

	if cached, ok := h.getCached(symbol); ok {
		return cached, nil
	}

	if q, err := h.quoteFn(symbol); err == nil && q != nil && q.RegularMarketPrice > 0 {
		price := decimal.NewFromFloat(q.RegularMarketPrice)
		h.setCached(symbol, price)
		return price, nil
	} else if err != nil {
		log.Warnf("yahoo quote failed for %s, trying fallbacks: %v", symbol, err)
	}

	if h.AlpacaRepository != nil {
		prices, err := h.AlpacaRepository.GetLatestPrices(ctx, []string{symbol})
		if err == nil {
			if price, ok := prices[symbol]; ok && price.IsPositive() {
				h.setCached(symbol, price)
				return price, nil
			}
		} else {
			log.Warnf("alpaca quote failed for %s: %v", symbol, err)
		}
	}

	if h.FinnhubRepository != nil {
		q, err := h.FinnhubRepository.Quote(ctx, symbol)
		if err == nil && q.Current > 0 {
			price := decimal.NewFromFloat(q.Current)
			h.setCached(symbol, price)
			return price, nil
		}
		if err != nil {
			log.Warnf("finnhub quote failed for %s: %v", symbol, err)
		}
	}

	return decimal.Zero, fmt.Errorf("no price available for %s", symbol)
}

func (h *priceServiceHandler) GetCryptoPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	cacheKey := "crypto:" + symbol
	if cached, ok := h.getCached(cacheKey); ok {
		return cached, nil
	}

	price, err := h.CoinbaseRepository.SpotPrice(ctx, symbol+"-USD")
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("no price available for %s", symbol)
	}

	h.setCached(cacheKey, price)
	return price, nil
}
