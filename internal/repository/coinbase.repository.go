package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const coinbaseBaseUrl = "https://api.coinbase.com/v2"

// CoinbaseRepository resolves crypto spot prices for SYMBOL-USD pairs.
type CoinbaseRepository interface {
	SpotPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

func NewCoinbaseRepository() CoinbaseRepository {
	return &coinbaseRepositoryHandler{
		HttpClient: &http.Client{Timeout: 10 * time.Second},
		BaseUrl:    coinbaseBaseUrl,
	}
}

type coinbaseRepositoryHandler struct {
	HttpClient *http.Client
	BaseUrl    string
}

type coinbaseSpotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Base     string `json:"base"`
		Currency string `json:"currency"`
	} `json:"data"`
}

func (h *coinbaseRepositoryHandler) SpotPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	requestUrl := fmt.Sprintf("%s/prices/%s/spot", h.BaseUrl, pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestUrl, nil)
	if err != nil {
		return decimal.Zero, err
	}

	response, err := h.HttpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coinbase request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read coinbase response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coinbase returned status %d: %s", response.StatusCode, string(body))
	}

	parsed := coinbaseSpotResponse{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode coinbase spot price: %w", err)
	}

	price, err := decimal.NewFromString(parsed.Data.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coinbase returned unparseable amount %q: %w", parsed.Data.Amount, err)
	}

	return price, nil
}
