package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const finnhubBaseUrl = "https://finnhub.io/api/v1"

type FinnhubQuote struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// FinnhubRepository fronts the market-data endpoints the UI consumes.
// Most methods pass the upstream body through untouched; only Quote is
// decoded, because the price service needs the number.
type FinnhubRepository interface {
	Quote(ctx context.Context, symbol string) (*FinnhubQuote, error)
	GeneralNews(ctx context.Context) (json.RawMessage, error)
	CompanyNews(ctx context.Context, symbol string, from, to time.Time) (json.RawMessage, error)
	CompanyProfile(ctx context.Context, symbol string) (json.RawMessage, error)
	Metrics(ctx context.Context, symbol string) (json.RawMessage, error)
	SymbolLookup(ctx context.Context, query, exchange string) (json.RawMessage, error)
}

func NewFinnhubRepository(apiKey string) FinnhubRepository {
	return &finnhubRepositoryHandler{
		HttpClient: &http.Client{Timeout: 10 * time.Second},
		ApiKey:     apiKey,
		BaseUrl:    finnhubBaseUrl,
	}
}

type finnhubRepositoryHandler struct {
	HttpClient *http.Client
	ApiKey     string
	BaseUrl    string
}

func (h *finnhubRepositoryHandler) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	params.Set("token", h.ApiKey)
	requestUrl := fmt.Sprintf("%s%s?%s", h.BaseUrl, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestUrl, nil)
	if err != nil {
		return nil, err
	}
	response, err := h.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read finnhub response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub returned status %d: %s", response.StatusCode, string(body))
	}

	return body, nil
}

func (h *finnhubRepositoryHandler) Quote(ctx context.Context, symbol string) (*FinnhubQuote, error) {
	body, err := h.get(ctx, "/quote", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}

	quote := FinnhubQuote{}
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode finnhub quote: %w", err)
	}

	return &quote, nil
}

func (h *finnhubRepositoryHandler) GeneralNews(ctx context.Context) (json.RawMessage, error) {
	return h.get(ctx, "/news", url.Values{"category": {"general"}})
}

func (h *finnhubRepositoryHandler) CompanyNews(ctx context.Context, symbol string, from, to time.Time) (json.RawMessage, error) {
	return h.get(ctx, "/company-news", url.Values{
		"symbol": {symbol},
		"from":   {from.Format("2006-01-02")},
		"to":     {to.Format("2006-01-02")},
	})
}

func (h *finnhubRepositoryHandler) CompanyProfile(ctx context.Context, symbol string) (json.RawMessage, error) {
	return h.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}})
}

func (h *finnhubRepositoryHandler) Metrics(ctx context.Context, symbol string) (json.RawMessage, error) {
	return h.get(ctx, "/stock/metric", url.Values{"symbol": {symbol}, "metric": {"all"}})
}

func (h *finnhubRepositoryHandler) SymbolLookup(ctx context.Context, query, exchange string) (json.RawMessage, error) {
	params := url.Values{"q": {query}}
	if exchange != "" {
		params.Set("exchange", exchange)
	}
	return h.get(ctx, "/search", params)
}
