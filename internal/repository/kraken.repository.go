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

const krakenBaseUrl = "https://api.kraken.com/0/public"

// KrakenRepository serves OHLC candles for crypto charting.
type KrakenRepository interface {
	OHLC(ctx context.Context, pair string, intervalMinutes int) (json.RawMessage, error)
}

func NewKrakenRepository() KrakenRepository {
	return &krakenRepositoryHandler{
		HttpClient: &http.Client{Timeout: 10 * time.Second},
		BaseUrl:    krakenBaseUrl,
	}
}

type krakenRepositoryHandler struct {
	HttpClient *http.Client
	BaseUrl    string
}

func (h *krakenRepositoryHandler) OHLC(ctx context.Context, pair string, intervalMinutes int) (json.RawMessage, error) {
	params := url.Values{
		"pair":     {pair},
		"interval": {fmt.Sprintf("%d", intervalMinutes)},
	}
	requestUrl := fmt.Sprintf("%s/OHLC?%s", h.BaseUrl, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestUrl, nil)
	if err != nil {
		return nil, err
	}

	response, err := h.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kraken request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read kraken response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kraken returned status %d: %s", response.StatusCode, string(body))
	}

	return body, nil
}
