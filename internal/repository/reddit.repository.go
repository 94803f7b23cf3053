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

const redditBaseUrl = "https://www.reddit.com"

// reddit rejects requests without a browser-looking user agent
const redditUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

type RedditRepository interface {
	TopStockPosts(ctx context.Context, limit int, timeframe string) (json.RawMessage, error)
}

func NewRedditRepository() RedditRepository {
	return &redditRepositoryHandler{
		HttpClient: &http.Client{Timeout: 10 * time.Second},
		BaseUrl:    redditBaseUrl,
	}
}

type redditRepositoryHandler struct {
	HttpClient *http.Client
	BaseUrl    string
}

func (h *redditRepositoryHandler) TopStockPosts(ctx context.Context, limit int, timeframe string) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	if timeframe == "" {
		timeframe = "day"
	}

	params := url.Values{
		"limit":    {fmt.Sprintf("%d", limit)},
		"t":        {timeframe},
		"raw_json": {"1"},
	}
	requestUrl := fmt.Sprintf("%s/r/stocks/top.json?%s", h.BaseUrl, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestUrl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", redditUserAgent)

	response, err := h.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read reddit response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit returned status %d: %s", response.StatusCode, string(body))
	}

	return body, nil
}
