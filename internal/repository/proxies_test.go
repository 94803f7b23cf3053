package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ayush6624/go-chatgpt"
	"github.com/stretchr/testify/require"
)

func Test_FinnhubRepository_quote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		require.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		require.Equal(t, "test-key", r.URL.Query().Get("token"))
		fmt.Fprint(w, `{"c": 187.12, "h": 190, "l": 185, "o": 186, "pc": 184.5, "t": 1700000000}`)
	}))
	defer server.Close()

	r := &finnhubRepositoryHandler{
		HttpClient: server.Client(),
		ApiKey:     "test-key",
		BaseUrl:    server.URL,
	}

	quote, err := r.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 187.12, quote.Current)
	require.Equal(t, 184.5, quote.PreviousClose)
}

func Test_FinnhubRepository_upstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": "rate limited"}`)
	}))
	defer server.Close()

	r := &finnhubRepositoryHandler{
		HttpClient: server.Client(),
		ApiKey:     "test-key",
		BaseUrl:    server.URL,
	}

	_, err := r.Quote(context.Background(), "AAPL")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func Test_CoinbaseRepository_spotPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prices/BTC-USD/spot", r.URL.Path)
		fmt.Fprint(w, `{"data": {"amount": "64123.45", "base": "BTC", "currency": "USD"}}`)
	}))
	defer server.Close()

	r := &coinbaseRepositoryHandler{
		HttpClient: server.Client(),
		BaseUrl:    server.URL,
	}

	price, err := r.SpotPrice(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.Equal(t, "64123.45", price.String())
}

func Test_RedditRepository_clampsLimit(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		seen = append(seen, r.URL.Query().Get("limit")+"/"+r.URL.Query().Get("t"))
		fmt.Fprint(w, `{"data": {"children": []}}`)
	}))
	defer server.Close()

	r := &redditRepositoryHandler{
		HttpClient: server.Client(),
		BaseUrl:    server.URL,
	}
	ctx := context.Background()

	_, err := r.TopStockPosts(ctx, 0, "")
	require.NoError(t, err)
	_, err = r.TopStockPosts(ctx, 500, "week")
	require.NoError(t, err)
	_, err = r.TopStockPosts(ctx, 25, "day")
	require.NoError(t, err)

	require.Equal(t, []string{"10/day", "50/week", "25/day"}, seen)
}

func Test_TrimChatHistory(t *testing.T) {
	t.Run("clamps content and coerces roles", func(t *testing.T) {
		long := strings.Repeat("x", 3000)
		trimmed := TrimChatHistory([]ChatMessage{
			{Role: "system", Content: "you are a trading assistant"},
			{Role: "banana", Content: "hello"},
			{Role: "assistant", Content: long},
			{Role: "user", Content: ""},
		})

		require.Len(t, trimmed, 3)
		require.Equal(t, chatgpt.ChatGPTModelRoleSystem, trimmed[0].Role)
		require.Equal(t, chatgpt.ChatGPTModelRoleUser, trimmed[1].Role)
		require.Equal(t, chatgpt.ChatGPTModelRoleAssistant, trimmed[2].Role)
		require.Len(t, trimmed[2].Content, 2000)
	})

	t.Run("clamp lands on a rune boundary", func(t *testing.T) {
		// the euro sign straddles the 2000-byte cut
		content := strings.Repeat("a", 1999) + "€€€"
		trimmed := TrimChatHistory([]ChatMessage{{Role: "user", Content: content}})

		require.Len(t, trimmed, 1)
		require.True(t, utf8.ValidString(trimmed[0].Content))
		require.Equal(t, strings.Repeat("a", 1999), trimmed[0].Content)
	})

	t.Run("keeps only the last twelve", func(t *testing.T) {
		messages := []ChatMessage{}
		for i := 0; i < 30; i++ {
			messages = append(messages, ChatMessage{Role: "user", Content: fmt.Sprintf("message %d", i)})
		}

		trimmed := TrimChatHistory(messages)
		require.Len(t, trimmed, 12)
		require.Equal(t, "message 18", trimmed[0].Content)
		require.Equal(t, "message 29", trimmed[11].Content)
	})

	t.Run("empty history gets a default greeting", func(t *testing.T) {
		trimmed := TrimChatHistory(nil)
		require.Len(t, trimmed, 1)
		require.Equal(t, chatgpt.ChatGPTModelRoleUser, trimmed[0].Role)
		require.NotEmpty(t, trimmed[0].Content)
	})
}
