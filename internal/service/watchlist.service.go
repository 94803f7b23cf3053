package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"papertrade/internal/bus"
	"papertrade/internal/logger"
	"papertrade/internal/repository"
)

type WatchlistEntry struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

var defaultWatchlist = []WatchlistEntry{
	{Symbol: "AAPL", Name: "Apple"},
	{Symbol: "MSFT", Name: "Microsoft"},
	{Symbol: "TSLA", Name: "Tesla"},
}

// WatchlistService owns the persisted symbol watchlist. It follows the
// same persist-then-broadcast pattern as the ledger but carries no
// monetary invariants; the list is just deduped by symbol.
type WatchlistService interface {
	List(ctx context.Context) ([]WatchlistEntry, error)
	AddSymbol(ctx context.Context, symbol, name string) ([]WatchlistEntry, error)
	RemoveSymbol(ctx context.Context, symbol string) ([]WatchlistEntry, error)
}

func NewWatchlistService(accountRepository repository.AccountRepository, changeBus *bus.Bus) WatchlistService {
	return &watchlistServiceHandler{
		AccountRepository: accountRepository,
		Bus:               changeBus,
	}
}

type watchlistServiceHandler struct {
	AccountRepository repository.AccountRepository
	Bus               *bus.Bus
}

func normalizeWatchlist(raw []WatchlistEntry) []WatchlistEntry {
	seen := map[string]bool{}
	clean := []WatchlistEntry{}
	for _, entry := range raw {
		symbol := strings.ToUpper(strings.TrimSpace(entry.Symbol))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		clean = append(clean, WatchlistEntry{Symbol: symbol, Name: entry.Name})
	}
	return clean
}

func (h *watchlistServiceHandler) List(ctx context.Context) ([]WatchlistEntry, error) {
	log := logger.FromContext(ctx)

	raw, ok, err := h.AccountRepository.GetKey(ctx, repository.WatchlistKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		// first read seeds the default list
		if err := h.persist(ctx, defaultWatchlist); err != nil {
			return nil, err
		}
		return defaultWatchlist, nil
	}

	entries := []WatchlistEntry{}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Warnf("malformed watchlist, resetting to default: %v", err)
		if err := h.persist(ctx, defaultWatchlist); err != nil {
			return nil, err
		}
		return defaultWatchlist, nil
	}

	return normalizeWatchlist(entries), nil
}

func (h *watchlistServiceHandler) AddSymbol(ctx context.Context, symbol, name string) ([]WatchlistEntry, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("symbol must not be empty")
	}

	entries, err := h.List(ctx)
	if err != nil {
		return nil, err
	}

	next := normalizeWatchlist(append(entries, WatchlistEntry{Symbol: symbol, Name: name}))
	if err := h.persist(ctx, next); err != nil {
		return nil, err
	}

	h.Bus.Broadcast()
	return next, nil
}

func (h *watchlistServiceHandler) RemoveSymbol(ctx context.Context, symbol string) ([]WatchlistEntry, error) {
	entries, err := h.List(ctx)
	if err != nil {
		return nil, err
	}

	target := strings.ToUpper(strings.TrimSpace(symbol))
	next := []WatchlistEntry{}
	for _, entry := range entries {
		if entry.Symbol != target {
			next = append(next, entry)
		}
	}

	if err := h.persist(ctx, next); err != nil {
		return nil, err
	}

	h.Bus.Broadcast()
	return next, nil
}

func (h *watchlistServiceHandler) persist(ctx context.Context, entries []WatchlistEntry) error {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode watchlist: %w", err)
	}
	return h.AccountRepository.SetKey(ctx, repository.WatchlistKey, string(encoded))
}
