package ledger

import (
	"context"
	"errors"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/logger"
	"papertrade/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceLookup resolves a current market price for a symbol. Callers own
// any network fetch; the ledger only sees the resolved number.
type PriceLookup interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// SeedStarterPositions gives a fresh account one share of each starter
// ticker, purchased at the looked-up market price. It runs at most once
// per profile: a persisted flag guards re-runs, and an account that
// already holds positions or history is left alone.
func (h *ledgerHandler) SeedStarterPositions(ctx context.Context, tickers []string, lookup PriceLookup) error {
	log := logger.FromContext(ctx)

	account, err := h.AccountRepository.Get(ctx)
	if err != nil {
		return err
	}
	if account.Seeded {
		return nil
	}
	if len(account.Positions) > 0 || len(account.Transactions) > 0 {
		return nil
	}

	next := account.DeepCopy()
	now := time.Now().UTC()
	totalCost := decimal.Zero

	for i, ticker := range tickers {
		price, err := lookup.GetPrice(ctx, ticker)
		if err != nil || !price.IsPositive() {
			// a failed lookup shouldn't abort the whole seed
			log.Warnf("starter seed price lookup failed for %s, using 1: %v", ticker, err)
			price = decimal.NewFromInt(1)
		}
		price = price.Round(2)
		totalCost = totalCost.Add(price)

		next.Positions[ticker] = &domain.Position{
			Shares:    decimal.NewFromInt(1),
			AvgPrice:  price,
			AssetType: domain.AssetType_Stock,
		}
		next.Transactions = append(next.Transactions, domain.Transaction{
			ID:        uuid.New(),
			Ticker:    ticker,
			Side:      domain.TradeSide_Buy,
			AssetType: domain.AssetType_Stock,
			Qty:       decimal.NewFromInt(1),
			Price:     price,
			Total:     price,
			Ts:        now.Add(-time.Duration(i) * time.Second),
		})
	}

	next.CashBalance = decimal.Max(decimal.Zero, next.CashBalance.Sub(totalCost)).Round(2)
	next.Seeded = true

	err = h.AccountRepository.Save(ctx, next, account.Version)
	if errors.Is(err, repository.ErrVersionConflict) {
		return ErrStaleState
	}
	if err != nil {
		return err
	}

	h.Bus.Broadcast()
	return nil
}
