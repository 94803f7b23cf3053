package ledger

import (
	"context"
	"strings"

	"papertrade/internal/domain"
	"papertrade/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rehydrate reads persisted state and normalizes it: symbols uppercased,
// dust and non-positive positions dropped, garbage numerics coerced to
// safe defaults, duplicate transactions deduped. If normalization changed
// anything the healed form is written back, so a store written by an
// older version converges instead of drifting.
func (h *ledgerHandler) Rehydrate(ctx context.Context) (*domain.Account, error) {
	log := logger.FromContext(ctx)

	account, err := h.AccountRepository.Get(ctx)
	if err != nil {
		return nil, err
	}

	normalized, changed := normalizeAccount(account)
	if changed {
		log.Infow("rehydrate healed persisted account state")
		if err := h.AccountRepository.Overwrite(ctx, normalized); err != nil {
			// degraded mode: serve the normalized form from memory anyway
			log.Warnf("failed to write back normalized account: %v", err)
		}
	}

	return normalized, nil
}

func normalizeAccount(account *domain.Account) (*domain.Account, bool) {
	changed := false
	next := account.DeepCopy()

	if next.CashBalance.IsNegative() {
		next.CashBalance = decimal.Zero
		changed = true
	}
	if next.StartingBalance.IsNegative() {
		next.StartingBalance = decimal.Zero
		changed = true
	}
	if !next.GoalTarget.IsPositive() {
		next.GoalTarget = domain.DefaultGoalTarget
		changed = true
	}

	positions := map[string]*domain.Position{}
	for symbol, position := range next.Positions {
		upper := strings.ToUpper(strings.TrimSpace(symbol))
		shares := normalizeShares(position.Shares)
		avgPrice := position.AvgPrice
		if avgPrice.IsNegative() {
			avgPrice = decimal.Zero
		}

		if upper == "" || !shares.IsPositive() {
			changed = true
			continue
		}
		if upper != symbol || !shares.Equal(position.Shares) || !avgPrice.Equal(position.AvgPrice) {
			changed = true
		}
		if _, ok := positions[upper]; ok {
			// duplicate key differing only by case; keep the first
			changed = true
			continue
		}
		positions[upper] = &domain.Position{
			Shares:    shares,
			AvgPrice:  avgPrice,
			AssetType: position.AssetType,
		}
	}
	next.Positions = positions

	seen := map[uuid.UUID]bool{}
	transactions := make([]domain.Transaction, 0, len(next.Transactions))
	for _, transaction := range next.Transactions {
		if seen[transaction.ID] {
			changed = true
			continue
		}
		seen[transaction.ID] = true
		transactions = append(transactions, transaction)
	}
	next.Transactions = transactions

	return next, changed
}
