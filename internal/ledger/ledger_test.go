package ledger

import (
	"context"
	"math/rand"
	"testing"

	"papertrade/internal/bus"
	"papertrade/internal/domain"
	"papertrade/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (Ledger, repository.AccountRepository) {
	t.Helper()

	db, err := repository.NewTestDatabase()
	require.NoError(t, err)

	accountRepository := repository.NewAccountRepository(db)
	return New(accountRepository, bus.New()), accountRepository
}

func executeTrade(t *testing.T, l Ledger, side domain.TradeSide, symbol string, quantity, price float64) *domain.OrderConfirmation {
	t.Helper()

	preview, err := l.ReviewOrder(context.Background(), ReviewOrderInput{
		Symbol:       symbol,
		Side:         side,
		Quantity:     quantity,
		QuantityMode: QuantityMode_Shares,
		Price:        price,
	})
	require.NoError(t, err)

	confirmation, err := l.ExecuteOrder(context.Background(), preview)
	require.NoError(t, err)
	return confirmation
}

func Test_ExampleScenario(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	executeTrade(t, l, domain.TradeSide_Buy, "AAPL", 10, 150)

	account, err := l.Rehydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, "98500.00", account.CashBalance.StringFixed(2))
	require.Equal(t, "10", account.Positions["AAPL"].Shares.String())
	require.Equal(t, "150", account.Positions["AAPL"].AvgPrice.String())
	require.Len(t, account.Transactions, 1)
	require.Equal(t, "1500.00", account.Transactions[0].Total.StringFixed(2))

	executeTrade(t, l, domain.TradeSide_Buy, "AAPL", 5, 180)

	account, err = l.Rehydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, "97600.00", account.CashBalance.StringFixed(2))
	require.Equal(t, "15", account.Positions["AAPL"].Shares.String())
	// (10*150 + 5*180) / 15
	require.Equal(t, "160.00", account.Positions["AAPL"].AvgPrice.StringFixed(2))

	executeTrade(t, l, domain.TradeSide_Sell, "AAPL", 15, 170)

	account, err = l.Rehydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, "100150.00", account.CashBalance.StringFixed(2))
	require.NotContains(t, account.Positions, "AAPL")

	// selling with no position is rejected and mutates nothing
	_, err = l.ReviewOrder(ctx, ReviewOrderInput{
		Symbol:       "AAPL",
		Side:         domain.TradeSide_Sell,
		Quantity:     1,
		QuantityMode: QuantityMode_Shares,
		Price:        170,
	})
	require.ErrorIs(t, err, ErrInsufficientShares)

	_, err = l.ReviewOrder(ctx, ReviewOrderInput{
		Symbol:       "AAPL",
		Side:         domain.TradeSide_Buy,
		Quantity:     999999,
		QuantityMode: QuantityMode_Dollars,
		Price:        170,
	})
	require.ErrorIs(t, err, ErrInsufficientCash)

	account, err = l.Rehydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, "100150.00", account.CashBalance.StringFixed(2))

	account, err = l.Deposit(ctx, 5000)
	require.NoError(t, err)
	require.Equal(t, "105150.00", account.CashBalance.StringFixed(2))
	require.Equal(t, "105000.00", account.StartingBalance.StringFixed(2))
}

func Test_ReviewOrder_validationOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    ReviewOrderInput
		expected error
	}{
		{
			name: "price unavailable wins over everything",
			input: ReviewOrderInput{
				Symbol: "", Side: domain.TradeSide_Buy, Quantity: -1, Price: 0,
			},
			expected: ErrPriceUnavailable,
		},
		{
			name: "empty symbol",
			input: ReviewOrderInput{
				Symbol: "", Side: domain.TradeSide_Buy, Quantity: 1, Price: 100,
			},
			expected: ErrInvalidSymbol,
		},
		{
			name: "zero quantity",
			input: ReviewOrderInput{
				Symbol: "AAPL", Side: domain.TradeSide_Buy, Quantity: 0, Price: 100,
			},
			expected: ErrInvalidQuantity,
		},
		{
			name: "negative quantity",
			input: ReviewOrderInput{
				Symbol: "AAPL", Side: domain.TradeSide_Buy, Quantity: -5, Price: 100,
			},
			expected: ErrInvalidQuantity,
		},
		{
			name: "sell without position",
			input: ReviewOrderInput{
				Symbol: "AAPL", Side: domain.TradeSide_Sell, Quantity: 1, Price: 100,
			},
			expected: ErrInsufficientShares,
		},
		{
			name: "buy beyond cash",
			input: ReviewOrderInput{
				Symbol: "AAPL", Side: domain.TradeSide_Buy, Quantity: 10000, Price: 100,
			},
			expected: ErrInsufficientCash,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.input.QuantityMode = QuantityMode_Shares
			_, err := l.ReviewOrder(ctx, tc.input)
			require.ErrorIs(t, err, tc.expected)
		})
	}
}

func Test_ReviewOrder_dollarsMode(t *testing.T) {
	l, _ := newTestLedger(t)

	preview, err := l.ReviewOrder(context.Background(), ReviewOrderInput{
		Symbol:       "MSFT",
		Side:         domain.TradeSide_Buy,
		Quantity:     1000,
		QuantityMode: QuantityMode_Dollars,
		Price:        400,
	})
	require.NoError(t, err)
	require.Equal(t, "2.5", preview.Shares.String())
	require.Equal(t, "1000.00", preview.EstimatedTotal.StringFixed(2))
}

func Test_ReviewOrder_dollarsModeFullBalance(t *testing.T) {
	// spending exactly all cash must pass at any price, even when the
	// 4dp share rounding lands above the dollar input
	for _, price := range []float64{287.53, 411.19, 101.37, 150, 333.33} {
		l, _ := newTestLedger(t)

		preview, err := l.ReviewOrder(context.Background(), ReviewOrderInput{
			Symbol:       "AAPL",
			Side:         domain.TradeSide_Buy,
			Quantity:     100000,
			QuantityMode: QuantityMode_Dollars,
			Price:        price,
		})
		require.NoError(t, err, "rejected at price %v", price)
		require.Equal(t, "100000.00", preview.EstimatedTotal.StringFixed(2))
	}
}

func Test_ReviewOrder_epsilonTolerance(t *testing.T) {
	l, _ := newTestLedger(t)

	// exactly all cash is spendable
	preview, err := l.ReviewOrder(context.Background(), ReviewOrderInput{
		Symbol:       "SPY",
		Side:         domain.TradeSide_Buy,
		Quantity:     1000,
		QuantityMode: QuantityMode_Shares,
		Price:        100,
	})
	require.NoError(t, err)
	require.Equal(t, "100000.00", preview.EstimatedTotal.StringFixed(2))
}

func Test_RejectionPurity(t *testing.T) {
	l, accountRepository := newTestLedger(t)
	ctx := context.Background()

	executeTrade(t, l, domain.TradeSide_Buy, "AAPL", 10, 150)

	before, err := accountRepository.Get(ctx)
	require.NoError(t, err)

	_, err = l.ReviewOrder(ctx, ReviewOrderInput{
		Symbol: "AAPL", Side: domain.TradeSide_Sell, Quantity: 50,
		QuantityMode: QuantityMode_Shares, Price: 150,
	})
	require.ErrorIs(t, err, ErrInsufficientShares)

	_, err = l.Withdraw(ctx, 999999)
	require.ErrorIs(t, err, ErrInsufficientCash)

	_, err = l.Deposit(ctx, -5)
	require.ErrorIs(t, err, ErrInvalidAmount)

	after, err := accountRepository.Get(ctx)
	require.NoError(t, err)

	require.Equal(t, before.CashBalance.String(), after.CashBalance.String())
	require.Equal(t, before.Version, after.Version)
	require.Len(t, after.Transactions, len(before.Transactions))
	require.Len(t, after.Positions, len(before.Positions))
}

func Test_PositionClosure(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	executeTrade(t, l, domain.TradeSide_Buy, "TSLA", 10, 100)
	executeTrade(t, l, domain.TradeSide_Sell, "TSLA", 10, 100)

	account, err := l.Rehydrate(ctx)
	require.NoError(t, err)
	require.NotContains(t, account.Positions, "TSLA")
}

func Test_normalizeShares_dust(t *testing.T) {
	require.Equal(t, "0", normalizeShares(decimal.RequireFromString("0.004")).String())
	require.Equal(t, "0", normalizeShares(decimal.RequireFromString("0.0049")).String())
	require.Equal(t, "0.01", normalizeShares(decimal.RequireFromString("0.005")).String())
	require.Equal(t, "10", normalizeShares(decimal.RequireFromString("10.001")).String())
}

func Test_ExecuteOrder_assetTypeFollowsPosition(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	executeTrade(t, l, domain.TradeSide_Buy, "AAPL", 10, 150)

	// a preview carrying a conflicting asset type does not retag the
	// position, and the recorded transaction matches the position
	preview, err := l.ReviewOrder(ctx, ReviewOrderInput{
		Symbol:       "AAPL",
		Side:         domain.TradeSide_Buy,
		Quantity:     5,
		QuantityMode: QuantityMode_Shares,
		Price:        150,
		AssetType:    domain.AssetType_Crypto,
	})
	require.NoError(t, err)
	_, err = l.ExecuteOrder(ctx, preview)
	require.NoError(t, err)

	account, err := l.Rehydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.AssetType_Stock, account.Positions["AAPL"].AssetType)
	require.Equal(t, domain.AssetType_Stock, account.Transactions[0].AssetType)
}

func Test_SellNeverMovesAvgPrice(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	executeTrade(t, l, domain.TradeSide_Buy, "NVDA", 10, 500)
	executeTrade(t, l, domain.TradeSide_Sell, "NVDA", 4, 900)

	account, err := l.Rehydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, "6", account.Positions["NVDA"].Shares.String())
	require.Equal(t, "500.00", account.Positions["NVDA"].AvgPrice.StringFixed(2))
}

func Test_Withdraw_clampsStartingBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	account, err := l.Withdraw(ctx, 100000)
	require.NoError(t, err)
	require.Equal(t, "0.00", account.CashBalance.StringFixed(2))
	require.Equal(t, "0.00", account.StartingBalance.StringFixed(2))

	_, err = l.Withdraw(ctx, 1)
	require.ErrorIs(t, err, ErrInsufficientCash)
}

func Test_SetGoalTarget(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	account, err := l.SetGoalTarget(ctx, 50000)
	require.NoError(t, err)
	require.Equal(t, "50000.00", account.GoalTarget.StringFixed(2))

	_, err = l.SetGoalTarget(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func Test_Reset_isIdempotent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	executeTrade(t, l, domain.TradeSide_Buy, "AAPL", 10, 150)
	_, err := l.Deposit(ctx, 5000)
	require.NoError(t, err)

	account, err := l.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, "100000.00", account.CashBalance.StringFixed(2))
	require.Empty(t, account.Positions)
	require.Empty(t, account.Transactions)
	require.False(t, account.Seeded)

	again, err := l.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, account.CashBalance.String(), again.CashBalance.String())
	require.Empty(t, again.Positions)
}

func Test_StaleState_surfacesConflict(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	stale := &staleRepository{inner: mustRepo(t)}
	conflicted := New(stale, bus.New())

	preview, err := l.ReviewOrder(ctx, ReviewOrderInput{
		Symbol: "AAPL", Side: domain.TradeSide_Buy, Quantity: 1,
		QuantityMode: QuantityMode_Shares, Price: 100,
	})
	require.NoError(t, err)

	_, err = conflicted.ExecuteOrder(ctx, preview)
	require.ErrorIs(t, err, ErrStaleState)
}

func mustRepo(t *testing.T) repository.AccountRepository {
	t.Helper()
	db, err := repository.NewTestDatabase()
	require.NoError(t, err)
	return repository.NewAccountRepository(db)
}

// staleRepository fails every Save the way a lost CAS race would.
type staleRepository struct {
	inner repository.AccountRepository
}

func (r *staleRepository) Get(ctx context.Context) (*domain.Account, error) {
	return r.inner.Get(ctx)
}

func (r *staleRepository) Save(ctx context.Context, account *domain.Account, expectedVersion int64) error {
	return repository.ErrVersionConflict
}

func (r *staleRepository) Overwrite(ctx context.Context, account *domain.Account) error {
	return r.inner.Overwrite(ctx, account)
}

func (r *staleRepository) GetKey(ctx context.Context, key string) (string, bool, error) {
	return r.inner.GetKey(ctx, key)
}

func (r *staleRepository) SetKey(ctx context.Context, key, value string) error {
	return r.inner.SetKey(ctx, key, value)
}

func (r *staleRepository) DeleteKey(ctx context.Context, key string) error {
	return r.inner.DeleteKey(ctx, key)
}

func Test_Conservation_randomSequences(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	symbols := []string{"AAPL", "MSFT", "SPY", "GLD"}
	expectedCash := decimal.NewFromInt(100000)

	for i := 0; i < 200; i++ {
		symbol := symbols[rng.Intn(len(symbols))]
		side := domain.TradeSide_Buy
		if rng.Intn(2) == 1 {
			side = domain.TradeSide_Sell
		}
		quantity := decimal.NewFromFloat(rng.Float64() * 20).Round(2)
		price := decimal.NewFromFloat(1 + rng.Float64()*499).Round(2)

		preview, err := l.ReviewOrder(ctx, ReviewOrderInput{
			Symbol:       symbol,
			Side:         side,
			Quantity:     quantity.InexactFloat64(),
			QuantityMode: QuantityMode_Shares,
			Price:        price.InexactFloat64(),
		})
		if err != nil {
			require.True(t, IsRejection(err), "unexpected error class: %v", err)
			continue
		}

		_, err = l.ExecuteOrder(ctx, preview)
		require.NoError(t, err)

		total := preview.Shares.Mul(preview.Price).Round(2)
		if side == domain.TradeSide_Buy {
			expectedCash = expectedCash.Sub(total)
		} else {
			expectedCash = expectedCash.Add(total)
		}

		account, err := l.Rehydrate(ctx)
		require.NoError(t, err)
		require.Equal(t, expectedCash.StringFixed(2), account.CashBalance.StringFixed(2))
		require.False(t, account.CashBalance.IsNegative(), "cash went negative on step %d", i)
	}
}

func Test_ReplayConsistency(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	executeTrade(t, l, domain.TradeSide_Buy, "AAPL", 10, 150)
	executeTrade(t, l, domain.TradeSide_Buy, "MSFT", 3, 400)
	executeTrade(t, l, domain.TradeSide_Buy, "AAPL", 5, 180)
	executeTrade(t, l, domain.TradeSide_Sell, "AAPL", 8, 170)
	executeTrade(t, l, domain.TradeSide_Sell, "MSFT", 3, 390)

	account, err := l.Rehydrate(ctx)
	require.NoError(t, err)

	// replay the log oldest-first from an empty book
	replayedCash := decimal.NewFromInt(100000)
	replayedPositions := map[string]*domain.Position{}
	for i := len(account.Transactions) - 1; i >= 0; i-- {
		transaction := account.Transactions[i]
		if transaction.Side == domain.TradeSide_Buy {
			replayedCash = replayedCash.Sub(transaction.Total)
			existing := replayedPositions[transaction.Ticker]
			if existing == nil {
				existing = &domain.Position{}
			}
			newShares := existing.Shares.Add(transaction.Qty)
			newAvg := existing.AvgPrice.Mul(existing.Shares).
				Add(transaction.Price.Mul(transaction.Qty)).
				DivRound(newShares, 2)
			replayedPositions[transaction.Ticker] = &domain.Position{Shares: newShares, AvgPrice: newAvg}
		} else {
			replayedCash = replayedCash.Add(transaction.Total)
			existing := replayedPositions[transaction.Ticker]
			require.NotNil(t, existing)
			existing.Shares = existing.Shares.Sub(transaction.Qty)
			if existing.Shares.LessThan(domain.DustThreshold) {
				delete(replayedPositions, transaction.Ticker)
			}
		}
	}

	require.Equal(t, replayedCash.StringFixed(2), account.CashBalance.StringFixed(2))
	require.Len(t, account.Positions, len(replayedPositions))
	for symbol, replayed := range replayedPositions {
		position, ok := account.Positions[symbol]
		require.True(t, ok, "missing position %s", symbol)
		require.Equal(t, replayed.Shares.StringFixed(2), position.Shares.StringFixed(2))
		require.Equal(t, replayed.AvgPrice.StringFixed(2), position.AvgPrice.StringFixed(2))
	}
}
