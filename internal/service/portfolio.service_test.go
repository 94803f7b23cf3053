package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"papertrade/internal/bus"
	"papertrade/internal/domain"
	"papertrade/internal/ledger"
	"papertrade/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fixed-price table, no network
type stubPriceService struct {
	prices map[string]float64
}

func (s *stubPriceService) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return s.lookup(symbol)
}

func (s *stubPriceService) GetCryptoPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return s.lookup("crypto:" + symbol)
}

func (s *stubPriceService) lookup(key string) (decimal.Decimal, error) {
	price, ok := s.prices[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for %s", key)
	}
	return decimal.NewFromFloat(price), nil
}

func newTestPortfolio(t *testing.T, prices map[string]float64) (PortfolioService, ledger.Ledger) {
	t.Helper()

	db, err := repository.NewTestDatabase()
	require.NoError(t, err)
	accountRepository := repository.NewAccountRepository(db)
	accountLedger := ledger.New(accountRepository, bus.New())
	return NewPortfolioService(&stubPriceService{prices: prices}), accountLedger
}

func execute(t *testing.T, l ledger.Ledger, side domain.TradeSide, symbol string, quantity, price float64) {
	t.Helper()

	ctx := context.Background()
	preview, err := l.ReviewOrder(ctx, ledger.ReviewOrderInput{
		Symbol:       symbol,
		Side:         side,
		Quantity:     quantity,
		QuantityMode: ledger.QuantityMode_Shares,
		Price:        price,
	})
	require.NoError(t, err)
	_, err = l.ExecuteOrder(ctx, preview)
	require.NoError(t, err)
}

func Test_GetStats(t *testing.T) {
	p, l := newTestPortfolio(t, map[string]float64{"AAPL": 160})
	ctx := context.Background()

	execute(t, l, domain.TradeSide_Buy, "AAPL", 10, 150)

	account, err := l.Rehydrate(ctx)
	require.NoError(t, err)
	stats, err := p.GetStats(ctx, account)
	require.NoError(t, err)

	require.Equal(t, "98500.00", stats.CashBalance.StringFixed(2))
	require.Equal(t, "100000.00", stats.StartingBalance.StringFixed(2))
	// 98500 cash + 10 * 160
	require.Equal(t, "100100.00", stats.TotalValue.StringFixed(2))
	require.Equal(t, "100.00", stats.Profit.StringFixed(2))
	require.InDelta(t, 0.005, stats.GoalProgress, 1e-9)
	require.Equal(t, "1500.00", stats.TradedVolume.StringFixed(2))
	require.Equal(t, 1, stats.TransactionCount)

	require.Len(t, stats.Positions, 1)
	require.Equal(t, "AAPL", stats.Positions[0].Symbol)
	require.Equal(t, "160", stats.Positions[0].MarketPrice.String())
	require.Equal(t, "1600.00", stats.Positions[0].MarketValue.StringFixed(2))
}

func Test_GetStats_noStoreAccess(t *testing.T) {
	// no repository or ledger at all: stats are a pure function of the
	// account handed in, so /account costs one store read
	p := NewPortfolioService(&stubPriceService{prices: map[string]float64{"MSFT": 420}})

	account := domain.NewAccount()
	account.CashBalance = decimal.NewFromInt(90000)
	account.Positions["MSFT"] = &domain.Position{
		Shares:    decimal.NewFromInt(25),
		AvgPrice:  decimal.NewFromInt(400),
		AssetType: domain.AssetType_Stock,
	}

	stats, err := p.GetStats(context.Background(), account)
	require.NoError(t, err)
	// 90000 cash + 25 * 420
	require.Equal(t, "100500.00", stats.TotalValue.StringFixed(2))
	require.Equal(t, "500.00", stats.Profit.StringFixed(2))
}

func Test_GetStats_fallsBackToCostBasis(t *testing.T) {
	p, l := newTestPortfolio(t, map[string]float64{})
	ctx := context.Background()

	execute(t, l, domain.TradeSide_Buy, "AAPL", 10, 150)

	account, err := l.Rehydrate(ctx)
	require.NoError(t, err)
	stats, err := p.GetStats(ctx, account)
	require.NoError(t, err)

	// no live price: the position is valued at its average cost
	require.Equal(t, "150", stats.Positions[0].MarketPrice.String())
	require.Equal(t, "100000.00", stats.TotalValue.StringFixed(2))
}

func Test_dailyFlowStdev(t *testing.T) {
	day := func(offset int) time.Time {
		return time.Date(2026, 3, 1+offset, 12, 0, 0, 0, time.UTC)
	}
	transaction := func(side domain.TradeSide, total float64, ts time.Time) domain.Transaction {
		return domain.Transaction{
			ID:    uuid.New(),
			Side:  side,
			Total: decimal.NewFromFloat(total),
			Ts:    ts,
		}
	}

	// a single trading day has no dispersion
	require.Zero(t, dailyFlowStdev([]domain.Transaction{
		transaction(domain.TradeSide_Buy, 100, day(0)),
		transaction(domain.TradeSide_Sell, 50, day(0)),
	}))

	// day 0 net -100, day 1 net +100: population stdev is 100
	stdev := dailyFlowStdev([]domain.Transaction{
		transaction(domain.TradeSide_Buy, 100, day(0)),
		transaction(domain.TradeSide_Sell, 100, day(1)),
	})
	require.InDelta(t, 100, stdev, 1e-9)

	require.Zero(t, dailyFlowStdev(nil))
}
