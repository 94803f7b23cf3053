package service

import (
	"context"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/logger"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

type PositionStats struct {
	Symbol      string
	Shares      decimal.Decimal
	AvgPrice    decimal.Decimal
	AssetType   domain.AssetType
	MarketPrice decimal.Decimal
	MarketValue decimal.Decimal
}

type AccountStats struct {
	CashBalance      decimal.Decimal
	StartingBalance  decimal.Decimal
	GoalTarget       decimal.Decimal
	TotalValue       decimal.Decimal
	Profit           decimal.Decimal
	GoalProgress     float64
	TradedVolume     decimal.Decimal
	DailyFlowStdev   float64
	Positions        []PositionStats
	TransactionCount int
}

// PortfolioService derives display stats from an already-rehydrated
// account: total value over both asset pools, profit against the
// starting balance, and dispersion of daily trade flows. It never
// touches the store itself, so callers pay for one read per request.
type PortfolioService interface {
	GetStats(ctx context.Context, account *domain.Account) (*AccountStats, error)
}

func NewPortfolioService(priceService PriceService) PortfolioService {
	return &portfolioServiceHandler{
		PriceService: priceService,
	}
}

type portfolioServiceHandler struct {
	PriceService PriceService
}

func (h *portfolioServiceHandler) GetStats(ctx context.Context, account *domain.Account) (*AccountStats, error) {
	log := logger.FromContext(ctx)

	priceMap := map[string]decimal.Decimal{}
	for symbol, position := range account.Positions {
		var price decimal.Decimal
		var priceErr error
		if position.AssetType == domain.AssetType_Crypto {
			price, priceErr = h.PriceService.GetCryptoPrice(ctx, symbol)
		} else {
			price, priceErr = h.PriceService.GetPrice(ctx, symbol)
		}
		if priceErr != nil {
			// a stale valuation beats a failed page; fall back to cost basis
			log.Warnf("no live price for %s, valuing at cost: %v", symbol, priceErr)
			price = position.AvgPrice
		}
		priceMap[symbol] = price
	}

	totalValue, err := account.TotalValue(priceMap)
	if err != nil {
		return nil, err
	}

	profit := totalValue.Sub(account.StartingBalance)
	goalProgress := 0.0
	if account.GoalTarget.IsPositive() {
		goalProgress = profit.Div(account.GoalTarget).InexactFloat64()
	}

	tradedVolume := decimal.Zero
	for _, transaction := range account.Transactions {
		tradedVolume = tradedVolume.Add(transaction.Total.Abs())
	}

	positions := []PositionStats{}
	for symbol, position := range account.Positions {
		positions = append(positions, PositionStats{
			Symbol:      symbol,
			Shares:      position.Shares,
			AvgPrice:    position.AvgPrice,
			AssetType:   position.AssetType,
			MarketPrice: priceMap[symbol],
			MarketValue: position.Shares.Mul(priceMap[symbol]).Round(2),
		})
	}

	return &AccountStats{
		CashBalance:      account.CashBalance,
		StartingBalance:  account.StartingBalance,
		GoalTarget:       account.GoalTarget,
		TotalValue:       totalValue.Round(2),
		Profit:           profit.Round(2),
		GoalProgress:     goalProgress,
		TradedVolume:     tradedVolume.Round(2),
		DailyFlowStdev:   dailyFlowStdev(account.Transactions),
		Positions:        positions,
		TransactionCount: len(account.Transactions),
	}, nil
}

// dailyFlowStdev measures how lumpy trading activity is: the standard
// deviation of net cash flow (sells minus buys) per trading day.
func dailyFlowStdev(transactions []domain.Transaction) float64 {
	flows := map[string]decimal.Decimal{}
	for _, transaction := range transactions {
		day := transaction.Ts.Format(time.DateOnly)
		delta := transaction.Total
		if transaction.Side == domain.TradeSide_Buy {
			delta = delta.Neg()
		}
		flows[day] = flows[day].Add(delta)
	}

	if len(flows) < 2 {
		return 0
	}

	samples := []float64{}
	for _, flow := range flows {
		samples = append(samples, flow.InexactFloat64())
	}

	stdev, err := stats.StandardDeviation(samples)
	if err != nil {
		return 0
	}
	return stdev
}
