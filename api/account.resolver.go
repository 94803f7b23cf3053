package api

import (
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/service"

	"github.com/gin-gonic/gin"
)

type AccountResponse struct {
	CashBalance      float64            `json:"cashBalance"`
	StartingBalance  float64            `json:"startingBalance"`
	GoalTarget       float64            `json:"goalTarget"`
	TotalValue       float64            `json:"totalValue"`
	Profit           float64            `json:"profit"`
	GoalProgress     float64            `json:"goalProgress"`
	TradedVolume     float64            `json:"tradedVolume"`
	DailyFlowStdev   float64            `json:"dailyFlowStdev"`
	Positions        []PositionResponse `json:"positions"`
	TransactionCount int                `json:"transactionCount"`
	Transactions     []TransactionJson  `json:"transactions"`
}

type PositionResponse struct {
	Symbol      string  `json:"symbol"`
	Shares      float64 `json:"shares"`
	AvgPrice    float64 `json:"avgPrice"`
	AssetType   string  `json:"assetType"`
	MarketPrice float64 `json:"marketPrice"`
	MarketValue float64 `json:"marketValue"`
}

type TransactionJson struct {
	ID        string  `json:"id"`
	Ticker    string  `json:"ticker"`
	Side      string  `json:"side"`
	AssetType string  `json:"assetType"`
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
	Ts        string  `json:"ts"`
}

func (m ApiHandler) getAccount(c *gin.Context) {
	account, err := m.Ledger.Rehydrate(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	accountStats, err := m.PortfolioService.GetStats(c.Request.Context(), account)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, accountResponseFromDomain(account, accountStats))
}

func accountResponseFromDomain(account *domain.Account, accountStats *service.AccountStats) AccountResponse {
	positions := []PositionResponse{}
	for _, position := range accountStats.Positions {
		positions = append(positions, PositionResponse{
			Symbol:      position.Symbol,
			Shares:      position.Shares.InexactFloat64(),
			AvgPrice:    position.AvgPrice.InexactFloat64(),
			AssetType:   string(position.AssetType),
			MarketPrice: position.MarketPrice.InexactFloat64(),
			MarketValue: position.MarketValue.InexactFloat64(),
		})
	}

	transactions := []TransactionJson{}
	for _, transaction := range account.Transactions {
		transactions = append(transactions, TransactionJson{
			ID:        transaction.ID.String(),
			Ticker:    transaction.Ticker,
			Side:      string(transaction.Side),
			AssetType: string(transaction.AssetType),
			Qty:       transaction.Qty.InexactFloat64(),
			Price:     transaction.Price.InexactFloat64(),
			Total:     transaction.Total.InexactFloat64(),
			Ts:        transaction.Ts.Format(time.RFC3339),
		})
	}

	return AccountResponse{
		CashBalance:      accountStats.CashBalance.InexactFloat64(),
		StartingBalance:  accountStats.StartingBalance.InexactFloat64(),
		GoalTarget:       accountStats.GoalTarget.InexactFloat64(),
		TotalValue:       accountStats.TotalValue.InexactFloat64(),
		Profit:           accountStats.Profit.InexactFloat64(),
		GoalProgress:     accountStats.GoalProgress,
		TradedVolume:     accountStats.TradedVolume.InexactFloat64(),
		DailyFlowStdev:   accountStats.DailyFlowStdev,
		Positions:        positions,
		TransactionCount: accountStats.TransactionCount,
		Transactions:     transactions,
	}
}
