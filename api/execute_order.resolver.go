package api

import (
	"papertrade/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ExecuteOrderRequest struct {
	Side           string  `json:"side"`
	Ticker         string  `json:"ticker"`
	Shares         float64 `json:"shares"`
	Price          float64 `json:"price"`
	AssetType      string  `json:"assetType"`
	AccountVersion int64   `json:"accountVersion"`
}

type OrderConfirmationResponse struct {
	Side   string  `json:"side"`
	Ticker string  `json:"ticker"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
}

func (m ApiHandler) executeOrder(c *gin.Context) {
	var requestBody ExecuteOrderRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	side := domain.TradeSide_Buy
	if requestBody.Side == "sell" || requestBody.Side == string(domain.TradeSide_Sell) {
		side = domain.TradeSide_Sell
	}
	assetType := domain.AssetType_Stock
	if requestBody.AssetType == string(domain.AssetType_Crypto) {
		assetType = domain.AssetType_Crypto
	}

	preview := &domain.OrderPreview{
		Side:           side,
		Ticker:         normalizeSymbol(requestBody.Ticker),
		Shares:         decimal.NewFromFloat(requestBody.Shares),
		Price:          decimal.NewFromFloat(requestBody.Price),
		AssetType:      assetType,
		AccountVersion: requestBody.AccountVersion,
	}
	preview.EstimatedTotal = preview.Shares.Mul(preview.Price).Round(2)

	confirmation, err := m.Ledger.ExecuteOrder(c.Request.Context(), preview)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, OrderConfirmationResponse{
		Side:   string(confirmation.Side),
		Ticker: confirmation.Ticker,
		Shares: confirmation.Shares.InexactFloat64(),
		Price:  confirmation.Price.InexactFloat64(),
	})
}
