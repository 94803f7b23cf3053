package api

import (
	"fmt"

	"papertrade/internal/domain"
	"papertrade/internal/ledger"

	"github.com/gin-gonic/gin"
)

type ReviewOrderRequest struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Quantity     float64 `json:"quantity"`
	QuantityMode string  `json:"quantityMode"`
	AssetType    string  `json:"assetType"`
}

type OrderPreviewResponse struct {
	Side           string  `json:"side"`
	Ticker         string  `json:"ticker"`
	Shares         float64 `json:"shares"`
	Price          float64 `json:"price"`
	EstimatedTotal float64 `json:"estimatedTotal"`
	AssetType      string  `json:"assetType"`
	AccountVersion int64   `json:"accountVersion"`
}

func (m ApiHandler) reviewOrder(c *gin.Context) {
	var requestBody ReviewOrderRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	input, err := reviewOrderInputFromRequest(requestBody)
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	// the price is resolved before the ledger is consulted; the ledger
	// treats it as an opaque input
	price, err := m.lookupPrice(c, input.Symbol, input.AssetType)
	if err == nil {
		input.Price = price.InexactFloat64()
	}

	preview, err := m.Ledger.ReviewOrder(c.Request.Context(), input)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, orderPreviewResponseFromDomain(preview))
}

func reviewOrderInputFromRequest(requestBody ReviewOrderRequest) (ledger.ReviewOrderInput, error) {
	side := domain.TradeSide_Buy
	switch requestBody.Side {
	case "buy", "Buy":
	case "sell", "Sell":
		side = domain.TradeSide_Sell
	default:
		return ledger.ReviewOrderInput{}, fmt.Errorf("side must be buy or sell, got %q", requestBody.Side)
	}

	quantityMode := ledger.QuantityMode_Shares
	switch requestBody.QuantityMode {
	case "", "shares":
	case "dollars":
		quantityMode = ledger.QuantityMode_Dollars
	default:
		return ledger.ReviewOrderInput{}, fmt.Errorf("quantityMode must be shares or dollars, got %q", requestBody.QuantityMode)
	}

	assetType := domain.AssetType_Stock
	if requestBody.AssetType == string(domain.AssetType_Crypto) {
		assetType = domain.AssetType_Crypto
	}

	return ledger.ReviewOrderInput{
		Symbol:       normalizeSymbol(requestBody.Symbol),
		Side:         side,
		Quantity:     requestBody.Quantity,
		QuantityMode: quantityMode,
		AssetType:    assetType,
	}, nil
}

func orderPreviewResponseFromDomain(preview *domain.OrderPreview) OrderPreviewResponse {
	return OrderPreviewResponse{
		Side:           string(preview.Side),
		Ticker:         preview.Ticker,
		Shares:         preview.Shares.InexactFloat64(),
		Price:          preview.Price.InexactFloat64(),
		EstimatedTotal: preview.EstimatedTotal.InexactFloat64(),
		AssetType:      string(preview.AssetType),
		AccountVersion: preview.AccountVersion,
	}
}
