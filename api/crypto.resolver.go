package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CryptoSpotResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func (m ApiHandler) cryptoSpot(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		returnErrorJsonCode(fmt.Errorf("missing symbol"), c, 400)
		return
	}

	price, err := m.PriceService.GetCryptoPrice(c.Request.Context(), normalizeSymbol(symbol))
	if err != nil {
		returnUpstreamErrorJson(err, c)
		return
	}

	c.JSON(200, CryptoSpotResponse{
		Symbol: normalizeSymbol(symbol),
		Price:  price.InexactFloat64(),
	})
}

func (m ApiHandler) cryptoOhlc(c *gin.Context) {
	pair := c.Query("pair")
	if pair == "" {
		returnErrorJsonCode(fmt.Errorf("missing pair"), c, 400)
		return
	}

	interval := 60
	if raw := c.Query("interval"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			returnErrorJsonCode(fmt.Errorf("invalid interval %q", raw), c, 400)
			return
		}
		interval = parsed
	}

	body, err := m.KrakenRepository.OHLC(c.Request.Context(), pair, interval)
	if err != nil {
		returnUpstreamErrorJson(err, c)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
