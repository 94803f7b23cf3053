package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

func (m ApiHandler) quote(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		symbol = c.Query("ticker")
	}
	if symbol == "" {
		returnErrorJsonCode(fmt.Errorf("missing symbol"), c, 400)
		return
	}

	quote, err := m.FinnhubRepository.Quote(c.Request.Context(), normalizeSymbol(symbol))
	if err != nil {
		returnUpstreamErrorJson(err, c)
		return
	}

	c.JSON(200, quote)
}
