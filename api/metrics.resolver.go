package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (m ApiHandler) companyMetrics(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		symbol = c.Query("ticker")
	}
	if symbol == "" {
		returnErrorJsonCode(fmt.Errorf("missing symbol"), c, 400)
		return
	}

	body, err := m.FinnhubRepository.Metrics(c.Request.Context(), normalizeSymbol(symbol))
	if err != nil {
		returnUpstreamErrorJson(err, c)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
