package api

import (
	"papertrade/internal/domain"

	"github.com/gin-gonic/gin"
)

func (m ApiHandler) seedStarterPositions(c *gin.Context) {
	// PriceService satisfies the ledger's PriceLookup
	err := m.Ledger.SeedStarterPositions(c.Request.Context(), domain.StarterTickers, m.PriceService)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, map[string]string{"message": "ok"})
}
