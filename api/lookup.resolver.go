package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (m ApiHandler) symbolLookup(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		returnErrorJsonCode(fmt.Errorf("missing query parameter q"), c, 400)
		return
	}

	body, err := m.FinnhubRepository.SymbolLookup(c.Request.Context(), query, c.Query("exchange"))
	if err != nil {
		returnUpstreamErrorJson(err, c)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
