package api

import (
	"github.com/gin-gonic/gin"
)

type AddWatchlistRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (m ApiHandler) getWatchlist(c *gin.Context) {
	entries, err := m.WatchlistService.List(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, entries)
}

func (m ApiHandler) addToWatchlist(c *gin.Context) {
	var requestBody AddWatchlistRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	entries, err := m.WatchlistService.AddSymbol(c.Request.Context(), requestBody.Symbol, requestBody.Name)
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}
	c.JSON(200, entries)
}

func (m ApiHandler) removeFromWatchlist(c *gin.Context) {
	entries, err := m.WatchlistService.RemoveSymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, entries)
}
