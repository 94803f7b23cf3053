package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (m ApiHandler) redditTop(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	body, err := m.RedditRepository.TopStockPosts(c.Request.Context(), limit, c.Query("t"))
	if err != nil {
		returnUpstreamErrorJson(err, c)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
