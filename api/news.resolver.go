package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// news serves general market headlines, or the last week of company
// news when a symbol is given.
func (m ApiHandler) news(c *gin.Context) {
	var (
		body []byte
		err  error
	)
	if symbol := c.Query("symbol"); symbol != "" {
		now := time.Now().UTC()
		body, err = m.FinnhubRepository.CompanyNews(c.Request.Context(), normalizeSymbol(symbol), now.AddDate(0, 0, -7), now)
	} else {
		body, err = m.FinnhubRepository.GeneralNews(c.Request.Context())
	}
	if err != nil {
		returnUpstreamErrorJson(err, c)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
