package api

import (
	"github.com/gin-gonic/gin"
)

func (m ApiHandler) reset(c *gin.Context) {
	account, err := m.Ledger.Reset(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, CashBalanceResponse{
		CashBalance:     account.CashBalance.InexactFloat64(),
		StartingBalance: account.StartingBalance.InexactFloat64(),
		GoalTarget:      account.GoalTarget.InexactFloat64(),
	})
}
