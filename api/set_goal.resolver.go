package api

import (
	"github.com/gin-gonic/gin"
)

func (m ApiHandler) setGoal(c *gin.Context) {
	var requestBody CashAmountRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	account, err := m.Ledger.SetGoalTarget(c.Request.Context(), requestBody.Amount)
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
