package api

import (
	"github.com/gin-gonic/gin"
)

type CashAmountRequest struct {
	Amount int64 `json:"amount"`
}

type CashBalanceResponse struct {
	CashBalance     float64 `json:"cashBalance"`
	StartingBalance float64 `json:"startingBalance"`
	GoalTarget      float64 `json:"goalTarget"`
}

func (m ApiHandler) deposit(c *gin.Context) {
	var requestBody CashAmountRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	account, err := m.Ledger.Deposit(c.Request.Context(), requestBody.Amount)
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
