package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"
)

type transactionCsvRow struct {
	ID        string  `csv:"id"`
	Ticker    string  `csv:"ticker"`
	Side      string  `csv:"side"`
	AssetType string  `csv:"asset_type"`
	Qty       float64 `csv:"qty"`
	Price     float64 `csv:"price"`
	Total     float64 `csv:"total"`
	Ts        string  `csv:"ts"`
}

func (m ApiHandler) exportTransactions(c *gin.Context) {
	account, err := m.Ledger.Rehydrate(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	rows := []transactionCsvRow{}
	for _, transaction := range account.Transactions {
		rows = append(rows, transactionCsvRow{
			ID:        transaction.ID.String(),
			Ticker:    transaction.Ticker,
			Side:      string(transaction.Side),
			AssetType: string(transaction.AssetType),
			Qty:       transaction.Qty.InexactFloat64(),
			Price:     transaction.Price.InexactFloat64(),
			Total:     transaction.Total.InexactFloat64(),
			Ts:        transaction.Ts.Format(time.RFC3339),
		})
	}

	csvContent, err := gocsv.MarshalString(&rows)
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to encode transactions: %w", err), c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="transactions.csv"`)
	c.Data(http.StatusOK, "text/csv", []byte(csvContent))
}
