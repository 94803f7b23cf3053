package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"papertrade/internal/bus"
	"papertrade/internal/domain"
	"papertrade/internal/ledger"
	"papertrade/internal/logger"
	"papertrade/internal/repository"
	"papertrade/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ApiHandler struct {
	Ledger            ledger.Ledger
	PortfolioService  service.PortfolioService
	WatchlistService  service.WatchlistService
	PriceService      service.PriceService
	FinnhubRepository repository.FinnhubRepository
	KrakenRepository  repository.KrakenRepository
	RedditRepository  repository.RedditRepository
	GptRepository     repository.GptRepository
	Bus               *bus.Bus
}

func (m ApiHandler) InitializeRouterEngine() *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(logRequestMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to papertrade"})
	})

	router.GET("/account", m.getAccount)
	router.POST("/orders/review", m.reviewOrder)
	router.POST("/orders/execute", m.executeOrder)
	router.POST("/account/deposit", m.deposit)
	router.POST("/account/withdraw", m.withdraw)
	router.POST("/account/goal", m.setGoal)
	router.POST("/account/reset", m.reset)
	router.POST("/account/seed", m.seedStarterPositions)
	router.GET("/account/transactions/export", m.exportTransactions)

	router.GET("/watchlist", m.getWatchlist)
	router.POST("/watchlist", m.addToWatchlist)
	router.DELETE("/watchlist/:symbol", m.removeFromWatchlist)

	router.GET("/events", m.streamEvents)

	router.GET("/quote", m.quote)
	router.GET("/news", m.news)
	router.GET("/profile", m.companyProfile)
	router.GET("/metrics", m.companyMetrics)
	router.GET("/lookup", m.symbolLookup)
	router.GET("/crypto/spot", m.cryptoSpot)
	router.GET("/crypto/ohlc", m.cryptoOhlc)
	router.GET("/reddit/top", m.redditTop)
	router.POST("/chat", m.chat)

	return router
}

func (m ApiHandler) StartApi(port int) error {
	router := m.InitializeRouterEngine()
	return router.Run(fmt.Sprintf(":%d", port))
}

func returnErrorJson(err error, c *gin.Context) {
	code := 500
	switch {
	case errors.Is(err, ledger.ErrStaleState):
		code = 409
	case ledger.IsRejection(err):
		code = 400
	}
	returnErrorJsonCode(err, c, code)
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	logger.FromContext(c.Request.Context()).Warnf("request failed: %v", err)
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

// upstream proxy failures surface as 502 so the client can tell
// "their side" from "our side"
func returnUpstreamErrorJson(err error, c *gin.Context) {
	returnErrorJsonCode(err, c, 502)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (m ApiHandler) lookupPrice(c *gin.Context, symbol string, assetType domain.AssetType) (decimal.Decimal, error) {
	if assetType == domain.AssetType_Crypto {
		return m.PriceService.GetCryptoPrice(c.Request.Context(), symbol)
	}
	return m.PriceService.GetPrice(c.Request.Context(), symbol)
}

func logRequestMiddleware(ctx *gin.Context) {
	start := time.Now().UTC()
	ctx.Next()

	logger.FromContext(ctx.Request.Context()).Infow("handled request",
		"method", ctx.Request.Method,
		"route", ctx.Request.URL.Path,
		"status", ctx.Writer.Status(),
		"durationMs", time.Since(start).Milliseconds(),
	)
}
