package cmd

import (
	"context"
	"fmt"

	"papertrade/api"
	"papertrade/internal"
	"papertrade/internal/bus"
	"papertrade/internal/domain"
	"papertrade/internal/ledger"
	"papertrade/internal/logger"
	"papertrade/internal/repository"
	"papertrade/internal/service"
)

func InitializeDependencies() (*api.ApiHandler, *internal.Secrets, error) {
	secrets, err := internal.LoadSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := repository.NewDatabase(secrets.DbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	accountRepository := repository.NewAccountRepository(db)
	finnhubRepository := repository.NewFinnhubRepository(secrets.FinnhubApiKey)
	coinbaseRepository := repository.NewCoinbaseRepository()
	krakenRepository := repository.NewKrakenRepository()
	redditRepository := repository.NewRedditRepository()

	var alpacaRepository repository.AlpacaRepository
	if secrets.Alpaca.ApiKey != "" {
		alpacaRepository = repository.NewAlpacaRepository(secrets.Alpaca.ApiKey, secrets.Alpaca.ApiSecret, secrets.Alpaca.Endpoint)
	}

	gptRepository, err := repository.NewGptRepository(secrets.ChatGPTApiKey)
	if err != nil {
		return nil, nil, err
	}

	changeBus := bus.New()
	accountLedger := ledger.New(accountRepository, changeBus)
	priceService := service.NewPriceService(finnhubRepository, alpacaRepository, coinbaseRepository)
	portfolioService := service.NewPortfolioService(priceService)
	watchlistService := service.NewWatchlistService(accountRepository, changeBus)

	apiHandler := &api.ApiHandler{
		Ledger:            accountLedger,
		PortfolioService:  portfolioService,
		WatchlistService:  watchlistService,
		PriceService:      priceService,
		FinnhubRepository: finnhubRepository,
		KrakenRepository:  krakenRepository,
		RedditRepository:  redditRepository,
		GptRepository:     gptRepository,
		Bus:               changeBus,
	}

	return apiHandler, secrets, nil
}

// Bootstrap heals persisted state and runs the one-shot starter seed.
// It owns the seed call so page-level surfaces never have to.
func Bootstrap(apiHandler *api.ApiHandler) error {
	log := logger.New()
	ctx := context.WithValue(context.Background(), logger.ContextKey, log)

	if _, err := apiHandler.Ledger.Rehydrate(ctx); err != nil {
		return fmt.Errorf("failed to rehydrate account: %w", err)
	}

	if err := apiHandler.Ledger.SeedStarterPositions(ctx, domain.StarterTickers, apiHandler.PriceService); err != nil {
		return fmt.Errorf("failed to seed starter positions: %w", err)
	}

	return nil
}
