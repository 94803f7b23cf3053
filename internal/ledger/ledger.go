package ledger

import (
	"context"
	"errors"
	"math"
	"time"

	"papertrade/internal/bus"
	"papertrade/internal/domain"
	"papertrade/internal/logger"
	"papertrade/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type QuantityMode string

const (
	QuantityMode_Shares  QuantityMode = "shares"
	QuantityMode_Dollars QuantityMode = "dollars"
)

// cash checks tolerate this much floating rounding drift
var epsilon = decimal.New(1, -6)

type ReviewOrderInput struct {
	Symbol       string
	Side         domain.TradeSide
	Quantity     float64
	QuantityMode QuantityMode
	Price        float64
	AssetType    domain.AssetType
}

// Ledger owns the account aggregate and is the sole writer of persisted
// trading state. Every mutation persists the full account and broadcasts
// a change notification so other readers of the store re-sync.
type Ledger interface {
	ReviewOrder(ctx context.Context, input ReviewOrderInput) (*domain.OrderPreview, error)
	ExecuteOrder(ctx context.Context, preview *domain.OrderPreview) (*domain.OrderConfirmation, error)
	Deposit(ctx context.Context, amount int64) (*domain.Account, error)
	Withdraw(ctx context.Context, amount int64) (*domain.Account, error)
	SetGoalTarget(ctx context.Context, amount int64) (*domain.Account, error)
	Reset(ctx context.Context) (*domain.Account, error)
	Rehydrate(ctx context.Context) (*domain.Account, error)
	SeedStarterPositions(ctx context.Context, tickers []string, lookup PriceLookup) error
}

func New(accountRepository repository.AccountRepository, changeBus *bus.Bus) Ledger {
	return &ledgerHandler{
		AccountRepository: accountRepository,
		Bus:               changeBus,
	}
}

type ledgerHandler struct {
	AccountRepository repository.AccountRepository
	Bus               *bus.Bus
}

// normalizeShares rounds to 2 decimals and treats anything under the
// dust threshold as zero, so positions never hold float residue.
func normalizeShares(shares decimal.Decimal) decimal.Decimal {
	rounded := shares.Round(2)
	if rounded.Abs().LessThan(domain.DustThreshold) {
		return decimal.Zero
	}
	return rounded
}

func (h *ledgerHandler) ReviewOrder(ctx context.Context, input ReviewOrderInput) (*domain.OrderPreview, error) {
	account, err := h.AccountRepository.Get(ctx)
	if err != nil {
		return nil, err
	}

	return validateOrder(account, input)
}

func validateOrder(account *domain.Account, input ReviewOrderInput) (*domain.OrderPreview, error) {
	if math.IsNaN(input.Price) || math.IsInf(input.Price, 0) || input.Price <= 0 {
		return nil, ErrPriceUnavailable
	}
	if input.Symbol == "" {
		return nil, ErrInvalidSymbol
	}

	price := decimal.NewFromFloat(input.Price)

	if math.IsNaN(input.Quantity) || math.IsInf(input.Quantity, 0) {
		return nil, ErrInvalidQuantity
	}
	quantity := decimal.NewFromFloat(input.Quantity)

	shares := quantity
	cost := quantity.Mul(price)
	if input.QuantityMode == QuantityMode_Dollars {
		shares = quantity.DivRound(price, 4)
		// the dollar input is the cost; checking the rounded share count
		// times price instead would overshoot cash on full-balance buys
		cost = quantity
	}
	if !shares.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	if input.Side == domain.TradeSide_Sell {
		position, ok := account.Positions[input.Symbol]
		if !ok || position.Shares.LessThan(shares) {
			return nil, ErrInsufficientShares
		}
	}

	if input.Side == domain.TradeSide_Buy && cost.GreaterThan(account.CashBalance.Add(epsilon)) {
		return nil, ErrInsufficientCash
	}

	return &domain.OrderPreview{
		Side:           input.Side,
		Ticker:         input.Symbol,
		Shares:         shares.Round(2),
		Price:          price,
		EstimatedTotal: cost.Round(2),
		AssetType:      input.AssetType,
		AccountVersion: account.Version,
	}, nil
}

func (h *ledgerHandler) ExecuteOrder(ctx context.Context, preview *domain.OrderPreview) (*domain.OrderConfirmation, error) {
	log := logger.FromContext(ctx)

	account, err := h.AccountRepository.Get(ctx)
	if err != nil {
		return nil, err
	}

	// state may have drifted since the preview was produced, so the
	// preview's validations are repeated against current state
	_, err = validateOrder(account, ReviewOrderInput{
		Symbol:       preview.Ticker,
		Side:         preview.Side,
		Quantity:     preview.Shares.InexactFloat64(),
		QuantityMode: QuantityMode_Shares,
		Price:        preview.Price.InexactFloat64(),
		AssetType:    preview.AssetType,
	})
	if err != nil {
		return nil, err
	}

	next := account.DeepCopy()
	shares := preview.Shares
	price := preview.Price.Round(2)
	total := shares.Mul(preview.Price).Round(2)

	// an existing position's stored asset type wins over the preview's,
	// so a position and its transactions never disagree
	assetType := preview.AssetType
	if existing := next.Positions[preview.Ticker]; existing != nil {
		assetType = existing.AssetType
	}

	if preview.Side == domain.TradeSide_Buy {
		// cash moves by the same rounded total the transaction records,
		// so the log replays to the exact balance
		next.CashBalance = next.CashBalance.Sub(total)

		existing := next.Positions[preview.Ticker]
		if existing == nil {
			existing = &domain.Position{AssetType: assetType}
		}
		existingShares := normalizeShares(existing.Shares)
		newShares := normalizeShares(existingShares.Add(shares))
		newAvg := decimal.Zero
		if newShares.IsPositive() {
			newAvg = existing.AvgPrice.Mul(existingShares).
				Add(preview.Price.Mul(shares)).
				DivRound(newShares, 2)
		}
		next.Positions[preview.Ticker] = &domain.Position{
			Shares:    newShares,
			AvgPrice:  newAvg,
			AssetType: assetType,
		}
	} else {
		next.CashBalance = next.CashBalance.Add(total)

		existing := next.Positions[preview.Ticker]
		newShares := normalizeShares(normalizeShares(existing.Shares).Sub(shares))
		if newShares.IsPositive() {
			next.Positions[preview.Ticker] = &domain.Position{
				Shares:    newShares,
				AvgPrice:  existing.AvgPrice,
				AssetType: assetType,
			}
		} else {
			delete(next.Positions, preview.Ticker)
		}
	}

	next.Transactions = append([]domain.Transaction{{
		ID:        uuid.New(),
		Ticker:    preview.Ticker,
		Side:      preview.Side,
		AssetType: assetType,
		Qty:       shares,
		Price:     price,
		Total:     total,
		Ts:        time.Now().UTC(),
	}}, next.Transactions...)

	err = h.AccountRepository.Save(ctx, next, account.Version)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, err
	}

	log.Infow("executed order",
		"side", preview.Side,
		"ticker", preview.Ticker,
		"shares", shares.String(),
		"price", price.String(),
	)
	h.Bus.Broadcast()

	return &domain.OrderConfirmation{
		Side:   preview.Side,
		Ticker: preview.Ticker,
		Shares: shares,
		Price:  preview.Price,
	}, nil
}

func (h *ledgerHandler) Deposit(ctx context.Context, amount int64) (*domain.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, err := h.AccountRepository.Get(ctx)
	if err != nil {
		return nil, err
	}

	next := account.DeepCopy()
	delta := decimal.NewFromInt(amount)
	next.CashBalance = next.CashBalance.Add(delta).Round(2)
	// deposits move the baseline too, so they never show up as profit
	next.StartingBalance = next.StartingBalance.Add(delta).Round(2)

	return h.commit(ctx, next, account.Version)
}

func (h *ledgerHandler) Withdraw(ctx context.Context, amount int64) (*domain.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, err := h.AccountRepository.Get(ctx)
	if err != nil {
		return nil, err
	}

	delta := decimal.NewFromInt(amount)
	if delta.GreaterThan(account.CashBalance.Add(epsilon)) {
		return nil, ErrInsufficientCash
	}

	next := account.DeepCopy()
	next.CashBalance = next.CashBalance.Sub(delta).Round(2)
	next.StartingBalance = decimal.Max(decimal.Zero, next.StartingBalance.Sub(delta)).Round(2)

	return h.commit(ctx, next, account.Version)
}

func (h *ledgerHandler) SetGoalTarget(ctx context.Context, amount int64) (*domain.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, err := h.AccountRepository.Get(ctx)
	if err != nil {
		return nil, err
	}

	next := account.DeepCopy()
	next.GoalTarget = decimal.NewFromInt(amount)

	return h.commit(ctx, next, account.Version)
}

func (h *ledgerHandler) Reset(ctx context.Context) (*domain.Account, error) {
	account := domain.NewAccount()
	err := h.AccountRepository.Overwrite(ctx, account)
	if err != nil {
		return nil, err
	}

	h.Bus.Broadcast()
	return account, nil
}

func (h *ledgerHandler) commit(ctx context.Context, next *domain.Account, expectedVersion int64) (*domain.Account, error) {
	err := h.AccountRepository.Save(ctx, next, expectedVersion)
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, err
	}

	h.Bus.Broadcast()
	return next, nil
}
