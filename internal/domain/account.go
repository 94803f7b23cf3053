package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	TradeSide_Buy  TradeSide = "Buy"
	TradeSide_Sell TradeSide = "Sell"
)

type AssetType string

const (
	AssetType_Stock  AssetType = "stock"
	AssetType_Crypto AssetType = "crypto"
)

var (
	DefaultStartingBalance = decimal.NewFromInt(100000)
	DefaultGoalTarget      = decimal.NewFromInt(20000)

	// positions whose share count rounds below this are considered closed
	DustThreshold = decimal.RequireFromString("0.005")

	// StarterTickers are seeded into a fresh account, one share each.
	StarterTickers = []string{"AAPL", "SPY", "GLD"}
)

// Account is the root aggregate for one profile. It is mutated only
// through ledger operations; everything else reads a copy.
type Account struct {
	CashBalance     decimal.Decimal
	StartingBalance decimal.Decimal
	GoalTarget      decimal.Decimal
	Positions       map[string]*Position
	Transactions    []Transaction
	Seeded          bool

	// Version is the persisted monotonic counter used for optimistic
	// concurrency across writers sharing one store.
	Version int64
}

func NewAccount() *Account {
	return &Account{
		CashBalance:     DefaultStartingBalance,
		StartingBalance: DefaultStartingBalance,
		GoalTarget:      DefaultGoalTarget,
		Positions:       map[string]*Position{},
		Transactions:    []Transaction{},
	}
}

func (a Account) DeepCopy() *Account {
	next := &Account{
		CashBalance:     a.CashBalance,
		StartingBalance: a.StartingBalance,
		GoalTarget:      a.GoalTarget,
		Positions:       map[string]*Position{},
		Transactions:    make([]Transaction, len(a.Transactions)),
		Seeded:          a.Seeded,
		Version:         a.Version,
	}
	for symbol, position := range a.Positions {
		next.Positions[symbol] = position.DeepCopy()
	}
	copy(next.Transactions, a.Transactions)
	return next
}

func (a Account) HeldSymbols() []string {
	symbols := []string{}
	for symbol := range a.Positions {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// TotalValue prices both asset pools against one cash balance.
func (a Account) TotalValue(priceMap map[string]decimal.Decimal) (decimal.Decimal, error) {
	totalValue := a.CashBalance
	for symbol, position := range a.Positions {
		price, ok := priceMap[symbol]
		if !ok {
			return decimal.Zero, fmt.Errorf("cannot compute account total value: price map missing %s", symbol)
		}
		totalValue = totalValue.Add(position.Shares.Mul(price))
	}

	return totalValue, nil
}

type Position struct {
	Shares    decimal.Decimal
	AvgPrice  decimal.Decimal
	AssetType AssetType
}

func (p Position) DeepCopy() *Position {
	return &Position{
		Shares:    p.Shares,
		AvgPrice:  p.AvgPrice,
		AssetType: p.AssetType,
	}
}

// Transaction is an immutable fact; the log is append-only, newest first.
type Transaction struct {
	ID        uuid.UUID
	Ticker    string
	Side      TradeSide
	AssetType AssetType
	Qty       decimal.Decimal
	Price     decimal.Decimal
	Total     decimal.Decimal
	Ts        time.Time
}

// OrderPreview is a proposed but unexecuted trade. It must be confirmed
// through ExecuteOrder, which re-validates against current state.
type OrderPreview struct {
	Side           TradeSide
	Ticker         string
	Shares         decimal.Decimal
	Price          decimal.Decimal
	EstimatedTotal decimal.Decimal
	AssetType      AssetType
	AccountVersion int64
}

type OrderConfirmation struct {
	Side   TradeSide
	Ticker string
	Shares decimal.Decimal
	Price  decimal.Decimal
}
