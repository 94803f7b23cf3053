package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Persisted key layout. Positions are split across two keys so that
// readers of the original store still find the shape they expect.
const (
	keyCash           = "paperCash"
	keyStarting       = "paperStartingBalance"
	keyGoal           = "paperGoalTarget"
	keyHoldings       = "paperHoldings"
	keyTransactions   = "paperTransactions"
	keyCryptoHoldings = "cryptoHoldings"
	keyStarterSeeded  = "paperStarterSeeded"
	keyAccountVersion = "accountVersion"
	keyWatchlist      = "watchlist"
)

var ErrVersionConflict = errors.New("account version conflict")

type AccountRepository interface {
	Get(ctx context.Context) (*domain.Account, error)
	// Save writes the full account in one transaction, compare-and-swapping
	// on the stored version. On success the account's Version is bumped.
	Save(ctx context.Context, account *domain.Account, expectedVersion int64) error
	// Overwrite replaces the stored account unconditionally. Used by reset
	// and by rehydrate's self-healing write-back.
	Overwrite(ctx context.Context, account *domain.Account) error

	GetKey(ctx context.Context, key string) (string, bool, error)
	SetKey(ctx context.Context, key, value string) error
	DeleteKey(ctx context.Context, key string) error
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepositoryHandler{Db: db}
}

type accountRepositoryHandler struct {
	Db *gorm.DB
}

type positionRecord struct {
	Shares   float64 `json:"shares"`
	AvgPrice float64 `json:"avgPrice"`
}

type transactionRecord struct {
	ID        string  `json:"id"`
	Ticker    string  `json:"ticker"`
	Side      string  `json:"side"`
	AssetType string  `json:"assetType,omitempty"`
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
	Ts        int64   `json:"ts"`
}

func (h *accountRepositoryHandler) Get(ctx context.Context) (*domain.Account, error) {
	log := logger.FromContext(ctx)

	entries := []KvEntry{}
	err := h.Db.WithContext(ctx).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read account state: %w", err)
	}

	values := map[string]string{}
	for _, entry := range entries {
		values[entry.Key] = entry.Value
	}

	account := domain.NewAccount()
	account.CashBalance = readDecimal(values, keyCash, domain.DefaultStartingBalance)
	account.GoalTarget = readDecimal(values, keyGoal, domain.DefaultGoalTarget)
	account.StartingBalance = readDecimal(values, keyStarting, account.CashBalance)
	account.Seeded = values[keyStarterSeeded] == "1"

	if version, err := strconv.ParseInt(values[keyAccountVersion], 10, 64); err == nil {
		account.Version = version
	}

	for symbol, record := range readPositions(log, values[keyHoldings]) {
		account.Positions[symbol] = &domain.Position{
			Shares:    decimal.NewFromFloat(record.Shares),
			AvgPrice:  decimal.NewFromFloat(record.AvgPrice),
			AssetType: domain.AssetType_Stock,
		}
	}
	for symbol, record := range readPositions(log, values[keyCryptoHoldings]) {
		account.Positions[symbol] = &domain.Position{
			Shares:    decimal.NewFromFloat(record.Shares),
			AvgPrice:  decimal.NewFromFloat(record.AvgPrice),
			AssetType: domain.AssetType_Crypto,
		}
	}

	if raw, ok := values[keyTransactions]; ok && raw != "" {
		records := []transactionRecord{}
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			log.Warnf("malformed transaction log, treating as empty: %v", err)
		} else {
			for _, record := range records {
				account.Transactions = append(account.Transactions, transactionFromRecord(record))
			}
		}
	}

	return account, nil
}

func (h *accountRepositoryHandler) Save(ctx context.Context, account *domain.Account, expectedVersion int64) error {
	return h.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := KvEntry{}
		storedVersion := int64(0)
		err := tx.Where("key = ?", keyAccountVersion).First(&entry).Error
		if err == nil {
			storedVersion, _ = strconv.ParseInt(entry.Value, 10, 64)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read account version: %w", err)
		}

		if storedVersion != expectedVersion {
			return ErrVersionConflict
		}

		if err := writeAccount(tx, account, storedVersion+1); err != nil {
			return err
		}

		account.Version = storedVersion + 1
		return nil
	})
}

func (h *accountRepositoryHandler) Overwrite(ctx context.Context, account *domain.Account) error {
	return h.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := KvEntry{}
		storedVersion := int64(0)
		err := tx.Where("key = ?", keyAccountVersion).First(&entry).Error
		if err == nil {
			storedVersion, _ = strconv.ParseInt(entry.Value, 10, 64)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read account version: %w", err)
		}

		if err := writeAccount(tx, account, storedVersion+1); err != nil {
			return err
		}

		account.Version = storedVersion + 1
		return nil
	})
}

func writeAccount(tx *gorm.DB, account *domain.Account, newVersion int64) error {
	stockPositions := map[string]positionRecord{}
	cryptoPositions := map[string]positionRecord{}
	for symbol, position := range account.Positions {
		record := positionRecord{
			Shares:   position.Shares.InexactFloat64(),
			AvgPrice: position.AvgPrice.InexactFloat64(),
		}
		if position.AssetType == domain.AssetType_Crypto {
			cryptoPositions[symbol] = record
		} else {
			stockPositions[symbol] = record
		}
	}

	transactionRecords := make([]transactionRecord, 0, len(account.Transactions))
	for _, transaction := range account.Transactions {
		transactionRecords = append(transactionRecords, recordFromTransaction(transaction))
	}

	holdingsJson, err := json.Marshal(stockPositions)
	if err != nil {
		return fmt.Errorf("failed to encode holdings: %w", err)
	}
	cryptoJson, err := json.Marshal(cryptoPositions)
	if err != nil {
		return fmt.Errorf("failed to encode crypto holdings: %w", err)
	}
	transactionsJson, err := json.Marshal(transactionRecords)
	if err != nil {
		return fmt.Errorf("failed to encode transactions: %w", err)
	}

	seeded := "0"
	if account.Seeded {
		seeded = "1"
	}

	entries := []KvEntry{
		{Key: keyCash, Value: account.CashBalance.StringFixed(2)},
		{Key: keyStarting, Value: account.StartingBalance.StringFixed(2)},
		{Key: keyGoal, Value: account.GoalTarget.StringFixed(2)},
		{Key: keyHoldings, Value: string(holdingsJson)},
		{Key: keyCryptoHoldings, Value: string(cryptoJson)},
		{Key: keyTransactions, Value: string(transactionsJson)},
		{Key: keyStarterSeeded, Value: seeded},
		{Key: keyAccountVersion, Value: strconv.FormatInt(newVersion, 10)},
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entries).Error
	if err != nil {
		return fmt.Errorf("failed to persist account: %w", err)
	}
	return nil
}

func (h *accountRepositoryHandler) GetKey(ctx context.Context, key string) (string, bool, error) {
	entry := KvEntry{}
	err := h.Db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (h *accountRepositoryHandler) SetKey(ctx context.Context, key, value string) error {
	err := h.Db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&KvEntry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (h *accountRepositoryHandler) DeleteKey(ctx context.Context, key string) error {
	err := h.Db.WithContext(ctx).Where("key = ?", key).Delete(&KvEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// WatchlistKey is the raw key the watchlist service reads and writes.
const WatchlistKey = keyWatchlist

func readDecimal(values map[string]string, key string, fallback decimal.Decimal) decimal.Decimal {
	raw, ok := values[key]
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func readPositions(log interface{ Warnf(string, ...interface{}) }, raw string) map[string]positionRecord {
	if raw == "" {
		return map[string]positionRecord{}
	}
	records := map[string]positionRecord{}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		log.Warnf("malformed holdings blob, treating as empty: %v", err)
		return map[string]positionRecord{}
	}
	return records
}

func transactionFromRecord(record transactionRecord) domain.Transaction {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		id = uuid.New()
	}
	assetType := domain.AssetType_Stock
	if record.AssetType == string(domain.AssetType_Crypto) {
		assetType = domain.AssetType_Crypto
	}
	side := domain.TradeSide_Buy
	if record.Side == string(domain.TradeSide_Sell) {
		side = domain.TradeSide_Sell
	}
	return domain.Transaction{
		ID:        id,
		Ticker:    record.Ticker,
		Side:      side,
		AssetType: assetType,
		Qty:       decimal.NewFromFloat(record.Qty),
		Price:     decimal.NewFromFloat(record.Price),
		Total:     decimal.NewFromFloat(record.Total),
		Ts:        time.UnixMilli(record.Ts).UTC(),
	}
}

func recordFromTransaction(transaction domain.Transaction) transactionRecord {
	return transactionRecord{
		ID:        transaction.ID.String(),
		Ticker:    transaction.Ticker,
		Side:      string(transaction.Side),
		AssetType: string(transaction.AssetType),
		Qty:       transaction.Qty.InexactFloat64(),
		Price:     transaction.Price.InexactFloat64(),
		Total:     transaction.Total.InexactFloat64(),
		Ts:        transaction.Ts.UnixMilli(),
	}
}
