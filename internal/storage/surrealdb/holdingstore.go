package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

// holdingSelectFields aliases holding_id to id for struct mapping.
const holdingSelectFields = `holding_id as id, user_id, symbol, quantity, avg_buy_price, purchase_date,
	portfolio_name, currency, broker, investment_type, exchange, created_at`

// HoldingStore implements interfaces.HoldingStore using SurrealDB.
// One record per (user, symbol).
type HoldingStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewHoldingStore creates a new HoldingStore.
func NewHoldingStore(db *surrealdb.DB, logger *common.Logger) *HoldingStore {
	return &HoldingStore{db: db, logger: logger}
}

func holdingRecordID(userID, symbol string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("holding", safeID(userID, strings.ToUpper(symbol)))
}

func (s *HoldingStore) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	sql := "SELECT " + holdingSelectFields + " FROM holding WHERE user_id = $user_id ORDER BY created_at ASC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return []models.Holding{}, nil
	}
	holdings := (*results)[0].Result
	if holdings == nil {
		holdings = []models.Holding{}
	}
	return holdings, nil
}

// GetHolding returns nil, nil when the user does not hold the symbol.
func (s *HoldingStore) GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error) {
	sql := "SELECT " + holdingSelectFields + " FROM $rid"
	vars := map[string]any{"rid": holdingRecordID(userID, symbol)}

	results, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// SaveHolding upserts a holding. Symbols are stored upper-case.
func (s *HoldingStore) SaveHolding(ctx context.Context, h *models.Holding) error {
	if h.UserID == "" || h.Symbol == "" {
		return fmt.Errorf("holding requires user_id and symbol")
	}
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	h.ApplyDefaults()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	sql := `UPSERT $rid SET
		holding_id = $holding_id, user_id = $user_id, symbol = $symbol,
		quantity = $quantity, avg_buy_price = $avg_buy_price, purchase_date = $purchase_date,
		portfolio_name = $portfolio_name, currency = $currency, broker = $broker,
		investment_type = $investment_type, exchange = $exchange, created_at = $created_at`
	vars := map[string]any{
		"rid":             holdingRecordID(h.UserID, h.Symbol),
		"holding_id":      h.ID,
		"user_id":         h.UserID,
		"symbol":          h.Symbol,
		"quantity":        h.Quantity,
		"avg_buy_price":   h.AvgBuyPrice,
		"purchase_date":   h.PurchaseDate,
		"portfolio_name":  h.PortfolioName,
		"currency":        h.Currency,
		"broker":          h.Broker,
		"investment_type": h.InvestmentType,
		"exchange":        h.Exchange,
		"created_at":      h.CreatedAt,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
		if err == nil {
			s.logger.Debug().Str("user_id", h.UserID).Str("symbol", h.Symbol).Msg("Holding saved")
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save holding after retries: %w", lastErr)
}

func (s *HoldingStore) DeleteHolding(ctx context.Context, userID, symbol string) error {
	vars := map[string]any{"rid": holdingRecordID(userID, symbol)}
	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE $rid", vars); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.HoldingStore = (*HoldingStore)(nil)
