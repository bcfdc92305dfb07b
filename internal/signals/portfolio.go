package signals

import (
	"sort"

	"github.com/bobmcallan/copilot/internal/models"
)

// UnrealizedPnL values each holding that has a current price. Holdings
// without a price are skipped; output follows holding order.
func UnrealizedPnL(holdings []models.Holding, prices map[string]float64) []models.PnLResult {
	results := make([]models.PnLResult, 0, len(holdings))
	for _, h := range holdings {
		price, ok := prices[h.Symbol]
		if !ok {
			continue
		}
		costBasis := h.CostBasis()
		currentValue := h.Quantity * price
		pnl := currentValue - costBasis

		results = append(results, models.PnLResult{
			Symbol:        h.Symbol,
			Quantity:      h.Quantity,
			AvgBuyPrice:   Round2(h.AvgBuyPrice),
			CurrentPrice:  Round2(price),
			CostBasis:     Round2(costBasis),
			CurrentValue:  Round2(currentValue),
			UnrealizedPnL: Round2(pnl),
			PnLPercent:    Round2(safePercent(pnl, costBasis)),
		})
	}
	return results
}

// TotalPnL aggregates position results.
func TotalPnL(positions []models.PnLResult) models.PnLTotal {
	var cost, value float64
	for _, p := range positions {
		cost += p.CostBasis
		value += p.CurrentValue
	}
	pnl := value - cost
	return models.PnLTotal{
		TotalCostBasis:     Round2(cost),
		TotalCurrentValue:  Round2(value),
		TotalUnrealizedPnL: Round2(pnl),
		TotalPnLPercent:    Round2(safePercent(pnl, cost)),
		Positions:          len(positions),
	}
}

// Allocation splits current portfolio value by holding, largest share first.
// Holdings without a price are left out.
func Allocation(holdings []models.Holding, prices map[string]float64) models.AllocationResult {
	type raw struct {
		symbol   string
		value    float64
		quantity float64
	}
	var rows []raw
	total := 0.0
	for _, h := range holdings {
		price, ok := prices[h.Symbol]
		if !ok {
			continue
		}
		v := h.Quantity * price
		total += v
		rows = append(rows, raw{symbol: h.Symbol, value: v, quantity: h.Quantity})
	}

	entries := make([]models.AllocationEntry, 0, len(rows))
	for _, r := range rows {
		pct := 0.0
		if total > 0 {
			pct = Round2(r.value / total * 100)
		}
		entries = append(entries, models.AllocationEntry{
			Symbol:     r.symbol,
			Value:      Round2(r.value),
			Quantity:   r.quantity,
			Percentage: pct,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Percentage > entries[j].Percentage
	})

	return models.AllocationResult{
		Allocations: entries,
		TotalValue:  Round2(total),
	}
}
