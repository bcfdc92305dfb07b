// Package signals provides the deterministic calculators behind analytics tasks.
// Inputs are never rounded; only final outputs are rounded to two places.
package signals

import (
	"sort"

	"github.com/bobmcallan/copilot/internal/models"
)

// trendDeadband is the percent move either side of zero treated as flat.
const trendDeadband = 1.0

// Direction labels a percent change as up, down or flat.
func Direction(changePercent float64) string {
	switch {
	case changePercent > trendDeadband:
		return models.TrendUp
	case changePercent < -trendDeadband:
		return models.TrendDown
	default:
		return models.TrendFlat
	}
}

func endpoints(frame models.PriceFrame) (float64, float64, bool) {
	if frame.Len() < 2 {
		return 0, 0, false
	}
	return frame.Bars[0].Close, frame.Bars[frame.Len()-1].Close, true
}

// CalculateTrend summarises a frame's movement from first to last close.
func CalculateTrend(frame models.PriceFrame) models.TrendResult {
	start, end, ok := endpoints(frame)
	if !ok {
		return models.TrendResult{
			Symbol:         frame.Symbol,
			TrendDirection: models.TrendFlat,
			DataPoints:     []models.DataPoint{},
		}
	}

	abs := end - start
	pct := safePercent(abs, start)

	points := make([]models.DataPoint, 0, frame.Len())
	for _, b := range frame.Bars {
		points = append(points, models.DataPoint{Date: b.Date.Format("2006-01-02"), Close: b.Close})
	}

	return models.TrendResult{
		Symbol:         frame.Symbol,
		StartPrice:     Round2(start),
		EndPrice:       Round2(end),
		ChangeAbsolute: Round2(abs),
		ChangePercent:  Round2(pct),
		TrendDirection: Direction(pct),
		DataPoints:     points,
	}
}

// PercentageChange is the relative move from first to last close.
func PercentageChange(frame models.PriceFrame) models.PercentChange {
	start, end, ok := endpoints(frame)
	if !ok {
		return models.PercentChange{}
	}
	return models.PercentChange{
		ChangePercent: Round2(safePercent(end-start, start)),
		Start:         Round2(start),
		End:           Round2(end),
	}
}

// AbsoluteChange is the price move from first to last close.
func AbsoluteChange(frame models.PriceFrame) models.AbsoluteChange {
	start, end, ok := endpoints(frame)
	if !ok {
		return models.AbsoluteChange{}
	}
	return models.AbsoluteChange{
		ChangeAbsolute: Round2(end - start),
		Start:          Round2(start),
		End:            Round2(end),
	}
}

// RankByPerformance orders frames by percent change, best first for "top" and
// worst first for "bottom", keeping at most n. Frames with fewer than two bars
// are skipped. Ties keep input order.
func RankByPerformance(frames []models.PriceFrame, direction string, n int) models.RankResult {
	if direction != models.DirectionBottom {
		direction = models.DirectionTop
	}

	type perf struct {
		symbol     string
		pct        float64
		start, end float64
	}
	perfs := make([]perf, 0, len(frames))
	for _, f := range frames {
		start, end, ok := endpoints(f)
		if !ok {
			continue
		}
		perfs = append(perfs, perf{symbol: f.Symbol, pct: safePercent(end-start, start), start: start, end: end})
	}

	sort.SliceStable(perfs, func(i, j int) bool {
		if direction == models.DirectionTop {
			return perfs[i].pct > perfs[j].pct
		}
		return perfs[i].pct < perfs[j].pct
	})

	if n >= 0 && len(perfs) > n {
		perfs = perfs[:n]
	}

	rankings := make([]models.RankEntry, 0, len(perfs))
	for i, p := range perfs {
		rankings = append(rankings, models.RankEntry{
			Rank:          i + 1,
			Symbol:        p.symbol,
			ChangePercent: Round2(p.pct),
			StartPrice:    Round2(p.start),
			EndPrice:      Round2(p.end),
		})
	}

	return models.RankResult{
		Rankings:  rankings,
		Direction: direction,
		Metric:    "change_percent",
	}
}
