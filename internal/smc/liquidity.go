package smc

import (
	"sort"

	"BiasSentinel/internal/model"
)

// Liquidity defaults.
const (
	DefaultLiquidityTolerancePct = 0.05
	DefaultLiquidityMinTouches   = 2
)

// DetectLiquidity clusters swing highs into resistance and swing lows into support.
// tolerancePct is a percentage (0.05 means 0.05%).
func DetectLiquidity(highs, lows []float64, tolerancePct float64, minTouches int) (resistance, support []model.LiquidityLevel) {
	resistance = clusterLevels(highs, tolerancePct, minTouches, model.Resistance)
	support = clusterLevels(lows, tolerancePct, minTouches, model.Support)
	return resistance, support
}

// clusterLevels sorts prices and merges, in one pass, every value within
// tolerance of the open cluster's first value. A value exactly on the
// tolerance boundary joins the cluster.
func clusterLevels(prices []float64, tolerancePct float64, minTouches int, kind model.LiquidityKind) []model.LiquidityLevel {
	if len(prices) == 0 {
		return nil
	}
	if minTouches < 1 {
		minTouches = 1
	}
	tol := tolerancePct / 100

	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	total := float64(len(sorted))
	var levels []model.LiquidityLevel

	start, sum, count := sorted[0], sorted[0], 1
	flush := func() {
		if count >= minTouches {
			levels = append(levels, model.LiquidityLevel{
				Level:    sum / float64(count),
				Touches:  count,
				Type:     kind,
				Strength: float64(count) / total,
			})
		}
	}

	for _, p := range sorted[1:] {
		if start != 0 && (p-start)/start <= tol {
			sum += p
			count++
			continue
		}
		flush()
		start, sum, count = p, p, 1
	}
	flush()

	return levels
}

// SwingPrices extracts the prices of the given swing points.
func SwingPrices(points []model.SwingPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}
