package strategy

import (
	"math"

	"BiasSentinel/internal/model"
)

// histogramEpsilon is the relative histogram size treated as zero.
const histogramEpsilon = 1e-9

// ComputeBias scores the contextual indicators. Each value is in [-1, 1].
func ComputeBias(ind model.Indicators, trend model.TrendContext) model.IndicatorBias {
	return model.IndicatorBias{
		EMATrend:    scoreEMATrend(ind.Price, ind.LongEMA),
		RSIMomentum: scoreRSIMomentum(ind.RSI, ind.PrevRSI, trend),
		MACD:        scoreMACD(ind.Histogram, ind.PrevHistogram, ind.Price),
	}
}

// scoreEMATrend scores price position against the long EMA.
// >=3% away: full, >=1%: 0.8, closer: 0.5.
func scoreEMATrend(price, ema float64) float64 {
	if ema <= 0 || price == ema || !finite(price) || !finite(ema) {
		return 0
	}
	distance := (price - ema) / ema
	sign := 1.0
	if distance < 0 {
		sign = -1
	}

	var mag float64
	switch d := math.Abs(distance); {
	case d >= 0.03:
		mag = 1.0
	case d >= 0.01:
		mag = 0.8
	default:
		mag = 0.5
	}
	return sign * mag
}

// scoreRSIMomentum reads RSI through the trend context: in an uptrend a deep
// RSI is a dip to buy, in a downtrend a high RSI is a rally to sell, and a
// ranging market uses classic overbought/oversold.
func scoreRSIMomentum(rsi, prev float64, trend model.TrendContext) float64 {
	if !finite(rsi) {
		return 0
	}

	var score float64
	switch trend {
	case model.Uptrend:
		switch {
		case rsi > 55:
			score = 0.8
		case rsi >= 45:
			score = 0.3
		case rsi >= 30:
			score = 0
		default:
			score = 0.6
		}
	case model.Downtrend:
		switch {
		case rsi < 45:
			score = -0.8
		case rsi <= 55:
			score = -0.3
		case rsi <= 70:
			score = 0
		default:
			score = -0.6
		}
	default:
		switch {
		case rsi > 70:
			score = -0.7
		case rsi > 55:
			score = 0.3
		case rsi >= 45:
			score = 0
		case rsi >= 30:
			score = -0.3
		default:
			score = 0.7
		}
	}

	if finite(prev) {
		switch delta := rsi - prev; {
		case delta > 5:
			score += 0.2
		case delta < -5:
			score -= 0.2
		}
	}
	return clamp(score)
}

// scoreMACD scores the histogram: a fresh sign flip is a full signal,
// otherwise expanding momentum scores 0.7 and contracting 0.4.
func scoreMACD(hist, prev, price float64) float64 {
	if !finite(hist) {
		return 0
	}
	if !finite(prev) {
		prev = 0
	}
	tol := histogramEpsilon * math.Abs(price)
	cur := signWithin(hist, tol)
	if cur == 0 {
		return 0
	}
	if before := signWithin(prev, tol); before != 0 && before != cur {
		return cur
	}
	if math.Abs(hist) > math.Abs(prev) {
		return cur * 0.7
	}
	return cur * 0.4
}

func signWithin(v, tol float64) float64 {
	switch {
	case v > tol:
		return 1
	case v < -tol:
		return -1
	}
	return 0
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
