package calculator

import (
	"math"

	"BiasSentinel/internal/model"
)

// Neutral defaults substituted for indicators that cannot be computed.
const (
	NeutralRSI  = 50.0
	NeutralMACD = 0.0
	RSIPeriod   = 14
)

// Compute derives every indicator the bias calculator needs for the latest bar.
// It never fails: a value that cannot be computed gets its neutral default and
// its name is appended to Missing.
func Compute(series *model.PriceSeries) model.Indicators {
	ind := model.Indicators{RSI: NeutralRSI, PrevRSI: NeutralRSI}
	if series.Len() == 0 {
		ind.Missing = []string{"ema", "rsi", "macd", "atr"}
		return ind
	}

	closes := series.Closes()
	n := len(closes)
	ind.Price = closes[n-1]

	// Long EMA, neutral default is the mean price
	if v, p, err := CalculateLongEMA(closes); err == nil {
		ind.LongEMA = v
		ind.LongEMAPeriod = p
	} else {
		ind.LongEMA = Mean(closes)
		ind.Missing = append(ind.Missing, "ema")
	}

	// RSI(14) and its previous value
	if rsi, err := CalculateRSISeries(closes, RSIPeriod); err == nil {
		ind.RSI = finiteOr(rsi[n-1], NeutralRSI)
		if n-2 >= RSIPeriod {
			ind.PrevRSI = finiteOr(rsi[n-2], ind.RSI)
		} else {
			ind.PrevRSI = ind.RSI
		}
		if !isFinite(rsi[n-1]) {
			ind.Missing = append(ind.Missing, "rsi")
		}
	} else {
		ind.Missing = append(ind.Missing, "rsi")
	}

	// MACD(12, 26, 9)
	if m, err := CalculateMACD(closes); err == nil {
		ind.MACD = finiteOr(m.MACD[n-1], NeutralMACD)
		ind.MACDSignal = finiteOr(m.Signal[n-1], NeutralMACD)
		ind.Histogram = finiteOr(m.Histogram[n-1], NeutralMACD)
		ind.PrevHistogram = finiteOr(m.Histogram[n-2], NeutralMACD)
		if !isFinite(m.MACD[n-1]) || !isFinite(m.Signal[n-1]) {
			ind.Missing = append(ind.Missing, "macd")
		}
	} else {
		ind.Missing = append(ind.Missing, "macd")
	}

	// ATR(14), no neutral value: zero means unavailable
	if atr, err := CalculateATRSeries(series.Highs(), series.Lows(), closes, ATRPeriod); err == nil && isFinite(atr[n-1]) {
		ind.ATR = atr[n-1]
	} else {
		ind.Missing = append(ind.Missing, "atr")
	}

	return ind
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
