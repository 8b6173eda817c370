package calculator

import (
	"errors"
	"fmt"
	"math"

	"BiasSentinel/internal/model"
)

// CalculateRSISeries computes the Wilder-smoothed RSI over the given period.
// The result is aligned to closes; entries before index period are NaN.
// A window with no movement at all reads 50.
func CalculateRSISeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return nil, fmt.Errorf("rsi(%d) over %d closes: %w", period, len(closes), model.ErrInsufficientData)
	}

	out := make([]float64, len(closes))
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	// Wilder smoothing for remaining bars
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out, nil
}

// CalculateRSI returns the latest RSI value.
func CalculateRSI(closes []float64, period int) (float64, error) {
	series, err := CalculateRSISeries(closes, period)
	if err != nil {
		return 50.0, err
	}
	return series[len(series)-1], nil
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgGain == 0 && avgLoss == 0 {
		return 50.0
	}
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
