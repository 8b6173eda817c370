package calculator

import (
	"errors"
	"fmt"

	"BiasSentinel/internal/model"

	"github.com/markcheno/go-talib"
)

// Long EMA periods, longest first. Shorter ones substitute when history is thin.
var longEMAPeriods = []int{200, 50, 20}

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, fmt.Errorf("sma(%d) over %d prices: %w", period, len(prices), model.ErrInsufficientData)
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateEMASeries returns the EMA aligned to prices. Entries before period-1 are zero.
func CalculateEMASeries(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(prices) < period {
		return nil, fmt.Errorf("ema(%d) over %d prices: %w", period, len(prices), model.ErrInsufficientData)
	}
	return talib.Ema(prices, period), nil
}

// CalculateLongEMA returns the latest EMA200, falling back to EMA50 or EMA20
// when the series is too short. The period actually used is returned.
func CalculateLongEMA(closes []float64) (value float64, period int, err error) {
	for _, p := range longEMAPeriods {
		if len(closes) < p {
			continue
		}
		ema, err := CalculateEMASeries(closes, p)
		if err != nil {
			return 0, 0, err
		}
		v := ema[len(ema)-1]
		if !isFinite(v) {
			return 0, 0, fmt.Errorf("ema(%d) not finite: %w", p, model.ErrMissingIndicator)
		}
		return v, p, nil
	}
	return 0, 0, fmt.Errorf("long ema over %d closes: %w", len(closes), model.ErrInsufficientData)
}
