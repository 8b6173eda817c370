package calculator

import (
	"fmt"

	"BiasSentinel/internal/model"

	"github.com/markcheno/go-talib"
)

// ATRPeriod is the default average true range lookback.
const ATRPeriod = 14

// CalculateATRSeries returns the Wilder ATR aligned to the bars.
// Entries before index period are zero.
func CalculateATRSeries(highs, lows, closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("atr period must be positive")
	}
	if len(closes) < period+1 || len(highs) != len(closes) || len(lows) != len(closes) {
		return nil, fmt.Errorf("atr(%d) over %d bars: %w", period, len(closes), model.ErrInsufficientData)
	}
	return talib.Atr(highs, lows, closes, period), nil
}
