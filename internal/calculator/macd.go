package calculator

import (
	"fmt"

	"BiasSentinel/internal/model"

	"github.com/markcheno/go-talib"
)

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// MACDSeries holds the aligned MACD line, signal line and histogram.
type MACDSeries struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// CalculateMACD computes MACD(12, 26, 9). At least slow+signal closes are
// required so both the latest and the previous histogram values are valid.
func CalculateMACD(closes []float64) (*MACDSeries, error) {
	if len(closes) < macdSlow+macdSignal {
		return nil, fmt.Errorf("macd over %d closes: %w", len(closes), model.ErrInsufficientData)
	}
	m, s, h := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	return &MACDSeries{MACD: m, Signal: s, Histogram: h}, nil
}
