package smc

import (
	"BiasSentinel/internal/calculator"
	"BiasSentinel/internal/model"
)

// DefaultSwingLookback is used when a non-positive lookback is configured.
const DefaultSwingLookback = 5

// SwingDetector finds local extremes using a symmetric lookback window.
type SwingDetector struct {
	lookback int
}

// NewSwingDetector creates a detector with the given half-window size.
func NewSwingDetector(lookback int) *SwingDetector {
	if lookback <= 0 {
		lookback = DefaultSwingLookback
	}
	return &SwingDetector{lookback: lookback}
}

// Lookback returns the half-window size.
func (d *SwingDetector) Lookback() int { return d.lookback }

// MinBars is the shortest series that can contain a swing point.
func (d *SwingDetector) MinBars() int { return 2*d.lookback + 1 }

// Detect returns swing highs and lows in index order.
//
// Bar i is a swing high when its high is the maximum of [i-lookback, i+lookback]
// and strictly above the mean high of that window. When several bars share the
// window maximum only the earliest qualifies. Lows mirror this with minimum and
// below-mean. Series shorter than MinBars yield no swings.
func (d *SwingDetector) Detect(series *model.PriceSeries) (highs, lows []model.SwingPoint) {
	n := series.Len()
	if n < d.MinBars() {
		return nil, nil
	}

	hs := series.Highs()
	ls := series.Lows()
	lb := d.lookback

	for i := lb; i < n-lb; i++ {
		from, to := i-lb, i+lb+1

		if isWindowMax(hs, i, from, to) && hs[i] > calculator.WindowMean(hs, from, to) {
			highs = append(highs, model.SwingPoint{
				Index: i,
				Price: hs[i],
				Kind:  model.SwingHigh,
				Time:  series.Bars[i].Time,
			})
		}
		if isWindowMin(ls, i, from, to) && ls[i] < calculator.WindowMean(ls, from, to) {
			lows = append(lows, model.SwingPoint{
				Index: i,
				Price: ls[i],
				Kind:  model.SwingLow,
				Time:  series.Bars[i].Time,
			})
		}
	}
	return highs, lows
}

func isWindowMax(values []float64, i, from, to int) bool {
	for j := from; j < to; j++ {
		if j < i && values[j] >= values[i] {
			return false
		}
		if j > i && values[j] > values[i] {
			return false
		}
	}
	return true
}

func isWindowMin(values []float64, i, from, to int) bool {
	for j := from; j < to; j++ {
		if j < i && values[j] <= values[i] {
			return false
		}
		if j > i && values[j] < values[i] {
			return false
		}
	}
	return true
}
