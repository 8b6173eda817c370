package smc

import (
	"math"

	"BiasSentinel/internal/calculator"
	"BiasSentinel/internal/model"
)

// ATRGapFactor scales ATR(14) into the dynamic minimum gap size.
const ATRGapFactor = 0.1

// FVGDetector detects three-bar fair value gaps.
type FVGDetector struct {
	minGap float64 // static minimum gap in price units
	useATR bool
}

// NewFVGDetector creates a detector. With useATR the minimum gap follows
// ATR(14) wherever it is available and falls back to minGap elsewhere.
func NewFVGDetector(minGap float64, useATR bool) *FVGDetector {
	if minGap < 0 {
		minGap = 0
	}
	return &FVGDetector{minGap: minGap, useATR: useATR}
}

// Detect identifies all fair value gaps and marks the ones price has filled.
func (d *FVGDetector) Detect(series *model.PriceSeries) []model.FairValueGap {
	n := series.Len()
	if n < 3 {
		return nil
	}

	var atr []float64
	if d.useATR {
		if a, err := calculator.CalculateATRSeries(series.Highs(), series.Lows(), series.Closes(), calculator.ATRPeriod); err == nil {
			atr = a
		}
	}

	var gaps []model.FairValueGap
	for i := 0; i+2 < n; i++ {
		c1 := series.Bars[i]
		c2 := series.Bars[i+1] // middle candle must not fill the gap
		c3 := series.Bars[i+2]
		minGap := d.threshold(atr, i+2)

		if c3.Low > c1.High && c2.Low > c1.High {
			if size := c3.Low - c1.High; size >= minGap {
				gaps = append(gaps, model.FairValueGap{
					StartIndex: i,
					EndIndex:   i + 2,
					Type:       model.Bullish,
					GapLow:     c1.High,
					GapHigh:    c3.Low,
					Size:       size,
				})
			}
		}

		if c3.High < c1.Low && c2.High < c1.Low {
			if size := c1.Low - c3.High; size >= minGap {
				gaps = append(gaps, model.FairValueGap{
					StartIndex: i,
					EndIndex:   i + 2,
					Type:       model.Bearish,
					GapLow:     c3.High,
					GapHigh:    c1.Low,
					Size:       size,
				})
			}
		}
	}

	MarkFilled(gaps, series)
	return gaps
}

func (d *FVGDetector) threshold(atr []float64, index int) float64 {
	if atr == nil || index < calculator.ATRPeriod || index >= len(atr) {
		return d.minGap
	}
	v := atr[index]
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return d.minGap
	}
	return v * ATRGapFactor
}

// MarkFilled scans bars after each open gap's formation and records the first
// retrace into it. Filled gaps are left untouched.
func MarkFilled(gaps []model.FairValueGap, series *model.PriceSeries) {
	n := series.Len()
	for i := range gaps {
		g := &gaps[i]
		if g.Filled {
			continue
		}
		for k := g.EndIndex + 1; k < n; k++ {
			bar := series.Bars[k]
			if (g.Type == model.Bullish && bar.Low <= g.GapHigh) ||
				(g.Type == model.Bearish && bar.High >= g.GapLow) {
				g.Filled = true
				g.FillIndex = k
				break
			}
		}
	}
}
