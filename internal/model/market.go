package model

import "time"

// PriceBar represents a single OHLC candlestick bar.
type PriceBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume,omitempty"`
}

// Bullish reports whether the bar closed above its open.
func (b PriceBar) Bullish() bool { return b.Close > b.Open }

// Bearish reports whether the bar closed below its open.
func (b PriceBar) Bearish() bool { return b.Close < b.Open }

// Body returns the absolute open-close distance.
func (b PriceBar) Body() float64 {
	if b.Close > b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// Overlaps reports whether the bar's [low, high] range intersects [low, high].
func (b PriceBar) Overlaps(low, high float64) bool {
	return b.Low <= high && b.High >= low
}

// PriceSeries is an ordered, ingested sequence of bars for one symbol/timeframe.
// Bars are treated as read-only once the series leaves ingestion.
type PriceSeries struct {
	Symbol    string
	Timeframe string
	Bars      []PriceBar
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar. The series must not be empty.
func (s *PriceSeries) Last() PriceBar { return s.Bars[len(s.Bars)-1] }

// Closes returns a fresh slice of close prices.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns a fresh slice of high prices.
func (s *PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns a fresh slice of low prices.
func (s *PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}
