// Package ingest turns raw fetched bars into a clean, time-ordered PriceSeries.
package ingest

import (
	"fmt"
	"math"
	"sort"

	"BiasSentinel/internal/model"

	"github.com/rs/zerolog"
)

// Stats counts what Normalize changed.
type Stats struct {
	Input      int `json:"input"`
	Clamped    int `json:"clamped"`    // bars whose high/low were widened
	Dropped    int `json:"dropped"`    // non-finite or non-positive bars
	Duplicates int `json:"duplicates"` // repeated timestamps, first kept
}

// Corrections is the total number of bars touched.
func (s Stats) Corrections() int { return s.Clamped + s.Dropped + s.Duplicates }

// Normalizer cleans bars before analysis.
type Normalizer struct {
	logger zerolog.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With().Str("component", "ingest").Logger()}
}

// CheckBar reports why a bar violates the OHLC invariants, wrapping model.ErrInvalidBar.
func CheckBar(b model.PriceBar) error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: non-positive or non-finite price at %s", model.ErrInvalidBar, b.Time.Format("2006-01-02 15:04"))
		}
	}
	if b.High < math.Max(math.Max(b.Open, b.Close), b.Low) || b.Low > math.Min(math.Min(b.Open, b.Close), b.High) {
		return fmt.Errorf("%w: high/low do not bound the bar at %s", model.ErrInvalidBar, b.Time.Format("2006-01-02 15:04"))
	}
	return nil
}

// Normalize sorts bars by time, drops unusable and duplicate bars, and clamps
// high/low to bound open and close. The input slice is not modified.
func (n *Normalizer) Normalize(symbol, timeframe string, bars []model.PriceBar) (*model.PriceSeries, Stats) {
	stats := Stats{Input: len(bars)}

	sorted := append([]model.PriceBar(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := make([]model.PriceBar, 0, len(sorted))
	for _, b := range sorted {
		if !usable(b) {
			stats.Dropped++
			continue
		}
		if len(out) > 0 && !b.Time.After(out[len(out)-1].Time) {
			stats.Duplicates++
			continue
		}
		if CheckBar(b) != nil {
			hi := math.Max(math.Max(b.Open, b.High), math.Max(b.Close, b.Low))
			lo := math.Min(math.Min(b.Open, b.High), math.Min(b.Close, b.Low))
			b.High, b.Low = hi, lo
			stats.Clamped++
		}
		out = append(out, b)
	}

	if c := stats.Corrections(); c > 0 {
		n.logger.Warn().
			Str("symbol", symbol).
			Int("clamped", stats.Clamped).
			Int("dropped", stats.Dropped).
			Int("duplicates", stats.Duplicates).
			Msgf("corrected %d of %d bars", c, stats.Input)
	}

	return &model.PriceSeries{Symbol: symbol, Timeframe: timeframe, Bars: out}, stats
}

func usable(b model.PriceBar) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return true
}
