package smc

import (
	"sort"

	"BiasSentinel/internal/model"
)

const (
	// DefaultOrderBlockLookback bounds how far back from the series tail BOS events are considered.
	DefaultOrderBlockLookback = 100

	minBlockScan = 3
	maxBlockScan = 10
)

// OrderBlockDetector finds the last opposing candle behind each recent BOS.
type OrderBlockDetector struct {
	lookback int
}

// NewOrderBlockDetector creates a detector considering BOS events in the last `lookback` bars.
func NewOrderBlockDetector(lookback int) *OrderBlockDetector {
	if lookback <= 0 {
		lookback = DefaultOrderBlockLookback
	}
	return &OrderBlockDetector{lookback: lookback}
}

// Detect builds order blocks for BOS events and marks the ones price has revisited.
func (d *OrderBlockDetector) Detect(series *model.PriceSeries, events []model.StructureEvent) []model.OrderBlock {
	n := series.Len()
	if n == 0 {
		return nil
	}
	start := n - d.lookback

	var blocks []model.OrderBlock
	seen := make(map[int]bool)

	for _, ev := range events {
		if !ev.Kind.IsBOS() || ev.Index < start || ev.Index >= n {
			continue
		}
		depth := scanDepth(ev.Strength)
		for j := ev.Index - 1; j >= 0 && j >= ev.Index-depth; j-- {
			bar := series.Bars[j]
			var typ model.Direction
			switch {
			case ev.Kind == model.BOSUp && bar.Bearish():
				typ = model.Bullish
			case ev.Kind == model.BOSDown && bar.Bullish():
				typ = model.Bearish
			default:
				continue
			}
			// nearest match only
			if !seen[j] {
				seen[j] = true
				blocks = append(blocks, newOrderBlock(j, bar, typ, ev.Index))
			}
			break
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Index < blocks[j].Index })
	MarkTouched(blocks, series)
	return blocks
}

// MarkTouched flags blocks whose range a later bar overlaps. A touched block
// is never reset, so repeated calls are monotonic.
func MarkTouched(blocks []model.OrderBlock, series *model.PriceSeries) {
	n := series.Len()
	for i := range blocks {
		b := &blocks[i]
		if b.Touched {
			continue
		}
		for k := b.Index + 1; k < n; k++ {
			if series.Bars[k].Overlaps(b.Low, b.High) {
				b.Touched = true
				b.TouchIndex = k
				break
			}
		}
	}
}

func newOrderBlock(index int, bar model.PriceBar, typ model.Direction, bosIndex int) model.OrderBlock {
	strength := 0.0
	if bar.Open != 0 {
		strength = bar.Body() / bar.Open
	}
	return model.OrderBlock{
		Index:    index,
		Type:     typ,
		Open:     bar.Open,
		High:     bar.High,
		Low:      bar.Low,
		Close:    bar.Close,
		Strength: strength,
		BOSIndex: bosIndex,
	}
}

// scanDepth is max(3, min(10, strength*100)).
func scanDepth(strength float64) int {
	d := int(strength * 100)
	if d > maxBlockScan {
		d = maxBlockScan
	}
	if d < minBlockScan {
		d = minBlockScan
	}
	return d
}
