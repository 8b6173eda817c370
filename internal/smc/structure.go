package smc

import (
	"math"
	"sort"

	"BiasSentinel/internal/calculator"
	"BiasSentinel/internal/model"
)

const (
	// trendAvgWindow is the length of the recent and prior close averages.
	trendAvgWindow = 10
	// trendMinDistance is how far price must sit from the long EMA to count as trending.
	trendMinDistance = 0.01
)

// Classify derives BOS and CHoCH events from the swing sequence, sorted by index.
// Fewer than two swings of either kind yields no events.
func Classify(highs, lows []model.SwingPoint) []model.StructureEvent {
	if len(highs) < 2 || len(lows) < 2 {
		return nil
	}

	var events []model.StructureEvent

	// BOS: consecutive swing highs breaking higher, consecutive lows breaking lower
	for i := 1; i < len(highs); i++ {
		prev, cur := highs[i-1], highs[i]
		if cur.Price > prev.Price {
			events = append(events, newEvent(cur, model.BOSUp, prev.Price))
		}
	}
	for i := 1; i < len(lows); i++ {
		prev, cur := lows[i-1], lows[i]
		if cur.Price < prev.Price {
			events = append(events, newEvent(cur, model.BOSDown, prev.Price))
		}
	}

	// CHoCH: a swing breaking through the opposite swing right before it
	for _, h := range highs {
		if l, ok := precedingSwing(lows, h.Index); ok && h.Price < l.Price {
			events = append(events, newEvent(h, model.CHoCHBearish, l.Price))
		}
	}
	for _, l := range lows {
		if h, ok := precedingSwing(highs, l.Index); ok && l.Price > h.Price {
			events = append(events, newEvent(l, model.CHoCHBullish, h.Price))
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Index < events[j].Index })
	return events
}

func newEvent(p model.SwingPoint, kind model.StructureKind, previous float64) model.StructureEvent {
	strength := 0.0
	if previous != 0 {
		strength = math.Abs(p.Price-previous) / previous
	}
	return model.StructureEvent{
		Index:         p.Index,
		Kind:          kind,
		Value:         p.Price,
		PreviousValue: previous,
		Strength:      strength,
		Time:          p.Time,
	}
}

// precedingSwing returns the last swing strictly before index.
func precedingSwing(points []model.SwingPoint, index int) (model.SwingPoint, bool) {
	k := sort.Search(len(points), func(i int) bool { return points[i].Index >= index })
	if k == 0 {
		return model.SwingPoint{}, false
	}
	return points[k-1], true
}

// TrendContextOf labels the trend from price position against the long EMA
// and the recent versus prior 10-bar close averages. It does not use swings.
func TrendContextOf(series *model.PriceSeries) model.TrendContext {
	closes := series.Closes()
	n := len(closes)
	if n < 2*trendAvgWindow {
		return model.NeutralTrend
	}
	ema, _, err := calculator.CalculateLongEMA(closes)
	if err != nil || ema == 0 {
		return model.NeutralTrend
	}

	price := closes[n-1]
	distance := (price - ema) / ema
	recent := calculator.WindowMean(closes, n-trendAvgWindow, n)
	prior := calculator.WindowMean(closes, n-2*trendAvgWindow, n-trendAvgWindow)

	switch {
	case distance > trendMinDistance && recent > prior:
		return model.Uptrend
	case distance < -trendMinDistance && recent < prior:
		return model.Downtrend
	default:
		return model.NeutralTrend
	}
}
