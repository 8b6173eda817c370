package smc

import (
	"math"
	"testing"
	"time"

	"BiasSentinel/internal/model"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seriesOf(bars ...model.PriceBar) *model.PriceSeries {
	for i := range bars {
		bars[i].Time = t0.Add(time.Duration(i) * time.Hour)
	}
	return &model.PriceSeries{Symbol: "TEST", Timeframe: "1h", Bars: bars}
}

func bar(o, h, l, c float64) model.PriceBar {
	return model.PriceBar{Open: o, High: h, Low: l, Close: c}
}

func fromHighs(highs []float64) *model.PriceSeries {
	bars := make([]model.PriceBar, len(highs))
	for i, h := range highs {
		bars[i] = bar(h-0.5, h, h-1, h-0.5)
	}
	return seriesOf(bars...)
}

func ramp(n int, start, step float64) *model.PriceSeries {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := start + float64(i)*step
		o := c - step
		bars[i] = bar(o, math.Max(o, c), math.Min(o, c), c)
	}
	return seriesOf(bars...)
}

func flatBars(n int, price float64) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		bars[i] = bar(price, price+0.5, price-0.5, price)
	}
	return bars
}

func TestSwingDetector_ShortSeries(t *testing.T) {
	d := NewSwingDetector(5)
	highs, lows := d.Detect(ramp(10, 100, 1))
	if len(highs) != 0 || len(lows) != 0 {
		t.Errorf("expected no swings for 10 bars, got %d highs %d lows", len(highs), len(lows))
	}
}

func TestSwingDetector_Peak(t *testing.T) {
	s := fromHighs([]float64{10, 11, 12, 13, 14, 20, 14, 13, 12, 11, 10})
	highs, lows := NewSwingDetector(5).Detect(s)
	if len(highs) != 1 {
		t.Fatalf("expected 1 swing high, got %d", len(highs))
	}
	if highs[0].Index != 5 || highs[0].Price != 20 || highs[0].Kind != model.SwingHigh {
		t.Errorf("unexpected swing high: %+v", highs[0])
	}
	if !highs[0].Time.Equal(s.Bars[5].Time) {
		t.Errorf("swing time = %v, expected %v", highs[0].Time, s.Bars[5].Time)
	}
	if len(lows) != 0 {
		t.Errorf("expected no swing lows, got %d", len(lows))
	}
}

func TestSwingDetector_TieTakesEarliest(t *testing.T) {
	s := fromHighs([]float64{10, 11, 12, 13, 14, 20, 20, 14, 13, 12, 11, 10})
	highs, _ := NewSwingDetector(5).Detect(s)
	if len(highs) != 1 || highs[0].Index != 5 {
		t.Fatalf("expected single swing high at 5, got %+v", highs)
	}
}

func TestSwingDetector_FlatSeries(t *testing.T) {
	highs, lows := NewSwingDetector(5).Detect(seriesOf(flatBars(50, 100)...))
	if len(highs) != 0 || len(lows) != 0 {
		t.Errorf("flat series produced swings: %d highs %d lows", len(highs), len(lows))
	}
}

func TestSwingDetector_DefaultLookback(t *testing.T) {
	d := NewSwingDetector(0)
	if d.Lookback() != DefaultSwingLookback {
		t.Errorf("lookback = %d, expected %d", d.Lookback(), DefaultSwingLookback)
	}
	if d.MinBars() != 11 {
		t.Errorf("min bars = %d, expected 11", d.MinBars())
	}
}

func TestClassify(t *testing.T) {
	hp := func(i int, p float64) model.SwingPoint { return model.SwingPoint{Index: i, Price: p, Kind: model.SwingHigh} }
	lp := func(i int, p float64) model.SwingPoint { return model.SwingPoint{Index: i, Price: p, Kind: model.SwingLow} }

	tests := []struct {
		name  string
		highs []model.SwingPoint
		lows  []model.SwingPoint
		want  []model.StructureKind
		index []int
	}{
		{
			name:  "too few swings",
			highs: []model.SwingPoint{hp(2, 100)},
			lows:  []model.SwingPoint{lp(5, 90), lp(8, 85)},
		},
		{
			name:  "bos both ways",
			highs: []model.SwingPoint{hp(2, 100), hp(8, 110)},
			lows:  []model.SwingPoint{lp(5, 90), lp(11, 85)},
			want:  []model.StructureKind{model.BOSUp, model.BOSDown},
			index: []int{8, 11},
		},
		{
			name:  "bearish choch",
			highs: []model.SwingPoint{hp(2, 100), hp(8, 88)},
			lows:  []model.SwingPoint{lp(5, 90), lp(11, 85)},
			want:  []model.StructureKind{model.CHoCHBearish, model.BOSDown},
			index: []int{8, 11},
		},
		{
			name:  "bullish choch",
			highs: []model.SwingPoint{hp(2, 100), hp(8, 99)},
			lows:  []model.SwingPoint{lp(5, 90), lp(11, 101)},
			want:  []model.StructureKind{model.CHoCHBullish},
			index: []int{11},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Classify(tt.highs, tt.lows)
			if len(events) != len(tt.want) {
				t.Fatalf("got %d events %+v, expected %d", len(events), events, len(tt.want))
			}
			for i, ev := range events {
				if ev.Kind != tt.want[i] || ev.Index != tt.index[i] {
					t.Errorf("event %d = %s@%d, expected %s@%d", i, ev.Kind, ev.Index, tt.want[i], tt.index[i])
				}
			}
		})
	}
}

func TestClassify_Strength(t *testing.T) {
	highs := []model.SwingPoint{{Index: 2, Price: 100}, {Index: 8, Price: 110}}
	lows := []model.SwingPoint{{Index: 5, Price: 90}, {Index: 11, Price: 95}}
	events := Classify(highs, lows)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if math.Abs(events[0].Strength-0.1) > 1e-12 {
		t.Errorf("strength = %.6f, expected 0.1", events[0].Strength)
	}
	if events[0].PreviousValue != 100 || events[0].Value != 110 {
		t.Errorf("unexpected values: %+v", events[0])
	}
}

func TestTrendContextOf(t *testing.T) {
	tests := []struct {
		name   string
		series *model.PriceSeries
		want   model.TrendContext
	}{
		{"rising", ramp(250, 100, 1), model.Uptrend},
		{"falling", ramp(250, 400, -1), model.Downtrend},
		{"flat", seriesOf(flatBars(250, 100)...), model.NeutralTrend},
		{"too short", ramp(15, 100, 1), model.NeutralTrend},
	}
	for _, tt := range tests {
		if got := TrendContextOf(tt.series); got != tt.want {
			t.Errorf("%s: trend = %s, expected %s", tt.name, got, tt.want)
		}
	}
}

// obSeries has a bearish candle at 3 followed by a clean rally.
func obSeries(extra ...model.PriceBar) *model.PriceSeries {
	bars := []model.PriceBar{
		bar(100, 101, 99, 100.5),
		bar(100.5, 102, 100, 101.5),
		bar(101.5, 106, 101, 105),
		bar(105, 106, 99, 100),
	}
	for i := 4; i < 10; i++ {
		f := float64(i)
		bars = append(bars, bar(110+f, 112+f, 109+f, 111+f))
	}
	bars = append(bars, extra...)
	return seriesOf(bars...)
}

func TestOrderBlockDetector_Detect(t *testing.T) {
	s := obSeries()
	events := []model.StructureEvent{{Index: 6, Kind: model.BOSUp, Strength: 0.05}}
	blocks := NewOrderBlockDetector(100).Detect(s, events)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Index != 3 || b.Type != model.Bullish || b.BOSIndex != 6 {
		t.Errorf("unexpected block: %+v", b)
	}
	if math.Abs(b.Strength-5.0/105.0) > 1e-12 {
		t.Errorf("strength = %.6f, expected %.6f", b.Strength, 5.0/105.0)
	}
	if b.Touched {
		t.Error("block should not be touched")
	}
}

func TestOrderBlockDetector_Dedupe(t *testing.T) {
	events := []model.StructureEvent{
		{Index: 6, Kind: model.BOSUp, Strength: 0.05},
		{Index: 7, Kind: model.BOSUp, Strength: 0.05},
	}
	blocks := NewOrderBlockDetector(100).Detect(obSeries(), events)
	if len(blocks) != 1 {
		t.Fatalf("expected deduped single block, got %d", len(blocks))
	}
}

func TestOrderBlockDetector_IgnoresOldAndNonBOS(t *testing.T) {
	events := []model.StructureEvent{
		{Index: 6, Kind: model.BOSUp, Strength: 0.05},
		{Index: 8, Kind: model.CHoCHBullish, Strength: 0.05},
	}
	blocks := NewOrderBlockDetector(3).Detect(obSeries(), events)
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %+v", blocks)
	}
}

func TestOrderBlockDetector_TouchMonotonic(t *testing.T) {
	events := []model.StructureEvent{{Index: 6, Kind: model.BOSUp, Strength: 0.05}}
	full := obSeries(bar(115, 116, 104, 105))
	blocks := NewOrderBlockDetector(100).Detect(full, events)
	if len(blocks) != 1 || !blocks[0].Touched || blocks[0].TouchIndex != 10 {
		t.Fatalf("expected block touched at 10, got %+v", blocks)
	}

	// re-running on a shorter view never resets the flag
	MarkTouched(blocks, obSeries())
	if !blocks[0].Touched || blocks[0].TouchIndex != 10 {
		t.Errorf("touch was reset: %+v", blocks[0])
	}
}

func scenarioGap() []model.PriceBar {
	return []model.PriceBar{
		bar(100, 101, 99, 100.5),
		bar(102, 125, 102, 124),
		bar(124, 130, 121, 128),
	}
}

func TestFVGDetector_BullishGap(t *testing.T) {
	gaps := NewFVGDetector(0, true).Detect(seriesOf(scenarioGap()...))
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	g := gaps[0]
	if g.Type != model.Bullish || g.GapLow != 101 || g.GapHigh != 121 || g.Size != 20 {
		t.Errorf("unexpected gap: %+v", g)
	}
	if g.StartIndex != 0 || g.EndIndex != 2 || g.Filled {
		t.Errorf("unexpected gap indices/fill: %+v", g)
	}
}

func TestFVGDetector_BearishGap(t *testing.T) {
	s := seriesOf(
		bar(130, 131, 129, 129.5),
		bar(128, 128, 105, 106),
		bar(106, 109, 100, 102),
	)
	gaps := NewFVGDetector(0, false).Detect(s)
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	if g := gaps[0]; g.Type != model.Bearish || g.GapLow != 109 || g.GapHigh != 129 {
		t.Errorf("unexpected gap: %+v", g)
	}
}

func TestFVGDetector_StaticMinGap(t *testing.T) {
	if gaps := NewFVGDetector(25, false).Detect(seriesOf(scenarioGap()...)); len(gaps) != 0 {
		t.Errorf("expected gap below min size to be rejected, got %+v", gaps)
	}
}

func TestFVGDetector_Fill(t *testing.T) {
	bars := append(scenarioGap(), bar(127, 128, 119, 120), bar(120, 122, 110, 111))
	gaps := NewFVGDetector(0, false).Detect(seriesOf(bars...))
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	g := gaps[0]
	if !g.Filled || g.FillIndex != 3 {
		t.Errorf("expected fill at 3, got %+v", g)
	}
	if g.FillIndex < g.EndIndex+1 {
		t.Errorf("fill index %d precedes formation end %d", g.FillIndex, g.EndIndex)
	}
}

func TestFVGDetector_ATRSized(t *testing.T) {
	bars := flatBars(17, 100)
	bars = append(bars,
		bar(100, 100.5, 99.5, 100.2),
		bar(101, 111, 101, 110),
		bar(110.5, 112, 110.5, 111.5),
	)
	gaps := NewFVGDetector(0, true).Detect(seriesOf(bars...))
	if len(gaps) != 1 {
		t.Fatalf("expected exactly 1 gap, got %d", len(gaps))
	}
	g := gaps[0]
	if g.Type != model.Bullish || g.GapLow != bars[17].High || g.GapHigh != bars[19].Low {
		t.Errorf("unexpected gap: %+v", g)
	}
}

func TestFVGDetector_ATRRejectsNoise(t *testing.T) {
	bars := flatBars(17, 100)
	bars = append(bars,
		bar(100, 100.5, 99.5, 100.2),
		bar(100.55, 100.65, 100.52, 100.6),
		bar(100.6, 100.7, 100.55, 100.65),
	)
	if gaps := NewFVGDetector(0, true).Detect(seriesOf(bars...)); len(gaps) != 0 {
		t.Errorf("expected ATR filter to reject tiny gap, got %+v", gaps)
	}
	if gaps := NewFVGDetector(0, false).Detect(seriesOf(bars...)); len(gaps) != 1 {
		t.Errorf("expected static filter to keep tiny gap, got %d", len(gaps))
	}
}

func TestFVGDetector_ShortSeries(t *testing.T) {
	if gaps := NewFVGDetector(0, true).Detect(seriesOf(scenarioGap()[:2]...)); gaps != nil {
		t.Errorf("expected no gaps for 2 bars, got %+v", gaps)
	}
}

func TestDetectLiquidity(t *testing.T) {
	res, sup := DetectLiquidity([]float64{105, 100.02, 100, 100.03}, nil, 0.05, 2)
	if len(sup) != 0 {
		t.Errorf("expected no support, got %+v", sup)
	}
	if len(res) != 1 {
		t.Fatalf("expected 1 resistance level, got %d", len(res))
	}
	lvl := res[0]
	if lvl.Touches != 3 || lvl.Type != model.Resistance {
		t.Errorf("unexpected level: %+v", lvl)
	}
	if math.Abs(lvl.Level-300.05/3) > 1e-9 {
		t.Errorf("level = %.4f, expected ~100.0167", lvl.Level)
	}
	if math.Abs(lvl.Strength-0.75) > 1e-12 {
		t.Errorf("strength = %.4f, expected 0.75", lvl.Strength)
	}
}

func TestDetectLiquidity_BoundaryInclusive(t *testing.T) {
	// 3 sits exactly 50% above 2 and joins; 3.5 starts a new cluster
	_, sup := DetectLiquidity(nil, []float64{3.5, 2, 3}, 50, 2)
	if len(sup) != 1 {
		t.Fatalf("expected 1 support level, got %+v", sup)
	}
	if sup[0].Touches != 2 || sup[0].Level != 2.5 || sup[0].Type != model.Support {
		t.Errorf("unexpected level: %+v", sup[0])
	}
}

func TestLatestSignals_OrderBlock(t *testing.T) {
	tests := []struct {
		name   string
		blocks []model.OrderBlock
		want   float64
	}{
		{"none", nil, 0},
		{"untouched bullish", []model.OrderBlock{{Type: model.Bullish, Strength: 0.004}}, 0.4},
		{"capped", []model.OrderBlock{{Type: model.Bullish, Strength: 0.02}, {Type: model.Bearish, Touched: true}}, 1},
		{"only touched", []model.OrderBlock{{Type: model.Bullish, Touched: true}, {Type: model.Bearish, Touched: true}}, -0.5},
	}
	for _, tt := range tests {
		got := LatestSignals(model.StructureAnalysis{OrderBlocks: tt.blocks}, 100).OrderBlock
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: order block signal = %.4f, expected %.4f", tt.name, got, tt.want)
		}
	}
}

func TestLatestSignals_FVG(t *testing.T) {
	tests := []struct {
		name string
		gaps []model.FairValueGap
		want float64
	}{
		{"none", nil, 0},
		{"unfilled small", []model.FairValueGap{{Type: model.Bearish, Size: 0.5}}, -0.5},
		{"unfilled capped", []model.FairValueGap{{Type: model.Bullish, Size: 2}}, 1},
		{"only filled", []model.FairValueGap{{Type: model.Bearish, Filled: true}}, -0.5},
	}
	for _, tt := range tests {
		got := LatestSignals(model.StructureAnalysis{FairValueGaps: tt.gaps}, 100).FVG
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: fvg signal = %.4f, expected %.4f", tt.name, got, tt.want)
		}
	}
}

func TestLatestSignals_Structure(t *testing.T) {
	ev := func(k model.StructureKind) model.StructureEvent { return model.StructureEvent{Kind: k} }
	tests := []struct {
		name   string
		events []model.StructureEvent
		want   float64
	}{
		{"none", nil, 0},
		{"older events ignored", []model.StructureEvent{ev(model.BOSDown), ev(model.BOSUp), ev(model.BOSUp), ev(model.BOSUp)}, 1},
		{"majority up", []model.StructureEvent{ev(model.BOSUp), ev(model.BOSDown), ev(model.BOSUp)}, 2.0 / 3.0},
		{"tie", []model.StructureEvent{ev(model.BOSUp), ev(model.CHoCHBearish), ev(model.BOSDown)}, 0},
		{"all down", []model.StructureEvent{ev(model.BOSDown), ev(model.BOSDown)}, -1},
	}
	for _, tt := range tests {
		got := LatestSignals(model.StructureAnalysis{Events: tt.events}, 100).Structure
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: structure signal = %.4f, expected %.4f", tt.name, got, tt.want)
		}
	}
}

func TestLatestSignals_Liquidity(t *testing.T) {
	res := []model.LiquidityLevel{{Level: 100.05}}
	sup := []model.LiquidityLevel{{Level: 99.95}}
	tests := []struct {
		name     string
		res, sup []model.LiquidityLevel
		want     float64
	}{
		{"near resistance", res, nil, -0.5},
		{"near support", nil, sup, 0.5},
		{"resistance wins", res, sup, -0.5},
		{"far", []model.LiquidityLevel{{Level: 110}}, []model.LiquidityLevel{{Level: 90}}, 0},
	}
	for _, tt := range tests {
		got := LatestSignals(model.StructureAnalysis{Resistance: tt.res, Support: tt.sup}, 100).Liquidity
		if got != tt.want {
			t.Errorf("%s: liquidity signal = %.2f, expected %.2f", tt.name, got, tt.want)
		}
	}
}

func TestDetector_Ramp(t *testing.T) {
	d := NewDetector(DefaultConfig())
	s := ramp(250, 100, 1)
	a := d.Analyze(s)
	if len(a.SwingHighs) != 0 || len(a.SwingLows) != 0 {
		t.Errorf("monotonic ramp produced swings: %d/%d", len(a.SwingHighs), len(a.SwingLows))
	}
	if a.Trend != model.Uptrend {
		t.Errorf("trend = %s, expected uptrend", a.Trend)
	}
	if len(a.FairValueGaps) != 0 {
		t.Errorf("ramp produced %d gaps", len(a.FairValueGaps))
	}
	sig := LatestSignals(a, s.Last().Close)
	if sig.OrderBlock != 0 || sig.FVG != 0 || sig.Structure != 0 || sig.Liquidity != 0 {
		t.Errorf("expected zero structure signals, got %+v", sig)
	}
}
