package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"BiasSentinel/internal/collector"
	"BiasSentinel/internal/model"
	"BiasSentinel/internal/recorder"
	"BiasSentinel/internal/smc"
	"BiasSentinel/internal/strategy"
	"BiasSentinel/internal/weights"

	"github.com/rs/zerolog"
)

var t0 = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

// risingBars builds an overlapping uptrend with no gaps and no swing points.
func risingBars(n int) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.PriceBar{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  c - 0.5,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return bars
}

func flatBars(n int, price float64) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		bars[i] = model.PriceBar{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  price,
			High:  price + 0.5,
			Low:   price - 0.5,
			Close: price,
		}
	}
	return bars
}

// lineBars builds bars with identical OHLC at each step.
func lineBars(n int, start, step float64) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		p := start + step*float64(i)
		bars[i] = model.PriceBar{Time: t0.Add(time.Duration(i) * time.Hour), Open: p, High: p, Low: p, Close: p}
	}
	return bars
}

func newTestAnalyzer() *Analyzer {
	return New(smc.NewDetector(smc.DefaultConfig()), strategy.NewEngine(strategy.DefaultConfig()), zerolog.Nop())
}

func series(bars []model.PriceBar) *model.PriceSeries {
	return &model.PriceSeries{Symbol: "TEST", Timeframe: "1h", Bars: bars}
}

func TestAnalyze_RisingMarket(t *testing.T) {
	rep, err := newTestAnalyzer().Analyze(series(risingBars(250)), model.DefaultRuleWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rep.Result
	if r.TrendContext != model.Uptrend {
		t.Errorf("trend = %s, expected uptrend", r.TrendContext)
	}
	if r.PerIndicatorScores[model.KeyEMATrend] <= 0 {
		t.Errorf("ema_trend = %.3f, expected > 0", r.PerIndicatorScores[model.KeyEMATrend])
	}
	if r.Label != model.LabelBullish {
		t.Errorf("label = %s, expected BULLISH (score %.3f, conf %.3f)", r.Label, r.WeightedScore, r.Confidence)
	}
	if rep.BarCount != 250 || rep.Price != 349 {
		t.Errorf("unexpected report metadata: bars=%d price=%.1f", rep.BarCount, rep.Price)
	}
	if rep.RunID == "" {
		t.Error("run id not set")
	}
	if len(r.Notes) != 0 {
		t.Errorf("unexpected notes for a full series: %v", r.Notes)
	}
}

func TestAnalyze_FlatMarket(t *testing.T) {
	rep, err := newTestAnalyzer().Analyze(series(flatBars(250, 100)), model.DefaultRuleWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(rep.Structure.SwingHighs) + len(rep.Structure.SwingLows); n != 0 {
		t.Errorf("expected no swings, got %d", n)
	}
	r := rep.Result
	if r.TrendContext != model.NeutralTrend {
		t.Errorf("trend = %s, expected neutral", r.TrendContext)
	}
	if math.Abs(r.WeightedScore) > 1e-9 {
		t.Errorf("weighted score = %.6f, expected ~0", r.WeightedScore)
	}
	if r.Label != model.LabelNeutral {
		t.Errorf("label = %s, expected NEUTRAL", r.Label)
	}
}

func TestAnalyze_SinglePriceBars(t *testing.T) {
	tests := []struct {
		name  string
		bars  []model.PriceBar
		label model.BiasLabel
		trend model.TrendContext
	}{
		{"monotonic ramp", lineBars(250, 100, 1), model.LabelBullish, model.Uptrend},
		{"constant price", lineBars(250, 100, 0), model.LabelNeutral, model.NeutralTrend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := newTestAnalyzer().Analyze(series(tt.bars), model.DefaultRuleWeights())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			r := rep.Result
			if r.Label != tt.label || r.TrendContext != tt.trend {
				t.Errorf("got %s/%s (score %.3f), expected %s/%s", r.Label, r.TrendContext, r.WeightedScore, tt.label, tt.trend)
			}
			if r.Confidence < 0 || r.Confidence > 0.95 || r.WeightedScore < -1 || r.WeightedScore > 1 {
				t.Errorf("out of range: score %.3f conf %.3f", r.WeightedScore, r.Confidence)
			}
		})
	}

	rep, err := newTestAnalyzer().Analyze(series(lineBars(250, 100, 0)), model.DefaultRuleWeights())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(rep.Structure.SwingHighs) + len(rep.Structure.SwingLows); n != 0 {
		t.Errorf("constant price: expected no swings, got %d", n)
	}
	if math.Abs(rep.Result.WeightedScore) > 1e-9 {
		t.Errorf("constant price: weighted score = %.6f, expected 0", rep.Result.WeightedScore)
	}
}

func TestAnalyze_NormalizesRawBars(t *testing.T) {
	bars := risingBars(60)
	bars[30].High, bars[30].Low = 79, 181
	bars[59].Close = math.NaN()

	rep, err := newTestAnalyzer().Analyze(series(bars), model.DefaultRuleWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.BarCount != 59 {
		t.Errorf("bar count = %d, expected 59 after dropping the NaN bar", rep.BarCount)
	}
	if rep.Price != bars[58].Close {
		t.Errorf("price = %v, expected last usable close %.1f", rep.Price, bars[58].Close)
	}
	if rep.Corrections != 2 {
		t.Errorf("corrections = %d, expected 2", rep.Corrections)
	}
	if bars[30].High != 79 || !math.IsNaN(bars[59].Close) {
		t.Error("input bars were modified")
	}
	if _, err := json.Marshal(rep); err != nil {
		t.Errorf("report does not encode: %v", err)
	}

	nan := math.NaN()
	junk := []model.PriceBar{
		{Time: t0, Open: nan, High: nan, Low: nan, Close: nan},
		{Time: t0.Add(time.Hour), Open: -1, High: -1, Low: -1, Close: -1},
	}
	if _, err := newTestAnalyzer().Analyze(series(junk), model.DefaultRuleWeights()); !errors.Is(err, model.ErrEmptySeries) {
		t.Errorf("expected ErrEmptySeries for unusable bars, got %v", err)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := newTestAnalyzer()
	s := series(risingBars(120))
	w := model.DefaultRuleWeights()

	first, err := a.Analyze(s, w)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Analyze(s, w)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Result, second.Result) {
		t.Errorf("results differ:\n%+v\n%+v", first.Result, second.Result)
	}
	if !reflect.DeepEqual(first.Structure, second.Structure) {
		t.Error("structure analysis differs between runs")
	}
	if first.RunID == second.RunID {
		t.Error("run ids should be unique per run")
	}
}

func TestAnalyze_Empty(t *testing.T) {
	_, err := newTestAnalyzer().Analyze(series(nil), model.DefaultRuleWeights())
	if !errors.Is(err, model.ErrEmptySeries) {
		t.Errorf("expected ErrEmptySeries, got %v", err)
	}
}

func TestAnalyze_TooFewBars(t *testing.T) {
	rep, err := newTestAnalyzer().Analyze(series(risingBars(2)), model.DefaultRuleWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := rep.Result
	if !r.InsufficientData || r.Label != model.LabelNeutral || r.Confidence != 0 {
		t.Errorf("expected insufficient neutral result, got %+v", r)
	}
}

func TestAnalyze_DegradedNotes(t *testing.T) {
	rep, err := newTestAnalyzer().Analyze(series(risingBars(10)), model.DefaultRuleWeights())
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"degraded: missing rsi": false, "degraded: missing macd": false}
	for _, n := range rep.Result.Notes {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for note, seen := range want {
		if !seen {
			t.Errorf("missing note %q in %v", note, rep.Result.Notes)
		}
	}
}

func TestAnalyze_Bounds(t *testing.T) {
	a := newTestAnalyzer()
	for _, n := range []int{3, 5, 20, 40, 300} {
		rep, err := a.Analyze(series(risingBars(n)), model.DefaultRuleWeights())
		if err != nil {
			t.Fatalf("%d bars: %v", n, err)
		}
		r := rep.Result
		if r.Confidence < 0 || r.Confidence > 0.95 {
			t.Errorf("%d bars: confidence %.3f out of range", n, r.Confidence)
		}
		if r.WeightedScore < -1 || r.WeightedScore > 1 {
			t.Errorf("%d bars: score %.3f out of range", n, r.WeightedScore)
		}
	}
}

func TestLatestStore(t *testing.T) {
	s := NewLatestStore()
	s.Put(&model.AnalysisReport{Symbol: "B", AnalyzedAt: t0.Add(time.Hour), RunID: "new"})
	s.Put(&model.AnalysisReport{Symbol: "B", AnalyzedAt: t0, RunID: "old"})
	s.Put(&model.AnalysisReport{Symbol: "A", AnalyzedAt: t0})

	if rep, ok := s.Get("B"); !ok || rep.RunID != "new" {
		t.Errorf("older report replaced newer one: %+v", rep)
	}
	all := s.All()
	if len(all) != 2 || all[0].Symbol != "A" || all[1].Symbol != "B" {
		t.Errorf("unexpected order: %v", all)
	}
	if _, ok := s.Get("C"); ok {
		t.Error("unexpected report for unknown symbol")
	}
}

// memRecorder is an in-memory recorder.Recorder.
type memRecorder struct {
	mu       sync.Mutex
	analyses []*model.AnalysisReport
	verified []model.VerifiedPrediction
	events   []*recorder.WeightsEvent
}

func (m *memRecorder) RecordAnalysis(_ context.Context, rep *model.AnalysisReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, rep)
	return nil
}

func (m *memRecorder) PendingVerifications(context.Context, time.Time, int) ([]model.PendingPrediction, error) {
	return nil, nil
}

func (m *memRecorder) RecordVerification(_ context.Context, v *model.VerifiedPrediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verified = append(m.verified, *v)
	return nil
}

func (m *memRecorder) RecentVerified(_ context.Context, limit int) ([]model.VerifiedPrediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.verified) > limit {
		return m.verified[:limit], nil
	}
	return m.verified, nil
}

func (m *memRecorder) RecordWeightsEvent(_ context.Context, evt *recorder.WeightsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *memRecorder) Close() error { return nil }

type memPublisher struct {
	mu      sync.Mutex
	symbols []string
}

func (p *memPublisher) Publish(_ context.Context, rep *model.AnalysisReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbols = append(p.symbols, rep.Symbol)
	return nil
}

func newManager(t *testing.T) *weights.Manager {
	t.Helper()
	wm, err := weights.NewManager(filepath.Join(t.TempDir(), "weights.json"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return wm
}

func TestRunner_AnalyzeAll(t *testing.T) {
	col := collector.NewCollector(&collector.MockFetcher{Bars: risingBars(250)}, "1h", 300, zerolog.Nop())
	rec := &memRecorder{}
	pub := &memPublisher{}
	runner := NewRunner(newTestAnalyzer(), col, newManager(t), rec, pub, nil, 2, zerolog.Nop())

	symbols := []string{"AAA", "BBB", "CCC"}
	results := runner.AnalyzeAll(context.Background(), symbols)
	if len(results) != len(symbols) {
		t.Fatalf("expected %d results, got %d", len(symbols), len(results))
	}
	for i, res := range results {
		if res.Symbol != symbols[i] {
			t.Errorf("result %d: symbol %s, expected %s", i, res.Symbol, symbols[i])
		}
		if res.Err != nil || res.Report == nil {
			t.Errorf("%s: unexpected failure: %v", res.Symbol, res.Err)
			continue
		}
		if res.Report.Symbol != res.Symbol {
			t.Errorf("report symbol %s for %s", res.Report.Symbol, res.Symbol)
		}
	}
	if len(rec.analyses) != 3 || len(pub.symbols) != 3 || len(runner.Latest().All()) != 3 {
		t.Errorf("sinks saw %d/%d/%d reports, expected 3 each", len(rec.analyses), len(pub.symbols), len(runner.Latest().All()))
	}
}

func TestRunner_CollectError(t *testing.T) {
	boom := errors.New("upstream down")
	col := collector.NewCollector(&collector.MockFetcher{Err: boom}, "1h", 300, zerolog.Nop())
	rec := &memRecorder{}
	runner := NewRunner(newTestAnalyzer(), col, newManager(t), rec, nil, nil, 0, zerolog.Nop())

	results := runner.AnalyzeAll(context.Background(), []string{"AAA"})
	if !errors.Is(results[0].Err, boom) {
		t.Errorf("expected wrapped fetch error, got %v", results[0].Err)
	}
	if len(rec.analyses) != 0 {
		t.Error("failed run should not be recorded")
	}
}

func TestRunner_Cancelled(t *testing.T) {
	col := collector.NewCollector(&collector.MockFetcher{Bars: risingBars(50)}, "1h", 300, zerolog.Nop())
	runner := NewRunner(newTestAnalyzer(), col, newManager(t), nil, nil, nil, 1, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := runner.AnalyzeAll(ctx, []string{"AAA", "BBB"})
	for _, res := range results {
		if res.Err == nil && res.Report == nil {
			t.Errorf("%s: neither report nor error", res.Symbol)
		}
	}
}

func verifiedRows(n, correct int) []model.VerifiedPrediction {
	rows := make([]model.VerifiedPrediction, n)
	for i := range rows {
		predicted := model.LabelBearish
		if i < correct {
			predicted = model.LabelBullish
		}
		rows[i] = model.VerifiedPrediction{
			RunID:      "r",
			Symbol:     "AAA",
			AnalyzedAt: t0.Add(-time.Duration(i) * time.Hour),
			Predicted:  predicted,
			Actual:     model.LabelBullish,
			Correct:    predicted == model.LabelBullish,
			IndicatorScores: map[string]float64{
				model.KeyEMATrend: 1,
				model.KeyMACD:     -1,
			},
		}
	}
	return rows
}

func TestRetrainer_Run(t *testing.T) {
	wm := newManager(t)
	before := wm.Snapshot()
	rec := &memRecorder{verified: verifiedRows(12, 3)}
	rt := NewRetrainer(strategy.NewEngine(strategy.DefaultConfig()), wm, rec, 50, 0.95, zerolog.Nop())

	out, err := rt.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Ran {
		t.Fatalf("expected retrain to run: %s", out.Reason)
	}
	after := wm.Snapshot()
	if after[model.KeyEMATrend] <= before[model.KeyEMATrend] {
		t.Errorf("ema_trend weight %.3f not raised from %.3f", after[model.KeyEMATrend], before[model.KeyEMATrend])
	}
	if after[model.KeyMACD] >= before[model.KeyMACD] {
		t.Errorf("macd weight %.3f not lowered from %.3f", after[model.KeyMACD], before[model.KeyMACD])
	}
	if math.Abs(after.Sum()-1) > 1e-6 {
		t.Errorf("weights sum to %.6f", after.Sum())
	}
	if len(rec.events) != 1 || !rec.events[0].Ran {
		t.Errorf("expected one weights event, got %d", len(rec.events))
	}
}

func TestRetrainer_Gated(t *testing.T) {
	tests := []struct {
		name string
		rows []model.VerifiedPrediction
	}{
		{"too few samples", verifiedRows(5, 0)},
		{"accurate enough", verifiedRows(12, 12)},
	}
	for _, tt := range tests {
		wm := newManager(t)
		rec := &memRecorder{verified: tt.rows}
		rt := NewRetrainer(strategy.NewEngine(strategy.DefaultConfig()), wm, rec, 50, 0.95, zerolog.Nop())

		out, err := rt.Run(context.Background())
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if out.Ran || out.Reason == "" {
			t.Errorf("%s: expected skipped retrain with reason, got %+v", tt.name, out)
		}
		if !reflect.DeepEqual(wm.Snapshot(), model.DefaultRuleWeights()) {
			t.Errorf("%s: weights changed", tt.name)
		}
		if len(rec.events) != 0 {
			t.Errorf("%s: skipped retrain recorded an event", tt.name)
		}
	}
}
