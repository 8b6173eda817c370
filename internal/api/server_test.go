package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"BiasSentinel/internal/analyzer"
	"BiasSentinel/internal/collector"
	"BiasSentinel/internal/model"
	"BiasSentinel/internal/recorder"
	"BiasSentinel/internal/smc"
	"BiasSentinel/internal/strategy"
	"BiasSentinel/internal/verifier"
	"BiasSentinel/internal/weights"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func risingBars(n int) []model.PriceBar {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PriceBar, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = model.PriceBar{Time: t0.Add(time.Duration(i) * time.Hour), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c}
	}
	return out
}

func newTestServer(t *testing.T, bars []model.PriceBar) *Server {
	t.Helper()
	log := zerolog.Nop()
	dir := t.TempDir()

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "history.db"), log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rec.Close() })
	wm, err := weights.NewManager(filepath.Join(dir, "weights.json"), log)
	if err != nil {
		t.Fatal(err)
	}

	engine := strategy.NewEngine(strategy.DefaultConfig())
	col := collector.NewCollector(&collector.MockFetcher{Bars: bars}, "1h", 300, log)
	runner := analyzer.NewRunner(analyzer.New(smc.NewDetector(smc.DefaultConfig()), engine, log), col, wm, rec, nil, nil, 2, log)
	rt := analyzer.NewRetrainer(engine, wm, rec, 100, 0.95, log)
	v := verifier.New(rec, col, 0, 0, 0, log)
	return NewServer(":0", runner, rt, v, wm, log)
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, risingBars(50))
	w := do(t, s, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "healthy" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestAnalyzeThenGet(t *testing.T) {
	s := newTestServer(t, risingBars(250))

	if w := do(t, s, http.MethodGet, "/api/bias/BTCUSD"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before analysis, got %d", w.Code)
	}

	w := do(t, s, http.MethodPost, "/api/analyze/btcusd")
	if w.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rep model.AnalysisReport
	decode(t, w, &rep)
	if rep.Symbol != "BTCUSD" || rep.Result.Label != model.LabelBullish {
		t.Errorf("unexpected report: symbol=%s label=%s", rep.Symbol, rep.Result.Label)
	}

	w = do(t, s, http.MethodGet, "/api/bias/BTCUSD")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var got model.AnalysisReport
	decode(t, w, &got)
	if got.RunID != rep.RunID {
		t.Errorf("latest run id %s, expected %s", got.RunID, rep.RunID)
	}

	w = do(t, s, http.MethodGet, "/api/bias")
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	if list.Count != 1 {
		t.Errorf("list count = %d", list.Count)
	}
}

func TestAnalyze_NoData(t *testing.T) {
	s := newTestServer(t, []model.PriceBar{})
	w := do(t, s, http.MethodPost, "/api/analyze/BTCUSD")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for empty series, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWeightsRetrainVerify(t *testing.T) {
	s := newTestServer(t, risingBars(50))

	w := do(t, s, http.MethodGet, "/api/weights")
	var weightsBody struct {
		Weights model.RuleWeights `json:"weights"`
	}
	decode(t, w, &weightsBody)
	if weightsBody.Weights[model.KeyEMATrend] != 0.20 {
		t.Errorf("unexpected weights: %v", weightsBody.Weights)
	}

	w = do(t, s, http.MethodPost, "/api/retrain")
	if w.Code != http.StatusOK {
		t.Fatalf("retrain: expected 200, got %d", w.Code)
	}
	var out model.RetrainOutcome
	decode(t, w, &out)
	if out.Ran {
		t.Error("retrain should be gated with no verified samples")
	}

	w = do(t, s, http.MethodPost, "/api/verify")
	if w.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d", w.Code)
	}
	var sum map[string]any
	decode(t, w, &sum)
	if sum["checked"] != float64(0) {
		t.Errorf("unexpected verify summary: %v", sum)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t, risingBars(50))
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("start after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server kept listening after shutdown")
	}
}
