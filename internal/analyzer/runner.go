package analyzer

import (
	"context"
	"fmt"
	"sync"

	"BiasSentinel/internal/collector"
	"BiasSentinel/internal/model"
	"BiasSentinel/internal/recorder"
	"BiasSentinel/internal/weights"

	"github.com/rs/zerolog"
)

// DefaultWorkers bounds how many symbols are analyzed at once.
const DefaultWorkers = 4

// Publisher receives every finished report.
type Publisher interface {
	Publish(ctx context.Context, rep *model.AnalysisReport) error
}

// RunResult is the outcome for one symbol.
type RunResult struct {
	Symbol string
	Report *model.AnalysisReport
	Err    error
}

// Runner collects bars, analyzes them and hands reports to the sinks.
type Runner struct {
	analyzer  *Analyzer
	collector *collector.Collector
	weights   *weights.Manager
	recorder  recorder.Recorder
	publisher Publisher
	latest    *LatestStore
	workers   int
	logger    zerolog.Logger
}

// NewRunner creates a Runner. A nil publisher disables publishing.
func NewRunner(a *Analyzer, col *collector.Collector, wm *weights.Manager, rec recorder.Recorder, pub Publisher, latest *LatestStore, workers int, logger zerolog.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if latest == nil {
		latest = NewLatestStore()
	}
	return &Runner{
		analyzer:  a,
		collector: col,
		weights:   wm,
		recorder:  rec,
		publisher: pub,
		latest:    latest,
		workers:   workers,
		logger:    logger.With().Str("component", "runner").Logger(),
	}
}

// Latest returns the store the runner writes to.
func (r *Runner) Latest() *LatestStore { return r.latest }

// AnalyzeSymbol runs the full cycle for one symbol. Sink failures are logged
// and do not fail the run.
func (r *Runner) AnalyzeSymbol(ctx context.Context, symbol string) (*model.AnalysisReport, error) {
	series, stats, err := r.collector.Collect(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", symbol, err)
	}

	rep, err := r.analyzer.Analyze(series, r.weights.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	rep.Corrections += stats.Corrections()

	r.latest.Put(rep)
	if err := r.recorder.RecordAnalysis(ctx, rep); err != nil {
		r.logger.Error().Err(err).Str("symbol", symbol).Msg("record analysis")
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, rep); err != nil {
			r.logger.Error().Err(err).Str("symbol", symbol).Msg("publish report")
		}
	}

	r.logger.Info().
		Str("symbol", symbol).
		Str("label", string(rep.Result.Label)).
		Float64("confidence", rep.Result.Confidence).
		Float64("score", rep.Result.WeightedScore).
		Msg("analysis complete")
	return rep, nil
}

// AnalyzeAll analyzes every symbol on a bounded worker pool. Results come
// back in input order.
func (r *Runner) AnalyzeAll(ctx context.Context, symbols []string) []RunResult {
	results := make([]RunResult, len(symbols))
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		results[i].Symbol = symbol
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			rep, err := r.AnalyzeSymbol(ctx, symbol)
			if err != nil {
				r.logger.Warn().Err(err).Str("symbol", symbol).Msg("analysis failed")
			}
			results[i].Report = rep
			results[i].Err = err
		}(i, symbol)
	}

	wg.Wait()
	return results
}
