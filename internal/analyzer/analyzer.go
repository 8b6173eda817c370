// Package analyzer runs the bias pipeline for one series and fans it out
// across symbols.
package analyzer

import (
	"fmt"
	"time"

	"BiasSentinel/internal/calculator"
	"BiasSentinel/internal/ingest"
	"BiasSentinel/internal/model"
	"BiasSentinel/internal/smc"
	"BiasSentinel/internal/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MinBars is the shortest series that gets a full analysis.
const MinBars = 3

// Analyzer turns a price series plus a weight snapshot into an AnalysisReport.
// It does no I/O and is safe for concurrent use.
type Analyzer struct {
	normalizer *ingest.Normalizer
	detector   *smc.Detector
	engine     *strategy.Engine
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates an Analyzer.
func New(detector *smc.Detector, engine *strategy.Engine, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		normalizer: ingest.NewNormalizer(logger),
		detector:   detector,
		engine:     engine,
		logger:     logger.With().Str("component", "analyzer").Logger(),
		now:        time.Now,
	}
}

// Analyze normalizes the bars, then runs structure detection, pattern
// detection, signal aggregation and scoring, in that order. The input series
// is not modified. The only error is ErrEmptySeries, returned when no usable
// bar survives normalization.
func (a *Analyzer) Analyze(raw *model.PriceSeries, weights model.RuleWeights) (rep *model.AnalysisReport, err error) {
	if raw.Len() == 0 {
		return nil, fmt.Errorf("analyze: %w", model.ErrEmptySeries)
	}
	series, stats := a.normalizer.Normalize(raw.Symbol, raw.Timeframe, raw.Bars)
	if series.Len() == 0 {
		return nil, fmt.Errorf("analyze %s: no usable bars: %w", raw.Symbol, model.ErrEmptySeries)
	}

	last := series.Last()
	rep = &model.AnalysisReport{
		RunID:       uuid.NewString(),
		Symbol:      series.Symbol,
		Timeframe:   series.Timeframe,
		AnalyzedAt:  a.now().UTC(),
		Price:       last.Close,
		BarCount:    series.Len(),
		Corrections: stats.Corrections(),
		Weights:     weights.Clone(),
	}

	if series.Len() < MinBars {
		a.logger.Debug().Str("symbol", series.Symbol).Int("bars", series.Len()).Msg("insufficient data")
		rep.Result = model.NeutralResult(fmt.Sprintf("insufficient data: %d bars", series.Len()))
		rep.Result.InsufficientData = true
		return rep, nil
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Str("symbol", series.Symbol).Interface("panic", r).Msg("analysis aborted")
			rep.Result = model.NeutralResult(fmt.Sprintf("analysis aborted: %v", r))
			err = nil
		}
	}()

	analysis := a.detector.Structure(series)
	if len(analysis.SwingHighs) == 0 && len(analysis.SwingLows) == 0 {
		a.logger.Debug().Str("symbol", series.Symbol).Int("bars", series.Len()).Msg("no swings detected")
	}
	a.detector.Patterns(series, &analysis)
	rep.Structure = analysis

	signals := smc.LatestSignals(analysis, last.Close)

	ind := calculator.Compute(series)
	rep.Indicators = ind
	bias := strategy.ComputeBias(ind, analysis.Trend)

	rep.Result = a.engine.Score(bias, signals, analysis.Trend, weights)
	for _, name := range ind.Missing {
		rep.Result.Notes = append(rep.Result.Notes, "degraded: missing "+name)
	}
	if len(ind.Missing) > 0 {
		a.logger.Debug().Str("symbol", series.Symbol).Strs("missing", ind.Missing).Msg("indicators degraded")
	}
	return rep, nil
}
