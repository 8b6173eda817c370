package analyzer

import (
	"context"
	"fmt"

	"BiasSentinel/internal/model"
	"BiasSentinel/internal/recorder"
	"BiasSentinel/internal/strategy"
	"BiasSentinel/internal/weights"

	"github.com/rs/zerolog"
)

// DefaultRetrainWindow is how many verified predictions feed one retrain.
const DefaultRetrainWindow = 100

// Retrainer grades recent verified predictions and commits adjusted weights.
type Retrainer struct {
	engine   *strategy.Engine
	weights  *weights.Manager
	recorder recorder.Recorder
	window   int
	decay    float64
	logger   zerolog.Logger
}

func NewRetrainer(engine *strategy.Engine, wm *weights.Manager, rec recorder.Recorder, window int, decay float64, logger zerolog.Logger) *Retrainer {
	if window <= 0 {
		window = DefaultRetrainWindow
	}
	if decay <= 0 || decay > 1 {
		decay = strategy.DefaultDecay
	}
	return &Retrainer{
		engine:   engine,
		weights:  wm,
		recorder: rec,
		window:   window,
		decay:    decay,
		logger:   logger.With().Str("component", "retrainer").Logger(),
	}
}

// Run performs one retraining attempt. Outcome.Ran is false when the gates
// held; Reason says why.
func (r *Retrainer) Run(ctx context.Context) (model.RetrainOutcome, error) {
	rows, err := r.recorder.RecentVerified(ctx, r.window)
	if err != nil {
		return model.RetrainOutcome{}, fmt.Errorf("load verified predictions: %w", err)
	}
	report := strategy.BuildAccuracyReport(rows, r.decay)

	var outcome model.RetrainOutcome
	_, changed, err := r.weights.Update(func(cur model.RuleWeights) (model.RuleWeights, bool) {
		var next model.RuleWeights
		next, outcome = r.engine.Retrain(cur, report)
		return next, outcome.Ran
	})
	if err != nil {
		return outcome, fmt.Errorf("commit weights: %w", err)
	}

	if !changed {
		r.logger.Info().
			Str("reason", outcome.Reason).
			Int("samples", report.SampleCount).
			Float64("accuracy", report.Accuracy).
			Msg("retrain skipped")
		return outcome, nil
	}

	if err := r.recorder.RecordWeightsEvent(ctx, recorder.NewWeightsEvent(outcome, report.SampleCount)); err != nil {
		r.logger.Error().Err(err).Msg("record weights event")
	}
	r.logger.Info().
		Int("samples", report.SampleCount).
		Float64("accuracy", outcome.Accuracy).
		Float64("gap", outcome.Gap).
		Float64("intensity", outcome.Intensity).
		Msg("weights retrained")
	return outcome, nil
}
