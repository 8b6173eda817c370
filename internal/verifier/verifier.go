// Package verifier grades past bias calls against the price move that
// followed them.
package verifier

import (
	"context"
	"fmt"
	"time"

	"BiasSentinel/internal/model"
	"BiasSentinel/internal/recorder"

	"github.com/rs/zerolog"
)

const (
	DefaultHorizon       = 24 * time.Hour
	DefaultMoveThreshold = 0.2 // percent
	DefaultBatchSize     = 200
)

// PriceSource supplies the price a prediction is graded against.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Summary counts what one verification pass did.
type Summary struct {
	Checked int `json:"checked"`
	Correct int `json:"correct"`
	Failed  int `json:"failed"`
}

// Accuracy is Correct/Checked, or 0 when nothing was checked.
func (s Summary) Accuracy() float64 {
	if s.Checked == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Checked)
}

// Verifier closes the loop between recorded analyses and realized moves.
type Verifier struct {
	recorder      recorder.Recorder
	prices        PriceSource
	horizon       time.Duration
	moveThreshold float64
	batchSize     int
	logger        zerolog.Logger
	now           func() time.Time
}

func New(rec recorder.Recorder, prices PriceSource, horizon time.Duration, moveThreshold float64, batchSize int, logger zerolog.Logger) *Verifier {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if moveThreshold <= 0 {
		moveThreshold = DefaultMoveThreshold
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Verifier{
		recorder:      rec,
		prices:        prices,
		horizon:       horizon,
		moveThreshold: moveThreshold,
		batchSize:     batchSize,
		logger:        logger.With().Str("component", "verifier").Logger(),
		now:           time.Now,
	}
}

// Grade labels the move from entry to exit: above +threshold% is bullish,
// below -threshold% bearish, anything in between neutral.
func Grade(entry, exit, thresholdPct float64) model.BiasLabel {
	if entry <= 0 {
		return model.LabelNeutral
	}
	change := (exit - entry) / entry * 100
	switch {
	case change > thresholdPct:
		return model.LabelBullish
	case change < -thresholdPct:
		return model.LabelBearish
	default:
		return model.LabelNeutral
	}
}

// Run verifies every pending prediction older than the horizon. A symbol
// whose price cannot be fetched is skipped and retried on the next pass.
func (v *Verifier) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	cutoff := v.now().Add(-v.horizon)

	pending, err := v.recorder.PendingVerifications(ctx, cutoff, v.batchSize)
	if err != nil {
		return sum, fmt.Errorf("load pending predictions: %w", err)
	}
	if len(pending) == 0 {
		return sum, nil
	}

	prices := make(map[string]float64)
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		exit, ok := prices[p.Symbol]
		if !ok {
			exit, err = v.prices.CurrentPrice(ctx, p.Symbol)
			if err != nil || exit <= 0 {
				v.logger.Warn().Err(err).Str("symbol", p.Symbol).Msg("no price for verification")
				exit = 0
			}
			prices[p.Symbol] = exit
		}
		if exit <= 0 {
			sum.Failed++
			continue
		}

		actual := Grade(p.EntryPrice, exit, v.moveThreshold)
		vp := &model.VerifiedPrediction{
			RunID:           p.RunID,
			Symbol:          p.Symbol,
			AnalyzedAt:      p.AnalyzedAt,
			VerifiedAt:      v.now().UTC(),
			EntryPrice:      p.EntryPrice,
			ExitPrice:       exit,
			Predicted:       p.Predicted,
			Actual:          actual,
			Correct:         p.Predicted == actual,
			IndicatorScores: p.IndicatorScores,
		}
		if err := v.recorder.RecordVerification(ctx, vp); err != nil {
			v.logger.Error().Err(err).Str("run_id", p.RunID).Msg("record verification")
			sum.Failed++
			continue
		}
		sum.Checked++
		if vp.Correct {
			sum.Correct++
		}
	}

	v.logger.Info().
		Int("checked", sum.Checked).
		Int("correct", sum.Correct).
		Int("failed", sum.Failed).
		Msg("verification pass complete")
	return sum, nil
}
