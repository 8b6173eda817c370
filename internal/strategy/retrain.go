package strategy

import (
	"fmt"
	"math"
	"sort"

	"BiasSentinel/internal/model"
)

// Weight bounds applied by NormalizeWeights.
const (
	MinWeight = 0.05
	MaxWeight = 0.50

	maxIntensity = 0.5
)

// NormalizeWeights returns a complete weight vector clamped to
// [MinWeight, MaxWeight] that sums to 1.0. Unknown keys are dropped and
// missing or invalid entries take their default.
func NormalizeWeights(w model.RuleWeights) model.RuleWeights {
	defaults := model.DefaultRuleWeights()
	raw := make(model.RuleWeights, len(model.IndicatorKeys))
	for _, k := range model.IndicatorKeys {
		v, ok := w[k]
		if !ok || !finite(v) || v < 0 {
			v = defaults[k]
		}
		raw[k] = v
	}
	if raw.Sum() <= 0 {
		raw = defaults
	}

	// Find the scale λ with Σ clamp(λ·raw) = 1. Zero entries get a tiny
	// positive floor so they can still be lifted to the minimum and beyond.
	peak := 0.0
	for _, v := range raw {
		peak = math.Max(peak, v)
	}
	floor := peak * 1e-9
	for k, v := range raw {
		if v < floor {
			raw[k] = floor
		}
	}

	lo, hi := 0.0, 1.0/raw.Sum()
	for scaledSum(raw, hi) < 1 {
		hi *= 2
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if scaledSum(raw, mid) < 1 {
			lo = mid
		} else {
			hi = mid
		}
	}

	out := make(model.RuleWeights, len(raw))
	for k, v := range raw {
		out[k] = clampWeight(v * hi)
	}

	// largest weight absorbs rounding residue
	largest := largestKey(out)
	out[largest] += 1 - out.Sum()
	return out
}

func scaledSum(raw model.RuleWeights, scale float64) float64 {
	sum := 0.0
	for _, k := range model.IndicatorKeys {
		sum += clampWeight(raw[k] * scale)
	}
	return sum
}

func clampWeight(v float64) float64 {
	return math.Max(MinWeight, math.Min(MaxWeight, v))
}

// largestKey returns the key with the largest weight, ties broken by key order.
func largestKey(w model.RuleWeights) string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if w[k] > w[best] {
			best = k
		}
	}
	return best
}

// Intensity is the adjustment strength for an accuracy gap: min(2*gap, 0.5).
func Intensity(gap float64) float64 {
	if gap <= 0 || !finite(gap) {
		return 0
	}
	return math.Min(2*gap, maxIntensity)
}

// AdjustWeights boosts indicators with good historical accuracy and cuts poor
// ones, scaled by the accuracy gap, then normalizes.
func AdjustWeights(w model.RuleWeights, perIndicator map[string]float64, gap float64) model.RuleWeights {
	intensity := Intensity(gap)
	adjusted := NormalizeWeights(w)
	if intensity == 0 {
		return adjusted
	}
	for k, acc := range perIndicator {
		if _, ok := adjusted[k]; !ok || !finite(acc) {
			continue
		}
		adjusted[k] *= adjustFactor(acc, intensity)
	}
	return NormalizeWeights(adjusted)
}

func adjustFactor(accuracy, intensity float64) float64 {
	switch {
	case accuracy > 0.65:
		return 1 + 0.6*intensity
	case accuracy > 0.55:
		return 1 + 0.3*intensity
	case accuracy < 0.40:
		return 1 - 0.6*intensity
	case accuracy < 0.50:
		return 1 - 0.3*intensity
	}
	return 1
}

// Retrain adjusts weights when enough verified samples show accuracy below
// the configured threshold. The input weights are not modified.
func (e *Engine) Retrain(w model.RuleWeights, report model.AccuracyReport) (model.RuleWeights, model.RetrainOutcome) {
	outcome := model.RetrainOutcome{
		Accuracy: report.Accuracy,
		Before:   w.Clone(),
	}

	switch {
	case report.SampleCount < e.cfg.MinSamples:
		outcome.Reason = fmt.Sprintf("insufficient samples: %d < %d", report.SampleCount, e.cfg.MinSamples)
		outcome.After = w.Clone()
		return outcome.After, outcome
	case report.Accuracy >= e.cfg.RetrainThreshold:
		outcome.Reason = fmt.Sprintf("accuracy %.2f meets threshold %.2f", report.Accuracy, e.cfg.RetrainThreshold)
		outcome.After = w.Clone()
		return outcome.After, outcome
	}

	outcome.Ran = true
	outcome.Gap = e.cfg.RetrainThreshold - report.Accuracy
	outcome.Intensity = Intensity(outcome.Gap)
	outcome.Reason = fmt.Sprintf("accuracy %.2f below threshold %.2f", report.Accuracy, e.cfg.RetrainThreshold)
	outcome.After = AdjustWeights(w, report.PerIndicator, outcome.Gap)
	return outcome.After.Clone(), outcome
}
