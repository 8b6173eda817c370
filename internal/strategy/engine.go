package strategy

import (
	"math"

	"BiasSentinel/internal/model"
)

const (
	// maxConfidence caps the blended confidence.
	maxConfidence = 0.95
	// directionalThreshold is the minimum |score| that counts as a directional call.
	directionalThreshold = 0.1
)

// Thresholds maps a minimum confidence to the |weightedScore| needed for a
// directional label. Checked top-down; below the last entry the label is NEUTRAL.
var Thresholds = []struct {
	MinConfidence float64
	Score         float64
}{
	{0.75, 0.15},
	{0.50, 0.25},
	{0.25, 0.35},
}

// Config holds the engine's tunable parameters.
type Config struct {
	AlignBoost       float64 // OB/FVG multiplier when aligned with the trend
	CounterDamp      float64 // OB/FVG multiplier against the trend
	RetrainThreshold float64 // retrain only below this accuracy
	MinSamples       int     // retrain only with at least this many verified predictions
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		AlignBoost:       1.2,
		CounterDamp:      0.8,
		RetrainThreshold: 0.70,
		MinSamples:       10,
	}
}

// Engine blends indicator and structure signals into a BiasResult.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine. Zero fields take their defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.AlignBoost <= 0 {
		cfg.AlignBoost = def.AlignBoost
	}
	if cfg.CounterDamp <= 0 {
		cfg.CounterDamp = def.CounterDamp
	}
	if cfg.RetrainThreshold <= 0 {
		cfg.RetrainThreshold = def.RetrainThreshold
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine parameters in effect.
func (e *Engine) Config() Config { return e.cfg }

// Score computes the weighted bias. It never panics: non-finite scores count
// as zero and a zero total weight yields NEUTRAL with zero confidence.
func (e *Engine) Score(ind model.IndicatorBias, structure model.StructureSignals, trend model.TrendContext, weights model.RuleWeights) model.BiasResult {
	scores := make(map[string]float64, len(model.IndicatorKeys))
	for _, s := range ind.Signals() {
		scores[s.Category] = clamp(sanitize(s.Value))
	}
	for _, s := range structure.Signals() {
		scores[s.Category] = clamp(sanitize(s.Value))
	}

	// order blocks and gaps matter more when they agree with the trend
	for _, k := range []string{model.KeyOrderBlock, model.KeyFVG} {
		scores[k] = clamp(e.alignToTrend(scores[k], trend))
	}

	var sum, total float64
	for _, k := range model.IndicatorKeys {
		w := sanitize(weights[k])
		if w <= 0 {
			continue
		}
		sum += w * scores[k]
		total += w
	}

	if total <= 0 {
		r := model.NeutralResult("no usable weights")
		r.PerIndicatorScores = scores
		r.TrendContext = trend
		return r
	}

	weighted := clamp(sum / total)
	confidence := confidenceOf(weighted, scores)

	return model.BiasResult{
		Label:              labelFor(weighted, confidence),
		Confidence:         confidence,
		WeightedScore:      weighted,
		PerIndicatorScores: scores,
		TrendContext:       trend,
	}
}

func (e *Engine) alignToTrend(score float64, trend model.TrendContext) float64 {
	t := trend.Sign()
	if score == 0 || t == 0 {
		return score
	}
	if (score > 0) == (t > 0) {
		return score * e.cfg.AlignBoost
	}
	return score * e.cfg.CounterDamp
}

// confidenceOf blends magnitude, agreement and conviction, capped at maxConfidence.
func confidenceOf(weighted float64, scores map[string]float64) float64 {
	magnitude := sigmoid(10 * (math.Abs(weighted) - 0.3))
	agreement := agreementOf(scores)

	var absSum float64
	for _, k := range model.IndicatorKeys {
		absSum += math.Abs(scores[k])
	}
	conviction := math.Min(absSum/float64(len(model.IndicatorKeys))*1.5, 1.0)

	c := 0.4*magnitude + 0.4*agreement + 0.2*conviction
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return math.Min(c, maxConfidence)
}

// agreementOf maps the share of directional indicators on the majority side
// to 1.0 (>=80%), 0.7 (>=60%) or 0.4.
func agreementOf(scores map[string]float64) float64 {
	var up, down int
	for _, k := range model.IndicatorKeys {
		switch s := scores[k]; {
		case s > directionalThreshold:
			up++
		case s < -directionalThreshold:
			down++
		}
	}
	n := up + down
	if n == 0 {
		return 0.4
	}
	frac := float64(max(up, down)) / float64(n)
	switch {
	case frac >= 0.8:
		return 1.0
	case frac >= 0.6:
		return 0.7
	default:
		return 0.4
	}
}

func labelFor(weighted, confidence float64) model.BiasLabel {
	for _, t := range Thresholds {
		if confidence < t.MinConfidence {
			continue
		}
		switch {
		case weighted >= t.Score:
			return model.LabelBullish
		case weighted <= -t.Score:
			return model.LabelBearish
		}
		return model.LabelNeutral
	}
	return model.LabelNeutral
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func sanitize(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}
