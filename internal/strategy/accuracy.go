package strategy

import (
	"sort"

	"BiasSentinel/internal/model"
)

// DefaultDecay is the per-prediction recency decay for indicator accuracy.
const DefaultDecay = 0.95

// BuildAccuracyReport grades verified predictions. Overall accuracy is the plain
// fraction correct; per-indicator accuracy weights each directional call by
// decay^age with the newest prediction at age 0.
func BuildAccuracyReport(rows []model.VerifiedPrediction, decay float64) model.AccuracyReport {
	report := model.AccuracyReport{
		PerIndicator:        map[string]float64{},
		PerIndicatorSamples: map[string]int{},
	}
	if len(rows) == 0 {
		return report
	}
	if decay <= 0 || decay > 1 {
		decay = DefaultDecay
	}

	sorted := append([]model.VerifiedPrediction(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AnalyzedAt.After(sorted[j].AnalyzedAt)
	})

	correct := 0
	hits := map[string]float64{}
	totals := map[string]float64{}
	weight := 1.0
	for _, row := range sorted {
		if row.Correct {
			correct++
		}
		actual := row.Actual.Sign()
		for _, k := range model.IndicatorKeys {
			s, ok := row.IndicatorScores[k]
			if !ok || !finite(s) || (s > -directionalThreshold && s < directionalThreshold) {
				continue
			}
			totals[k] += weight
			report.PerIndicatorSamples[k]++
			if (s > 0 && actual > 0) || (s < 0 && actual < 0) {
				hits[k] += weight
			}
		}
		weight *= decay
	}

	report.SampleCount = len(sorted)
	report.Accuracy = float64(correct) / float64(len(sorted))
	for k, total := range totals {
		if total > 0 {
			report.PerIndicator[k] = hits[k] / total
		}
	}
	return report
}
