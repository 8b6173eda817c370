package notifier

import (
	"fmt"
	"html"
	"strings"

	"BiasSentinel/internal/model"
	"BiasSentinel/internal/verifier"
)

func labelIcon(l model.BiasLabel) string {
	switch l {
	case model.LabelBullish:
		return "🟢"
	case model.LabelBearish:
		return "🔴"
	}
	return "⚪"
}

// FormatBiasReport formats one analysis into a Telegram message.
func FormatBiasReport(rep *model.AnalysisReport) string {
	var b strings.Builder
	r := rep.Result

	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> | %s\n\n",
		labelIcon(r.Label), html.EscapeString(rep.Symbol), rep.Timeframe, rep.AnalyzedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Bias: <b>%s</b> (confidence %.0f%%)\n", r.Label, r.Confidence*100))
	b.WriteString(fmt.Sprintf("Score: %+.3f | Trend: %s\n", r.WeightedScore, r.TrendContext))
	b.WriteString(fmt.Sprintf("Price: %.2f\n", rep.Price))

	if r.InsufficientData {
		b.WriteString("\n⚠️ insufficient data\n")
		return b.String()
	}

	b.WriteString("\n📈 <b>Scores:</b>\n")
	for _, k := range model.IndicatorKeys {
		s, ok := r.PerIndicatorScores[k]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %+.2f (×%.2f)\n", k, s, rep.Weights[k]))
	}

	st := rep.Structure
	b.WriteString(fmt.Sprintf("\nOB %d | FVG %d | BOS/CHoCH %d | liquidity %d/%d\n",
		len(st.OrderBlocks), len(st.FairValueGaps), len(st.Events), len(st.Resistance), len(st.Support)))

	for _, n := range r.Notes {
		b.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(n)))
	}
	return b.String()
}

// FormatBiasSummary lists one line per report.
func FormatBiasSummary(reports []*model.AnalysisReport) string {
	if len(reports) == 0 {
		return "No analyses yet."
	}
	var b strings.Builder
	b.WriteString("📊 <b>Bias summary</b>\n\n")
	for _, rep := range reports {
		r := rep.Result
		b.WriteString(fmt.Sprintf("%s %s: %s %.0f%% (%+.2f)\n",
			labelIcon(r.Label), html.EscapeString(rep.Symbol), r.Label, r.Confidence*100, r.WeightedScore))
	}
	return b.String()
}

// FormatWeights shows the current rule weights.
func FormatWeights(w model.RuleWeights) string {
	var b strings.Builder
	b.WriteString("⚖️ <b>Rule weights</b>\n\n")
	for _, k := range model.IndicatorKeys {
		b.WriteString(fmt.Sprintf("  %s: %.3f\n", k, w[k]))
	}
	return b.String()
}

// FormatRetrainOutcome describes a retraining attempt.
func FormatRetrainOutcome(out model.RetrainOutcome) string {
	if !out.Ran {
		return fmt.Sprintf("🔁 Retrain skipped: %s", html.EscapeString(out.Reason))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔁 <b>Weights retrained</b>\n\nAccuracy %.1f%% (gap %.2f, intensity %.2f)\n\n",
		out.Accuracy*100, out.Gap, out.Intensity))
	for _, k := range model.IndicatorKeys {
		b.WriteString(fmt.Sprintf("  %s: %.3f → %.3f\n", k, out.Before[k], out.After[k]))
	}
	return b.String()
}

// FormatVerifySummary reports one verification pass.
func FormatVerifySummary(s verifier.Summary) string {
	if s.Checked == 0 && s.Failed == 0 {
		return "✅ Nothing to verify."
	}
	msg := fmt.Sprintf("✅ Verified %d predictions, %d correct (%.1f%%)", s.Checked, s.Correct, s.Accuracy()*100)
	if s.Failed > 0 {
		msg += fmt.Sprintf("\n⚠️ %d could not be verified", s.Failed)
	}
	return msg
}
