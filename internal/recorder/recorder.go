package recorder

import (
	"context"
	"encoding/json"
	"time"

	"BiasSentinel/internal/model"
)

// WeightsEvent records one committed (or skipped) retraining.
type WeightsEvent struct {
	Time     time.Time
	Reason   string
	Ran      bool
	Accuracy float64
	Gap      float64
	Samples  int
	Before   model.RuleWeights
	After    model.RuleWeights
}

// NewWeightsEvent builds an event from a retrain outcome.
func NewWeightsEvent(out model.RetrainOutcome, samples int) *WeightsEvent {
	return &WeightsEvent{
		Time:     time.Now(),
		Reason:   out.Reason,
		Ran:      out.Ran,
		Accuracy: out.Accuracy,
		Gap:      out.Gap,
		Samples:  samples,
		Before:   out.Before,
		After:    out.After,
	}
}

// Recorder persists analysis history and closes the verification loop.
type Recorder interface {
	RecordAnalysis(ctx context.Context, report *model.AnalysisReport) error
	// PendingVerifications returns unverified, non-degraded analyses made at or before cutoff, oldest first.
	PendingVerifications(ctx context.Context, cutoff time.Time, limit int) ([]model.PendingPrediction, error)
	RecordVerification(ctx context.Context, v *model.VerifiedPrediction) error
	// RecentVerified returns up to limit verified predictions, newest first.
	RecentVerified(ctx context.Context, limit int) ([]model.VerifiedPrediction, error)
	RecordWeightsEvent(ctx context.Context, evt *WeightsEvent) error
	Close() error
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeScores(raw []byte) (map[string]float64, error) {
	scores := map[string]float64{}
	if len(raw) == 0 {
		return scores, nil
	}
	if err := json.Unmarshal(raw, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}
