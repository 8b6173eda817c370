package recorder

import (
	"context"
	"time"

	"BiasSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ context.Context, _ *model.AnalysisReport) error { return nil }
func (n *NoopRecorder) PendingVerifications(_ context.Context, _ time.Time, _ int) ([]model.PendingPrediction, error) {
	return nil, nil
}
func (n *NoopRecorder) RecordVerification(_ context.Context, _ *model.VerifiedPrediction) error {
	return nil
}
func (n *NoopRecorder) RecentVerified(_ context.Context, _ int) ([]model.VerifiedPrediction, error) {
	return nil, nil
}
func (n *NoopRecorder) RecordWeightsEvent(_ context.Context, _ *WeightsEvent) error { return nil }
func (n *NoopRecorder) Close() error                                                { return nil }
