// Package publisher pushes finished bias reports to downstream consumers.
package publisher

import (
	"context"
	"time"

	"BiasSentinel/internal/model"
)

// Publisher delivers reports to an external sink.
type Publisher interface {
	Publish(ctx context.Context, rep *model.AnalysisReport) error
	Close() error
}

// Update is the compact message broadcast for every report.
type Update struct {
	RunID      string             `json:"run_id"`
	Symbol     string             `json:"symbol"`
	Timeframe  string             `json:"timeframe"`
	AnalyzedAt time.Time          `json:"analyzed_at"`
	Price      float64            `json:"price"`
	Label      model.BiasLabel    `json:"label"`
	Confidence float64            `json:"confidence"`
	Score      float64            `json:"weighted_score"`
	Trend      model.TrendContext `json:"trend"`
}

// NewUpdate summarizes rep.
func NewUpdate(rep *model.AnalysisReport) Update {
	return Update{
		RunID:      rep.RunID,
		Symbol:     rep.Symbol,
		Timeframe:  rep.Timeframe,
		AnalyzedAt: rep.AnalyzedAt,
		Price:      rep.Price,
		Label:      rep.Result.Label,
		Confidence: rep.Result.Confidence,
		Score:      rep.Result.WeightedScore,
		Trend:      rep.Result.TrendContext,
	}
}

// NoopPublisher drops everything. Used when Redis is not configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) Publish(context.Context, *model.AnalysisReport) error { return nil }
func (NoopPublisher) Close() error                                         { return nil }
