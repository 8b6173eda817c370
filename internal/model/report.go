package model

import "time"

// AnalysisReport wraps a BiasResult with run metadata and every detected object.
type AnalysisReport struct {
	RunID       string            `json:"run_id"`
	Symbol      string            `json:"symbol"`
	Timeframe   string            `json:"timeframe"`
	AnalyzedAt  time.Time         `json:"analyzed_at"`
	Price       float64           `json:"price"`
	BarCount    int               `json:"bar_count"`
	Corrections int               `json:"corrections"`
	Result      BiasResult        `json:"result"`
	Indicators  Indicators        `json:"indicators"`
	Structure   StructureAnalysis `json:"structure"`
	Weights     RuleWeights       `json:"weights"`
}

// VerifiedPrediction is a past BiasResult graded against the realized move.
type VerifiedPrediction struct {
	RunID           string             `json:"run_id"`
	Symbol          string             `json:"symbol"`
	AnalyzedAt      time.Time          `json:"analyzed_at"`
	VerifiedAt      time.Time          `json:"verified_at"`
	EntryPrice      float64            `json:"entry_price"`
	ExitPrice       float64            `json:"exit_price"`
	Predicted       BiasLabel          `json:"predicted"`
	Actual          BiasLabel          `json:"actual"`
	Correct         bool               `json:"correct"`
	IndicatorScores map[string]float64 `json:"indicator_scores"`
}

// PendingPrediction is a recorded analysis awaiting verification.
type PendingPrediction struct {
	RunID           string
	Symbol          string
	AnalyzedAt      time.Time
	EntryPrice      float64
	Predicted       BiasLabel
	IndicatorScores map[string]float64
}

// AccuracyReport summarizes verified predictions.
type AccuracyReport struct {
	Accuracy            float64            `json:"accuracy"`
	SampleCount         int                `json:"sample_count"`
	PerIndicator        map[string]float64 `json:"per_indicator"`
	PerIndicatorSamples map[string]int     `json:"per_indicator_samples"`
}

// RetrainOutcome describes one retraining attempt.
type RetrainOutcome struct {
	Ran       bool        `json:"ran"`
	Reason    string      `json:"reason"`
	Accuracy  float64     `json:"accuracy"`
	Gap       float64     `json:"gap"`
	Intensity float64     `json:"intensity"`
	Before    RuleWeights `json:"before"`
	After     RuleWeights `json:"after"`
}
