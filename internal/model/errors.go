package model

import "errors"

var (
	// ErrEmptySeries is returned when a caller passes no bars at all.
	ErrEmptySeries = errors.New("empty price series")
	// ErrInsufficientData marks a series too short for a given detector.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidBar marks a bar violating the OHLC invariants.
	ErrInvalidBar = errors.New("invalid bar")
	// ErrMissingIndicator marks an indicator that could not be computed.
	ErrMissingIndicator = errors.New("missing indicator")
	// ErrWeightsCorrupt marks persisted weights that failed validation.
	ErrWeightsCorrupt = errors.New("weights corrupt")
)
