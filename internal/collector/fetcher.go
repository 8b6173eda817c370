package collector

import (
	"context"

	"BiasSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns up to limit of the most recent bars, oldest first.
	FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.PriceBar, error)
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}
