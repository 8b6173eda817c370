package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"BiasSentinel/internal/ingest"
	"BiasSentinel/internal/model"

	"github.com/rs/zerolog"
)

// DefaultBarLimit covers EMA200 plus warm-up.
const DefaultBarLimit = 300

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.PriceBar
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, timeframe string, limit int) ([]model.PriceBar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		if limit > 0 && len(m.Bars) > limit {
			return m.Bars[len(m.Bars)-limit:], nil
		}
		return m.Bars, nil
	}
	return generateMockBars(m.Price, limit, timeframeStep(timeframe)), nil
}

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, _ string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	if m.Price == 0 && len(m.Bars) > 0 {
		return m.Bars[len(m.Bars)-1].Close, nil
	}
	return m.Price, nil
}

// generateMockBars produces a gently oscillating uptrend ending at basePrice.
func generateMockBars(basePrice float64, count int, step time.Duration) []model.PriceBar {
	if basePrice <= 0 {
		basePrice = 100
	}
	end := time.Now().Truncate(step)
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		drift := float64(i-count) * 0.001
		wave := 0.02 * math.Sin(float64(i)/6)
		p := basePrice * (1 + drift + wave)
		bars[i] = model.PriceBar{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

func timeframeStep(timeframe string) time.Duration {
	switch timeframe {
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Collector fetches bars and ingests them into a clean series.
type Collector struct {
	Fetcher    Fetcher
	Timeframe  string
	Limit      int
	normalizer *ingest.Normalizer
	logger     zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, timeframe string, limit int, logger zerolog.Logger) *Collector {
	if limit <= 0 {
		limit = DefaultBarLimit
	}
	return &Collector{
		Fetcher:    fetcher,
		Timeframe:  timeframe,
		Limit:      limit,
		normalizer: ingest.NewNormalizer(logger),
		logger:     logger.With().Str("component", "collector").Logger(),
	}
}

// Collect fetches recent bars for symbol and normalizes them.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.PriceSeries, ingest.Stats, error) {
	bars, err := c.Fetcher.FetchBars(ctx, symbol, c.Timeframe, c.Limit)
	if err != nil {
		return nil, ingest.Stats{}, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}
	series, stats := c.normalizer.Normalize(symbol, c.Timeframe, bars)
	if series.Len() == 0 {
		return nil, stats, fmt.Errorf("%s: %w", symbol, model.ErrEmptySeries)
	}
	c.logger.Debug().
		Str("symbol", symbol).
		Str("source", c.Fetcher.Name()).
		Int("bars", series.Len()).
		Msg("collected")
	return series, stats, nil
}

// CurrentPrice returns the latest price for symbol.
func (c *Collector) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := c.Fetcher.FetchCurrentPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch current price for %s: %w", symbol, err)
	}
	return price, nil
}
