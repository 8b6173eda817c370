package smc

import (
	"BiasSentinel/internal/model"
)

// Config holds detector parameters.
type Config struct {
	SwingLookback      int
	OrderBlockLookback int
	FVGMinGap          float64
	FVGUseATR          bool
	LiquidityTolerance float64 // percent
	LiquidityTouches   int
}

// DefaultConfig returns the standard detector parameters.
func DefaultConfig() Config {
	return Config{
		SwingLookback:      DefaultSwingLookback,
		OrderBlockLookback: DefaultOrderBlockLookback,
		FVGUseATR:          true,
		LiquidityTolerance: DefaultLiquidityTolerancePct,
		LiquidityTouches:   DefaultLiquidityMinTouches,
	}
}

// Detector runs every structure detector over a series.
type Detector struct {
	cfg    Config
	swings *SwingDetector
	blocks *OrderBlockDetector
	gaps   *FVGDetector
}

// NewDetector wires the individual detectors from cfg.
func NewDetector(cfg Config) *Detector {
	if cfg.LiquidityTouches <= 0 {
		cfg.LiquidityTouches = DefaultLiquidityMinTouches
	}
	if cfg.LiquidityTolerance < 0 {
		cfg.LiquidityTolerance = DefaultLiquidityTolerancePct
	}
	return &Detector{
		cfg:    cfg,
		swings: NewSwingDetector(cfg.SwingLookback),
		blocks: NewOrderBlockDetector(cfg.OrderBlockLookback),
		gaps:   NewFVGDetector(cfg.FVGMinGap, cfg.FVGUseATR),
	}
}

// Structure detects swings, classifies them and derives the trend context.
func (d *Detector) Structure(series *model.PriceSeries) model.StructureAnalysis {
	highs, lows := d.swings.Detect(series)
	return model.StructureAnalysis{
		SwingHighs: highs,
		SwingLows:  lows,
		Events:     Classify(highs, lows),
		Trend:      TrendContextOf(series),
	}
}

// Patterns fills order blocks, fair value gaps and liquidity levels into a.
func (d *Detector) Patterns(series *model.PriceSeries, a *model.StructureAnalysis) {
	a.OrderBlocks = d.blocks.Detect(series, a.Events)
	a.FairValueGaps = d.gaps.Detect(series)
	a.Resistance, a.Support = DetectLiquidity(
		SwingPrices(a.SwingHighs),
		SwingPrices(a.SwingLows),
		d.cfg.LiquidityTolerance,
		d.cfg.LiquidityTouches,
	)
}

// Analyze runs Structure then Patterns.
func (d *Detector) Analyze(series *model.PriceSeries) model.StructureAnalysis {
	a := d.Structure(series)
	d.Patterns(series, &a)
	return a
}
