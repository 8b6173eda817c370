package model

// Indicator keys shared by signals, weights and accuracy tracking.
const (
	KeyEMATrend    = "ema_trend"
	KeyRSIMomentum = "rsi_momentum"
	KeyMACD        = "macd"
	KeyOrderBlock  = "order_block"
	KeyFVG         = "fvg"
	KeyStructure   = "structure"
	KeyLiquidity   = "liquidity"
)

// IndicatorKeys lists every scored category in a stable order.
var IndicatorKeys = []string{
	KeyEMATrend,
	KeyRSIMomentum,
	KeyMACD,
	KeyOrderBlock,
	KeyFVG,
	KeyStructure,
	KeyLiquidity,
}

// BiasSignal is one normalized category score in [-1, 1].
type BiasSignal struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// StructureSignals are the latest-bar price-structure signals.
type StructureSignals struct {
	OrderBlock float64 `json:"order_block"`
	FVG        float64 `json:"fvg"`
	Structure  float64 `json:"structure"`
	Liquidity  float64 `json:"liquidity"`
}

// Signals flattens the structure signals into BiasSignals.
func (s StructureSignals) Signals() []BiasSignal {
	return []BiasSignal{
		{Category: KeyOrderBlock, Value: s.OrderBlock},
		{Category: KeyFVG, Value: s.FVG},
		{Category: KeyStructure, Value: s.Structure},
		{Category: KeyLiquidity, Value: s.Liquidity},
	}
}

// IndicatorBias holds the contextual indicator scores.
type IndicatorBias struct {
	EMATrend    float64 `json:"ema_trend"`
	RSIMomentum float64 `json:"rsi_momentum"`
	MACD        float64 `json:"macd"`
}

// Signals flattens the indicator biases into BiasSignals.
func (b IndicatorBias) Signals() []BiasSignal {
	return []BiasSignal{
		{Category: KeyEMATrend, Value: b.EMATrend},
		{Category: KeyRSIMomentum, Value: b.RSIMomentum},
		{Category: KeyMACD, Value: b.MACD},
	}
}

// Indicators is a fully-populated indicator snapshot for the latest bar.
// Values that could not be computed hold neutral defaults and are listed in Missing.
type Indicators struct {
	Price         float64  `json:"price"`
	LongEMA       float64  `json:"long_ema"`
	LongEMAPeriod int      `json:"long_ema_period"`
	RSI           float64  `json:"rsi"`
	PrevRSI       float64  `json:"prev_rsi"`
	MACD          float64  `json:"macd"`
	MACDSignal    float64  `json:"macd_signal"`
	Histogram     float64  `json:"histogram"`
	PrevHistogram float64  `json:"prev_histogram"`
	ATR           float64  `json:"atr"`
	Missing       []string `json:"missing,omitempty"`
}

// BiasLabel is the final directional call.
type BiasLabel string

const (
	LabelBullish BiasLabel = "BULLISH"
	LabelBearish BiasLabel = "BEARISH"
	LabelNeutral BiasLabel = "NEUTRAL"
)

// Sign returns +1 for bullish, -1 for bearish and 0 for neutral.
func (l BiasLabel) Sign() float64 {
	switch l {
	case LabelBullish:
		return 1
	case LabelBearish:
		return -1
	}
	return 0
}

// BiasResult is the output of one full analysis.
type BiasResult struct {
	Label              BiasLabel          `json:"label"`
	Confidence         float64            `json:"confidence"`
	WeightedScore      float64            `json:"weighted_score"`
	PerIndicatorScores map[string]float64 `json:"per_indicator_scores"`
	TrendContext       TrendContext       `json:"trend_context"`
	InsufficientData   bool               `json:"insufficient_data,omitempty"`
	Notes              []string           `json:"notes,omitempty"`
}

// NeutralResult returns the zero-confidence result used when analysis cannot proceed.
func NeutralResult(note string) BiasResult {
	r := BiasResult{
		Label:              LabelNeutral,
		PerIndicatorScores: map[string]float64{},
		TrendContext:       NeutralTrend,
	}
	if note != "" {
		r.Notes = []string{note}
	}
	return r
}
