package model

import "time"

// SwingKind distinguishes swing highs from swing lows.
type SwingKind string

const (
	SwingHigh SwingKind = "HIGH"
	SwingLow  SwingKind = "LOW"
)

// SwingPoint is a local extreme found by the swing detector.
type SwingPoint struct {
	Index int       `json:"index"`
	Price float64   `json:"price"`
	Kind  SwingKind `json:"kind"`
	Time  time.Time `json:"time"`
}

// StructureKind labels a break of structure or change of character.
type StructureKind string

const (
	BOSUp        StructureKind = "BOS_UP"
	BOSDown      StructureKind = "BOS_DOWN"
	CHoCHBullish StructureKind = "CHOCH_BULLISH"
	CHoCHBearish StructureKind = "CHOCH_BEARISH"
)

// IsBOS reports whether the kind is a break of structure.
func (k StructureKind) IsBOS() bool { return k == BOSUp || k == BOSDown }

// StructureEvent is one BOS/CHoCH occurrence in the swing sequence.
type StructureEvent struct {
	Index         int           `json:"index"`
	Kind          StructureKind `json:"kind"`
	Value         float64       `json:"value"`
	PreviousValue float64       `json:"previous_value"`
	Strength      float64       `json:"strength"` // |value-previous|/previous
	Time          time.Time     `json:"time"`
}

// Direction is the polarity of an order block or fair value gap.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// Sign returns +1 for bullish and -1 for bearish.
func (d Direction) Sign() float64 {
	if d == Bearish {
		return -1
	}
	return 1
}

// OrderBlock is the last opposing candle before a break of structure.
type OrderBlock struct {
	Index      int       `json:"index"`
	Type       Direction `json:"type"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Strength   float64   `json:"strength"`
	Touched    bool      `json:"touched"`
	TouchIndex int       `json:"touch_index,omitempty"`
	BOSIndex   int       `json:"bos_index"`
}

// FairValueGap is a three-bar price imbalance.
type FairValueGap struct {
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	Type       Direction `json:"type"`
	GapLow     float64   `json:"gap_low"`
	GapHigh    float64   `json:"gap_high"`
	Size       float64   `json:"size"`
	Filled     bool      `json:"filled"`
	FillIndex  int       `json:"fill_index,omitempty"`
}

// LiquidityKind distinguishes clustered highs from clustered lows.
type LiquidityKind string

const (
	Support    LiquidityKind = "SUPPORT"
	Resistance LiquidityKind = "RESISTANCE"
)

// LiquidityLevel is a cluster of nearby swing prices.
type LiquidityLevel struct {
	Level    float64       `json:"level"`
	Touches  int           `json:"touches"`
	Type     LiquidityKind `json:"type"`
	Strength float64       `json:"strength"`
}

// TrendContext is the coarse trend label that conditions oscillator reading.
type TrendContext string

const (
	Uptrend      TrendContext = "uptrend"
	Downtrend    TrendContext = "downtrend"
	NeutralTrend TrendContext = "neutral"
)

// Sign returns +1 for uptrend, -1 for downtrend and 0 otherwise.
func (t TrendContext) Sign() float64 {
	switch t {
	case Uptrend:
		return 1
	case Downtrend:
		return -1
	}
	return 0
}

// StructureAnalysis holds every detector output for one run.
type StructureAnalysis struct {
	SwingHighs    []SwingPoint     `json:"swing_highs"`
	SwingLows     []SwingPoint     `json:"swing_lows"`
	Events        []StructureEvent `json:"events"`
	OrderBlocks   []OrderBlock     `json:"order_blocks"`
	FairValueGaps []FairValueGap   `json:"fair_value_gaps"`
	Resistance    []LiquidityLevel `json:"resistance"`
	Support       []LiquidityLevel `json:"support"`
	Trend         TrendContext     `json:"trend"`
}
