package smc

import (
	"math"

	"BiasSentinel/internal/model"
)

const (
	// recentBOSCount is how many trailing BOS events vote on structure.
	recentBOSCount = 3
	// liquidityProximity is the relative distance that counts as "at" a level.
	liquidityProximity = 0.001
	// revisitedSignal scores a block or gap price has already traded back into.
	revisitedSignal = 0.5
)

// LatestSignals collapses a structure analysis into the four normalized
// latest-bar signals.
func LatestSignals(analysis model.StructureAnalysis, price float64) model.StructureSignals {
	return model.StructureSignals{
		OrderBlock: orderBlockSignal(analysis.OrderBlocks),
		FVG:        fvgSignal(analysis.FairValueGaps, price),
		Structure:  structureSignal(analysis.Events),
		Liquidity:  liquiditySignal(analysis.Resistance, analysis.Support, price),
	}
}

func orderBlockSignal(blocks []model.OrderBlock) float64 {
	if len(blocks) == 0 {
		return 0
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		if b := blocks[i]; !b.Touched {
			return b.Type.Sign() * math.Min(1, b.Strength*100)
		}
	}
	return blocks[len(blocks)-1].Type.Sign() * revisitedSignal
}

func fvgSignal(gaps []model.FairValueGap, price float64) float64 {
	if len(gaps) == 0 {
		return 0
	}
	for i := len(gaps) - 1; i >= 0; i-- {
		g := gaps[i]
		if g.Filled {
			continue
		}
		if price <= 0 {
			return g.Type.Sign()
		}
		return g.Type.Sign() * math.Min(1, g.Size/price*100)
	}
	return gaps[len(gaps)-1].Type.Sign() * revisitedSignal
}

func structureSignal(events []model.StructureEvent) float64 {
	up, down, seen := 0, 0, 0
	for i := len(events) - 1; i >= 0 && seen < recentBOSCount; i-- {
		switch events[i].Kind {
		case model.BOSUp:
			up++
		case model.BOSDown:
			down++
		default:
			continue
		}
		seen++
	}
	switch {
	case seen == 0 || up == down:
		return 0
	case up > down:
		return float64(up) / float64(seen)
	default:
		return -float64(down) / float64(seen)
	}
}

func liquiditySignal(resistance, support []model.LiquidityLevel, price float64) float64 {
	if price <= 0 {
		return 0
	}
	for _, lvl := range resistance {
		if math.Abs(price-lvl.Level)/price <= liquidityProximity {
			return -0.5
		}
	}
	for _, lvl := range support {
		if math.Abs(price-lvl.Level)/price <= liquidityProximity {
			return 0.5
		}
	}
	return 0
}
