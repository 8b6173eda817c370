package model

import "sort"

// RuleWeights maps indicator keys to weights in [0, 1] that sum to 1.0.
type RuleWeights map[string]float64

// DefaultRuleWeights returns the built-in weight vector.
func DefaultRuleWeights() RuleWeights {
	return RuleWeights{
		KeyEMATrend:    0.20,
		KeyRSIMomentum: 0.15,
		KeyMACD:        0.15,
		KeyOrderBlock:  0.15,
		KeyFVG:         0.10,
		KeyStructure:   0.15,
		KeyLiquidity:   0.10,
	}
}

// Sum returns the total of all weights, added in key order.
func (w RuleWeights) Sum() float64 {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sum := 0.0
	for _, k := range keys {
		sum += w[k]
	}
	return sum
}

// Clone returns an independent copy.
func (w RuleWeights) Clone() RuleWeights {
	out := make(RuleWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
