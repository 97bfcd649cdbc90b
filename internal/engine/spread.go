package engine

import (
	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/policy"
)

// Spread clamp bounds, percent. Resolved spreads outside this range
// produce quotes that are either inside the fee or absurdly wide.
const (
	minSpreadPct = 0.1
	maxSpreadPct = 2.0
)

// ResolveBand classifies volatility from ATR%.
func ResolveBand(pol policy.Policy, atrPct float64) domain.Band {
	switch {
	case atrPct < pol.BandNearThreshold:
		return domain.BandNear
	case atrPct < pol.BandMidThreshold:
		return domain.BandMid
	default:
		return domain.BandFar
	}
}

// ResolveSpread returns the quoting spread for the band, adjusted by
// RSI extremes and clamped to [0.1, 2.0] percent. Pure function.
func ResolveSpread(pol policy.Policy, band domain.Band, rsi float64) float64 {
	spread := pol.FixedSpreadPct
	if pol.UseDynamicSpread {
		switch band {
		case domain.BandNear:
			spread = pol.SpreadNearPct
		case domain.BandMid:
			spread = pol.SpreadMidPct
		case domain.BandFar:
			spread = pol.SpreadFarPct
		}
	}

	if pol.RSIAdjustEnabled {
		if rsi < 30 {
			spread *= 1 - pol.RSIAdjustFactor
		} else if rsi > 70 {
			spread *= 1 + pol.RSIAdjustFactor
		}
	}

	if spread < minSpreadPct {
		spread = minSpreadPct
	}
	if spread > maxSpreadPct {
		spread = maxSpreadPct
	}
	return spread
}

// TPSpread returns the configured take-profit spread for the band.
func TPSpread(pol policy.Policy, band domain.Band) float64 {
	switch band {
	case domain.BandNear:
		return pol.TPSpreadNearPct
	case domain.BandMid:
		return pol.TPSpreadMidPct
	default:
		return pol.TPSpreadFarPct
	}
}
