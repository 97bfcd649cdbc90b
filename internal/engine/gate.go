package engine

import (
	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/policy"
)

// ClassifyGate maps day-frame performance onto a gate state. Pure
// function, no hysteresis: recovery is instantaneous once both inputs
// are back above the thresholds.
func ClassifyGate(pol policy.Policy, gapPct, dailyPnLPct float64) domain.GateState {
	if gapPct <= pol.GatePausedGapPct || dailyPnLPct <= pol.GatePausedDailyPnLPct {
		return domain.GatePaused
	}
	if gapPct <= pol.GateDegradedGapPct || dailyPnLPct <= pol.GateDegradedDailyPnLPct {
		return domain.GateDegraded
	}
	return domain.GateRun
}
