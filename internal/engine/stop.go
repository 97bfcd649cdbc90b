package engine

import (
	"fmt"

	"hybrid-mm-engine/internal/policy"
)

// stopState tracks the hard stop and its auto-resume hysteresis. A day
// rollover never clears the stop; only the resume rule does.
type stopState struct {
	Active        bool
	StopPrice     float64
	StopTsMs      int64
	Reason        string
	BarsSinceStop int
}

// check evaluates the trigger on an inactive stop. Returns true when
// the stop fired this bar.
func (s *stopState) check(pol policy.Policy, close float64, tsMs int64, gapPct, dailyPnLPct float64) bool {
	if s.Active {
		return false
	}
	switch {
	case dailyPnLPct <= pol.HardStopDailyPnLPct:
		s.Reason = fmt.Sprintf("daily pnl %.2f%% <= %.2f%%", dailyPnLPct, pol.HardStopDailyPnLPct)
	case gapPct <= pol.HardStopGapPct:
		s.Reason = fmt.Sprintf("gap %.2f%% <= %.2f%%", gapPct, pol.HardStopGapPct)
	default:
		return false
	}
	s.Active = true
	s.StopPrice = close
	s.StopTsMs = tsMs
	s.BarsSinceStop = 0
	return true
}

// tryResume is called on every bar while the stop is active. rsi may
// be nil during warmup, which blocks resume. Returns true when the
// stop cleared this bar.
func (s *stopState) tryResume(pol policy.Policy, close float64, rsi *float64) bool {
	s.BarsSinceStop++
	if !pol.AutoResumeEnabled || rsi == nil {
		return false
	}
	if s.BarsSinceStop < pol.ResumeCooldownBars {
		return false
	}
	if *rsi < pol.ResumeRSIThreshold {
		return false
	}
	recovery := (close - s.StopPrice) / s.StopPrice * 100
	if recovery < pol.ResumePriceRecoveryPct {
		return false
	}
	s.Active = false
	s.Reason = ""
	return true
}
