package engine

import (
	"fmt"
	"math"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/policy"
)

// planner owns the per-symbol quoting state: grid anchors and DCA
// cooldowns. One planner per engine instance.
type planner struct {
	pol policy.Policy

	hasGrid          bool
	lastGridRef      float64
	lastGridTsMs     int64
	barsSinceDCAFill int // bars since the last DCA fill
	hasDCAFill       bool
	lastDCAFill      float64 // price of the last DCA fill
	lastDCAEmitTsMs  int64
}

func newPlanner(pol policy.Policy) *planner {
	return &planner{pol: pol, barsSinceDCAFill: math.MaxInt32, lastDCAEmitTsMs: math.MinInt64}
}

// onBarAdvance moves the bar-counted cooldowns forward. Called once
// per processed bar before planning.
func (pl *planner) onBarAdvance() {
	if pl.barsSinceDCAFill < math.MaxInt32 {
		pl.barsSinceDCAFill++
	}
}

// onDCAFill resets the DCA cooldown. Called by the order lifecycle
// manager when a DCA order fills.
func (pl *planner) onDCAFill(price float64) {
	pl.barsSinceDCAFill = 0
	pl.hasDCAFill = true
	pl.lastDCAFill = price
}

// planGrid emits a symmetric ladder around ref when the anchor price
// drifted enough or no grid exists yet. Returns nil, false when the
// grid is skipped.
func (pl *planner) planGrid(snap *domain.Snapshot, spreadPct float64, tsMs int64) ([]domain.OrderIntent, bool) {
	if !pl.pol.GridEnabled {
		return nil, false
	}
	ref := snap.Close

	if pl.hasGrid {
		elapsed := (tsMs - pl.lastGridTsMs) / 1000
		if elapsed < pl.pol.GridMinSecondsBetween {
			return nil, false
		}
		drift := math.Abs(ref-pl.lastGridRef) / pl.lastGridRef * 100
		if drift < pl.pol.GridKillReplaceThresholdPct {
			return nil, false
		}
	}

	n := pl.pol.GridLevelsPerSide
	intents := make([]domain.OrderIntent, 0, 2*n)
	for k := 1; k <= n; k++ {
		intents = append(intents, domain.OrderIntent{
			Kind:  domain.KindGridBuy,
			Side:  domain.SideBuy,
			Price: ref * (1 - spreadPct*float64(k)/100),
			Tag:   fmt.Sprintf("grid_buy_%d", k),
		})
	}
	for k := 1; k <= n; k++ {
		intents = append(intents, domain.OrderIntent{
			Kind:  domain.KindGridSell,
			Side:  domain.SideSell,
			Price: ref * (1 + spreadPct*float64(k)/100),
			Tag:   fmt.Sprintf("grid_sell_%d", k),
		})
	}

	pl.hasGrid = true
	pl.lastGridRef = ref
	pl.lastGridTsMs = tsMs
	return intents, true
}

// planDCA emits a single accumulation BUY below the close when the
// oversold gates all pass.
func (pl *planner) planDCA(snap *domain.Snapshot, tsMs int64) []domain.OrderIntent {
	if !pl.pol.DCAEnabled || snap.RSI == nil {
		return nil
	}
	if *snap.RSI >= pl.pol.DCARSIThreshold {
		return nil
	}
	if pl.pol.DCAUseEMAGate {
		if snap.EMAFast == nil || snap.Close >= *snap.EMAFast {
			return nil
		}
	}
	if pl.barsSinceDCAFill < pl.pol.DCACooldownBars {
		return nil
	}
	if pl.hasDCAFill {
		dist := math.Abs(snap.Close-pl.lastDCAFill) / pl.lastDCAFill * 100
		if dist < pl.pol.DCAMinDistanceFromLastFillPct {
			return nil
		}
	}
	if pl.lastDCAEmitTsMs == tsMs {
		return nil
	}
	pl.lastDCAEmitTsMs = tsMs

	return []domain.OrderIntent{{
		Kind:  domain.KindDCA,
		Side:  domain.SideBuy,
		Price: snap.Close * (1 - pl.pol.DCAPriceOffsetPct/100),
		Tag:   fmt.Sprintf("dca_rsi_%.1f", *snap.RSI),
	}}
}

// planTP emits a single take-profit SELL above the close when
// momentum is overbought and price sits above the fast EMA.
func (pl *planner) planTP(snap *domain.Snapshot, band domain.Band) []domain.OrderIntent {
	if !pl.pol.TPEnabled || snap.RSI == nil || snap.EMAFast == nil {
		return nil
	}
	if *snap.RSI <= pl.pol.TPRSIThreshold {
		return nil
	}
	if snap.Close <= *snap.EMAFast {
		return nil
	}
	tp := TPSpread(pl.pol, band)
	return []domain.OrderIntent{{
		Kind:  domain.KindTP,
		Side:  domain.SideSell,
		Price: snap.Close * (1 + tp/100),
		Tag:   fmt.Sprintf("tp_rsi_%.1f_%s", *snap.RSI, band),
	}}
}
