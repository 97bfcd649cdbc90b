package oms

import (
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/idhash"
	"hybrid-mm-engine/internal/policy"
)

// Config holds the execution-boundary parameters the planner stays
// ignorant of.
type Config struct {
	TickSize     float64 // price quantum of the symbol
	MinNotional  float64 // exchange minimum order value, quote currency
	OrderSizePct float64 // order notional as a percent of equity
}

// DefaultConfig matches common USDT spot pairs.
func DefaultConfig() Config {
	return Config{
		TickSize:     0.01,
		MinNotional:  11,
		OrderSizePct: 1,
	}
}

// CancelEvent records one removed order and why.
type CancelEvent struct {
	Order  domain.PendingOrder
	Reason domain.CancelReason
}

// SkippedIntent records a plan intent that was not placed.
type SkippedIntent struct {
	Intent domain.OrderIntent
	Note   string // "too small" or "duplicate price level"
}

// BarResult is everything the lifecycle manager did for one bar, in
// processing order: fills first, then cancels, then placements.
type BarResult struct {
	Fills   []domain.Fill
	Cancels []CancelEvent
	Placed  []domain.PendingOrder
	Skipped []SkippedIntent
}

// Manager owns the live order set and portfolio for one symbol. For
// each bar it runs fill detection, the cancellation sweep, and plan
// application, in that order.
type Manager struct {
	symbol    string
	sessionID string
	pol       policy.Policy
	cfg       Config
	portfolio *Portfolio
	live      map[string]*domain.PendingOrder

	// onDCAFill, when set, is invoked for every DCA fill so the
	// planner can reset its cooldown.
	onDCAFill func(price float64)

	logger  *log.Logger
	verbose bool
}

// New creates a manager with the given starting cash.
func New(symbol, sessionID string, pol policy.Policy, cfg Config, startingCash float64) *Manager {
	return &Manager{
		symbol:    symbol,
		sessionID: sessionID,
		pol:       pol,
		cfg:       cfg,
		portfolio: NewPortfolio(startingCash),
		live:      make(map[string]*domain.PendingOrder),
		logger:    log.New(os.Stderr, "[oms] ", log.LstdFlags),
	}
}

// SetDCAFillCallback wires the planner cooldown reset.
func (m *Manager) SetDCAFillCallback(fn func(price float64)) {
	m.onDCAFill = fn
}

// SetVerbose enables per-order logging.
func (m *Manager) SetVerbose(v bool) {
	m.verbose = v
}

func (m *Manager) log(format string, args ...any) {
	if m.verbose {
		m.logger.Printf(format, args...)
	}
}

// Portfolio exposes the accounting state for reporting.
func (m *Manager) Portfolio() *Portfolio {
	return m.portfolio
}

// Equity values the portfolio at the given mark price.
func (m *Manager) Equity(close float64) float64 {
	return m.portfolio.Equity(close)
}

// LiveOrders returns a copy of the live order set.
func (m *Manager) LiveOrders() []domain.PendingOrder {
	out := make([]domain.PendingOrder, 0, len(m.live))
	for _, o := range m.live {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlacedAtMs != out[j].PlacedAtMs {
			return out[i].PlacedAtMs < out[j].PlacedAtMs
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

// Cancel removes one live order. Cancelling an unknown or already
// cancelled id is a no-op.
func (m *Manager) Cancel(orderID string, reason domain.CancelReason) *CancelEvent {
	o, ok := m.live[orderID]
	if !ok {
		return nil
	}
	delete(m.live, orderID)
	ev := &CancelEvent{Order: *o, Reason: reason}
	m.log("cancel %s %s @ %.8f (%s)", o.Side, o.Tag, o.Price, reason)
	return ev
}

// HandleRejection removes an order the execution layer reported as
// REJECTED. Unknown ids are ignored.
func (m *Manager) HandleRejection(orderID string) {
	delete(m.live, orderID)
}

// RoundToTick quantizes a price to the symbol tick.
func (m *Manager) RoundToTick(price float64) float64 {
	return math.Round(price/m.cfg.TickSize) * m.cfg.TickSize
}

// ProcessBar runs the full per-bar sequence against the bar, the
// current indicator snapshot, and the engine's plan. The ordering is
// fixed: fills settle against the old order set, then the sweep runs,
// then the plan is applied.
func (m *Manager) ProcessBar(bar domain.Bar, snap *domain.Snapshot, plan *domain.Plan) (*BarResult, error) {
	res := &BarResult{}

	if err := m.detectFills(bar, res); err != nil {
		return nil, err
	}
	m.sweep(bar, snap, res)
	if err := m.applyPlan(bar, snap, plan, res); err != nil {
		return nil, err
	}

	// equity must remain finite after settlement
	if eq := m.portfolio.Equity(bar.Close); math.IsNaN(eq) || math.IsInf(eq, 0) {
		return nil, fmt.Errorf("oms %s: equity %v after bar %d: %w", m.symbol, eq, bar.TimestampMs, ErrInvariant)
	}
	return res, nil
}

// detectFills applies the bar-synchronous limit-fill rule to every
// live order: a BUY fills when the bar traded at or below its price,
// a SELL when the bar traded at or above. Fill price is the limit
// price. SELL orders never fill beyond the held position.
func (m *Manager) detectFills(bar domain.Bar, res *BarResult) error {
	for _, o := range m.LiveOrders() {
		switch o.Side {
		case domain.SideBuy:
			if bar.Low > o.Price {
				continue
			}
		case domain.SideSell:
			if bar.High < o.Price {
				continue
			}
			if m.portfolio.PositionQty <= 0 {
				continue // nothing to sell yet, keep the order resting
			}
		}

		qty := o.Quantity
		if o.Side == domain.SideSell && qty > m.portfolio.PositionQty {
			qty = m.portfolio.PositionQty
		}

		value := o.Price * qty
		fee := value * m.pol.TakerFeePct / 100
		feeAsset := "USDT"
		if m.pol.UseBNBDiscount {
			fee *= 1 - m.pol.BNBDiscountPct/100
			feeAsset = "BNB"
		}

		fill := domain.Fill{
			FillID:      idhash.ComputeFillID(o.OrderID, bar.TimestampMs),
			OrderID:     o.OrderID,
			SessionID:   m.sessionID,
			Symbol:      m.symbol,
			Kind:        o.Kind,
			Side:        o.Side,
			Price:       o.Price,
			Quantity:    qty,
			Fee:         fee,
			FeeAsset:    feeAsset,
			TimestampMs: bar.TimestampMs,
			Tag:         o.Tag,
		}

		switch o.Side {
		case domain.SideBuy:
			m.portfolio.applyBuy(o.Price, qty, fee)
			if o.Kind == domain.KindDCA && m.onDCAFill != nil {
				m.onDCAFill(o.Price)
			}
		case domain.SideSell:
			entry := m.portfolio.AvgEntryPrice
			pnl := m.portfolio.applySell(o.Price, qty, fee)
			fill.PnL = &pnl
			if entry > 0 {
				pct := (o.Price - entry) / entry * 100
				fill.PnLPct = &pct
			}
		}

		delete(m.live, o.OrderID)
		res.Fills = append(res.Fills, fill)
		m.log("fill %s %s %.8f @ %.8f fee %.8f", fill.Side, fill.Tag, fill.Quantity, fill.Price, fill.Fee)
	}
	return nil
}

// sweep cancels live orders that aged out, drifted from the market,
// or whose momentum premise reversed. A volatility spike clears every
// grid order at once.
func (m *Manager) sweep(bar domain.Bar, snap *domain.Snapshot, res *BarResult) {
	volSpike := false
	if m.pol.OrderCancelOnVolatilitySpike && snap != nil && snap.ATRPct != nil && snap.PrevATRPct != nil {
		volSpike = *snap.ATRPct >= *snap.PrevATRPct*m.pol.OrderVolatilitySpikeThreshold
	}

	for _, o := range m.LiveOrders() {
		if ageSec := (bar.TimestampMs - o.PlacedAtMs) / 1000; ageSec >= m.pol.OrderMaxAgeSeconds {
			if ev := m.Cancel(o.OrderID, domain.CancelAge); ev != nil {
				res.Cancels = append(res.Cancels, *ev)
			}
			continue
		}

		if drift := math.Abs(bar.Close-o.Price) / o.Price * 100; drift >= m.pol.OrderPriceDriftThresholdPct {
			if ev := m.Cancel(o.OrderID, domain.CancelDrift); ev != nil {
				res.Cancels = append(res.Cancels, *ev)
			}
			continue
		}

		if volSpike && (o.Kind == domain.KindGridBuy || o.Kind == domain.KindGridSell) {
			if ev := m.Cancel(o.OrderID, domain.CancelVolSpike); ev != nil {
				res.Cancels = append(res.Cancels, *ev)
			}
			continue
		}

		if m.rsiReversed(o, snap) {
			if ev := m.Cancel(o.OrderID, domain.CancelRSIReversal); ev != nil {
				res.Cancels = append(res.Cancels, *ev)
			}
		}
	}
}

func (m *Manager) rsiReversed(o domain.PendingOrder, snap *domain.Snapshot) bool {
	if !m.pol.OrderCancelOnRSIReversal || o.InitialRSI == nil || snap == nil || snap.RSI == nil {
		return false
	}
	initial, current := *o.InitialRSI, *snap.RSI
	if math.Abs(current-initial) < m.pol.OrderRSIReversalThreshold {
		return false
	}
	switch o.Side {
	case domain.SideBuy:
		return initial < 40 && current > 60
	case domain.SideSell:
		return initial > 60 && current < 40
	}
	return false
}

// applyPlan places the plan's intents. A hard-stop plan clears every
// remaining order instead. A kill-replace grid clears old grid orders
// first; DCA and TP orders are never swept by grid refresh.
func (m *Manager) applyPlan(bar domain.Bar, snap *domain.Snapshot, plan *domain.Plan, res *BarResult) error {
	if plan == nil {
		return nil
	}

	if plan.SL.Stop {
		for _, o := range m.LiveOrders() {
			if ev := m.Cancel(o.OrderID, domain.CancelHardStop); ev != nil {
				res.Cancels = append(res.Cancels, *ev)
			}
		}
		return nil
	}

	if plan.KillReplace {
		for _, o := range m.LiveOrders() {
			if o.Kind != domain.KindGridBuy && o.Kind != domain.KindGridSell {
				continue
			}
			if ev := m.Cancel(o.OrderID, domain.CancelReplaced); ev != nil {
				res.Cancels = append(res.Cancels, *ev)
			}
		}
	}

	equity := m.portfolio.Equity(bar.Close)
	for _, intent := range plan.Intents() {
		price := m.RoundToTick(intent.Price)
		if m.priceLevelTaken(intent.Side, price) {
			res.Skipped = append(res.Skipped, SkippedIntent{Intent: intent, Note: "duplicate price level"})
			continue
		}

		notional := equity * m.cfg.OrderSizePct / 100
		if notional < m.cfg.MinNotional {
			res.Skipped = append(res.Skipped, SkippedIntent{Intent: intent, Note: "too small"})
			m.log("skip %s %s @ %.8f: too small (%.2f < %.2f)", intent.Side, intent.Tag, price, notional, m.cfg.MinNotional)
			continue
		}
		qty := notional / price

		order := &domain.PendingOrder{
			OrderID:    idhash.ComputeOrderID(m.sessionID, m.symbol, bar.TimestampMs, intent.Tag, price),
			Symbol:     m.symbol,
			Kind:       intent.Kind,
			Side:       intent.Side,
			Price:      price,
			Quantity:   qty,
			Tag:        intent.Tag,
			PlacedAtMs: bar.TimestampMs,
		}
		if snap != nil && snap.RSI != nil {
			rsi := *snap.RSI
			order.InitialRSI = &rsi
		}

		if _, exists := m.live[order.OrderID]; exists {
			return fmt.Errorf("oms %s: duplicate order id %s: %w", m.symbol, order.OrderID, ErrInvariant)
		}
		m.live[order.OrderID] = order
		res.Placed = append(res.Placed, *order)
		m.log("place %s %s %.8f @ %.8f", order.Side, order.Tag, order.Quantity, order.Price)
	}
	return nil
}

// LiquidateAll closes the whole position with a taker sell at the bar
// close, used when a hard stop flattens the book. Returns nil when no
// position is held.
func (m *Manager) LiquidateAll(bar domain.Bar) *domain.Fill {
	qty := m.portfolio.PositionQty
	if qty <= 0 {
		return nil
	}

	price := m.RoundToTick(bar.Close)
	value := price * qty
	fee := value * m.pol.TakerFeePct / 100
	feeAsset := "USDT"
	if m.pol.UseBNBDiscount {
		fee *= 1 - m.pol.BNBDiscountPct/100
		feeAsset = "BNB"
	}

	orderID := idhash.ComputeOrderID(m.sessionID, m.symbol, bar.TimestampMs, "close_all", price)
	entry := m.portfolio.AvgEntryPrice
	pnl := m.portfolio.applySell(price, qty, fee)

	fill := &domain.Fill{
		FillID:      idhash.ComputeFillID(orderID, bar.TimestampMs),
		OrderID:     orderID,
		SessionID:   m.sessionID,
		Symbol:      m.symbol,
		Kind:        domain.KindClose,
		Side:        domain.SideSell,
		Price:       price,
		Quantity:    qty,
		Fee:         fee,
		FeeAsset:    feeAsset,
		TimestampMs: bar.TimestampMs,
		Tag:         "close_all",
		PnL:         &pnl,
	}
	if entry > 0 {
		pct := (price - entry) / entry * 100
		fill.PnLPct = &pct
	}

	m.log("liquidate %.8f @ %.8f pnl %.8f", qty, price, pnl)
	return fill
}

func (m *Manager) priceLevelTaken(side domain.Side, roundedPrice float64) bool {
	for _, o := range m.live {
		if o.Side == side && o.Price == roundedPrice {
			return true
		}
	}
	return false
}
