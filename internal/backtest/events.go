package backtest

import (
	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/idhash"
	"hybrid-mm-engine/internal/oms"
)

// BuildOrderEvents converts one bar's lifecycle result into the
// persisted order-event log, in settlement order: fills, cancels,
// placements, skips.
func BuildOrderEvents(sessionID, mode string, bar domain.Bar, res *oms.BarResult) []*domain.OrderEvent {
	events := make([]*domain.OrderEvent, 0, len(res.Fills)+len(res.Cancels)+len(res.Placed)+len(res.Skipped))

	for _, f := range res.Fills {
		events = append(events, &domain.OrderEvent{
			EventID:     idhash.ComputeEventID(f.OrderID, string(domain.ActionFill), bar.TimestampMs),
			SessionID:   sessionID,
			Symbol:      f.Symbol,
			OrderID:     f.OrderID,
			Kind:        f.Kind,
			Side:        f.Side,
			Action:      domain.ActionFill,
			Price:       f.Price,
			Quantity:    f.Quantity,
			Value:       f.Price * f.Quantity,
			Status:      domain.StatusFilled,
			Tag:         f.Tag,
			Mode:        mode,
			TimestampMs: bar.TimestampMs,
		})
	}

	for _, c := range res.Cancels {
		o := c.Order
		events = append(events, &domain.OrderEvent{
			EventID:     idhash.ComputeEventID(o.OrderID, string(domain.ActionCancel), bar.TimestampMs),
			SessionID:   sessionID,
			Symbol:      o.Symbol,
			OrderID:     o.OrderID,
			Kind:        o.Kind,
			Side:        o.Side,
			Action:      domain.ActionCancel,
			Price:       o.Price,
			Quantity:    o.Quantity,
			Value:       o.Value(),
			Status:      domain.StatusCanceled,
			Tag:         o.Tag,
			Reason:      string(c.Reason),
			Mode:        mode,
			TimestampMs: bar.TimestampMs,
		})
	}

	for _, o := range res.Placed {
		events = append(events, &domain.OrderEvent{
			EventID:     idhash.ComputeEventID(o.OrderID, string(domain.ActionPlace), bar.TimestampMs),
			SessionID:   sessionID,
			Symbol:      o.Symbol,
			OrderID:     o.OrderID,
			Kind:        o.Kind,
			Side:        o.Side,
			Action:      domain.ActionPlace,
			Price:       o.Price,
			Quantity:    o.Quantity,
			Value:       o.Value(),
			Status:      domain.StatusPending,
			Tag:         o.Tag,
			Mode:        mode,
			TimestampMs: bar.TimestampMs,
		})
	}

	for _, s := range res.Skipped {
		// Skipped intents never got an order id; the tag keys the event.
		events = append(events, &domain.OrderEvent{
			EventID:     idhash.ComputeEventID(s.Intent.Tag, string(domain.ActionSkip), bar.TimestampMs),
			SessionID:   sessionID,
			Symbol:      bar.Symbol,
			Kind:        s.Intent.Kind,
			Side:        s.Intent.Side,
			Action:      domain.ActionSkip,
			Price:       s.Intent.Price,
			Tag:         s.Intent.Tag,
			Reason:      s.Note,
			Mode:        mode,
			TimestampMs: bar.TimestampMs,
		})
	}

	return events
}
