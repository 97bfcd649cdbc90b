package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hybrid-mm-engine/internal/domain"
	"hybrid-mm-engine/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	sessionStore storage.SessionStore
	fillStore    storage.FillStore
	eventStore   storage.OrderEventStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	sessionStore storage.SessionStore,
	fillStore storage.FillStore,
	eventStore storage.OrderEventStore,
) *Generator {
	return &Generator{
		sessionStore: sessionStore,
		fillStore:    fillStore,
		eventStore:   eventStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the full report for one session. The stored summary
// is rendered as-is; recomputation from raw logs is the aggregator's
// job, not the report's.
func (g *Generator) Generate(ctx context.Context, sessionID string) (*Report, error) {
	summary, err := g.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	fills, err := g.fillStore.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load fills for %s: %w", sessionID, err)
	}

	events, err := g.eventStore.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load order events for %s: %w", sessionID, err)
	}

	// Chronological, ties broken by id so repeated runs render identically.
	sort.SliceStable(fills, func(i, j int) bool {
		if fills[i].TimestampMs != fills[j].TimestampMs {
			return fills[i].TimestampMs < fills[j].TimestampMs
		}
		return fills[i].FillID < fills[j].FillID
	})
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].TimestampMs != events[j].TimestampMs {
			return events[i].TimestampMs < events[j].TimestampMs
		}
		return events[i].EventID < events[j].EventID
	})

	return &Report{
		GeneratedAt: g.now(),
		Summary:     summary,
		Events:      events,
		Fills:       fills,
	}, nil
}

// reasonCount is one row of the cancellation breakdown.
type reasonCount struct {
	Reason string
	Count  int
}

// cancelReasonCounts groups cancel events by reason, sorted by reason.
func cancelReasonCounts(r *Report) []reasonCount {
	counts := make(map[string]int)
	for _, ev := range r.Events {
		if ev.Action == domain.ActionCancel {
			counts[ev.Reason]++
		}
	}

	rows := make([]reasonCount, 0, len(counts))
	for reason, n := range counts {
		rows = append(rows, reasonCount{Reason: reason, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Reason < rows[j].Reason
	})
	return rows
}
