package reporting

import (
	"time"

	"hybrid-mm-engine/internal/domain"
)

// Report is the rendered view of one session: the stored summary plus
// the full order-event and fill logs.
type Report struct {
	GeneratedAt time.Time

	Summary *domain.SessionSummary

	// Chronological logs, as persisted.
	Events []*domain.OrderEvent
	Fills  []*domain.Fill
}
