package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	s := r.Summary

	// Header
	sb.WriteString(fmt.Sprintf("# Session Report: %s\n\n", s.SessionID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Symbol: %s | Mode: %s | Bars: %d\n\n", s.Symbol, s.Mode, s.Bars))

	// Session window
	sb.WriteString("## Session\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Start (ms) | %d |\n", s.StartMs))
	sb.WriteString(fmt.Sprintf("| End (ms) | %d |\n", s.EndMs))
	sb.WriteString(fmt.Sprintf("| Initial Equity | %.8f |\n", s.InitialEquity))
	sb.WriteString(fmt.Sprintf("| Final Equity | %.8f |\n", s.FinalEquity))
	sb.WriteString(fmt.Sprintf("| Total Return | %.4f%% |\n", s.TotalReturn))
	sb.WriteString("\n")

	// Performance
	sb.WriteString("## Performance\n\n")
	if s.Trades > 0 {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.Trades))
		sb.WriteString(fmt.Sprintf("| Wins | %d |\n", s.Wins))
		sb.WriteString(fmt.Sprintf("| Losses | %d |\n", s.Losses))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.4f%% |\n", s.WinRate))
		sb.WriteString(fmt.Sprintf("| Avg Win | %.8f |\n", s.AvgWin))
		sb.WriteString(fmt.Sprintf("| Avg Loss | %.8f |\n", s.AvgLoss))
		sb.WriteString(fmt.Sprintf("| Cumulative PnL | %.8f |\n", s.CumulativePnL))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f%% |\n", s.MaxDrawdown))
	} else {
		sb.WriteString("No closed trades in this session.\n")
	}
	sb.WriteString("\n")

	// Gate distribution
	sb.WriteString("## Gate Distribution\n\n")
	sb.WriteString("| State | Bars |\n")
	sb.WriteString("|-------|------|\n")
	sb.WriteString(fmt.Sprintf("| RUN | %d |\n", s.BarsRun))
	sb.WriteString(fmt.Sprintf("| DEGRADED | %d |\n", s.BarsDegraded))
	sb.WriteString(fmt.Sprintf("| PAUSED | %d |\n", s.BarsPaused))
	sb.WriteString(fmt.Sprintf("\nHard stops: %d | Resumes: %d\n\n", s.HardStops, s.Resumes))

	// Order activity
	sb.WriteString("## Orders\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Placed | %d |\n", s.OrdersPlaced))
	sb.WriteString(fmt.Sprintf("| Filled | %d |\n", s.OrdersFilled))
	sb.WriteString(fmt.Sprintf("| Canceled | %d |\n", s.OrdersCanceled))
	sb.WriteString("\n")

	// Fills
	sb.WriteString("## Fills\n\n")
	if len(r.Fills) > 0 {
		sb.WriteString("| Timestamp (ms) | Kind | Side | Price | Quantity | Fee | PnL | Tag |\n")
		sb.WriteString("|----------------|------|------|-------|----------|-----|-----|-----|\n")
		for _, f := range r.Fills {
			pnl := ""
			if f.PnL != nil {
				pnl = fmt.Sprintf("%.8f", *f.PnL)
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.8f | %.8f | %.8f | %s | %s |\n",
				f.TimestampMs, f.Kind, f.Side, f.Price, f.Quantity, f.Fee, pnl, f.Tag))
		}
	} else {
		sb.WriteString("No fills recorded.\n")
	}
	sb.WriteString("\n")

	// Cancellations grouped by reason
	sb.WriteString("## Cancellations\n\n")
	reasons := cancelReasonCounts(r)
	if len(reasons) > 0 {
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, rc := range reasons {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", rc.Reason, rc.Count))
		}
	} else {
		sb.WriteString("No cancellations recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
