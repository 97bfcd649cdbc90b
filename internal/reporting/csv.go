package reporting

import (
	"fmt"
	"strings"

	"hybrid-mm-engine/internal/domain"
)

// RenderOrdersCSV renders the order-event log as a CSV string.
func RenderOrdersCSV(events []*domain.OrderEvent) string {
	var sb strings.Builder

	sb.WriteString("timestamp_ms,session_id,symbol,order_id,kind,side,action,price,quantity,value,status,tag,reason,mode\n")

	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s,%.8f,%.8f,%.8f,%s,%s,%s,%s\n",
			ev.TimestampMs,
			ev.SessionID,
			ev.Symbol,
			ev.OrderID,
			ev.Kind,
			ev.Side,
			ev.Action,
			ev.Price,
			ev.Quantity,
			ev.Value,
			ev.Status,
			ev.Tag,
			ev.Reason,
			ev.Mode,
		))
	}

	return sb.String()
}

// RenderFillsCSV renders the fill log as a CSV string. Realized PnL
// columns are empty for BUY fills.
func RenderFillsCSV(fills []*domain.Fill) string {
	var sb strings.Builder

	sb.WriteString("timestamp_ms,session_id,symbol,fill_id,order_id,kind,side,price,quantity,fee,fee_asset,pnl,pnl_pct,tag\n")

	for _, f := range fills {
		pnl := ""
		if f.PnL != nil {
			pnl = fmt.Sprintf("%.8f", *f.PnL)
		}
		pnlPct := ""
		if f.PnLPct != nil {
			pnlPct = fmt.Sprintf("%.4f", *f.PnLPct)
		}

		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s,%.8f,%.8f,%.8f,%s,%s,%s,%s\n",
			f.TimestampMs,
			f.SessionID,
			f.Symbol,
			f.FillID,
			f.OrderID,
			f.Kind,
			f.Side,
			f.Price,
			f.Quantity,
			f.Fee,
			f.FeeAsset,
			pnl,
			pnlPct,
			f.Tag,
		))
	}

	return sb.String()
}

// RenderSummaryCSV renders one session summary as a single-row CSV.
func RenderSummaryCSV(s *domain.SessionSummary) string {
	var sb strings.Builder

	sb.WriteString("session_id,symbol,mode,start_ms,end_ms,bars,initial_equity,final_equity,total_return,")
	sb.WriteString("trades,wins,losses,win_rate,avg_win,avg_loss,cumulative_pnl,max_drawdown,")
	sb.WriteString("orders_placed,orders_filled,orders_canceled,bars_run,bars_degraded,bars_paused,hard_stops,resumes\n")

	sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%d,%.8f,%.8f,%.4f,%d,%d,%d,%.4f,%.8f,%.8f,%.8f,%.4f,%d,%d,%d,%d,%d,%d,%d,%d\n",
		s.SessionID,
		s.Symbol,
		s.Mode,
		s.StartMs,
		s.EndMs,
		s.Bars,
		s.InitialEquity,
		s.FinalEquity,
		s.TotalReturn,
		s.Trades,
		s.Wins,
		s.Losses,
		s.WinRate,
		s.AvgWin,
		s.AvgLoss,
		s.CumulativePnL,
		s.MaxDrawdown,
		s.OrdersPlaced,
		s.OrdersFilled,
		s.OrdersCanceled,
		s.BarsRun,
		s.BarsDegraded,
		s.BarsPaused,
		s.HardStops,
		s.Resumes,
	))

	return sb.String()
}
