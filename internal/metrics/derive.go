package metrics

import (
	"tradelens/internal/trades"

	"github.com/shopspring/decimal"
)

// Trade is a loaded record plus the fields derived from the full batch.
// PnLCumulative depends on every earlier trade in load order, so a Trade is
// only meaningful as part of the batch Derive produced it from.
type Trade struct {
	trades.TradeRecord
	PnLValue      decimal.Decimal `json:"pnl_value"`
	Profitable    bool            `json:"profitable"`
	PnLCumulative decimal.Decimal `json:"pnl_cumulative"`
}

// Derive computes per-trade PnL, the profitable flag and the running PnL over
// the whole batch in load order. It must run before any filtering.
func Derive(records []trades.TradeRecord) []Trade {
	out := make([]Trade, len(records))
	running := decimal.Zero
	for i, rec := range records {
		pnl := rec.ExitPrice.Sub(rec.EntryPrice)
		running = running.Add(pnl)
		out[i] = Trade{
			TradeRecord:   rec,
			PnLValue:      pnl,
			Profitable:    pnl.IsPositive(),
			PnLCumulative: running,
		}
	}
	return out
}
