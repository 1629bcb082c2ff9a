package backtest

import (
	"fmt"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/strategy"
)

// Aggregator numbers entries and pairs them with exits by trade id.
//
// The trade id starts at 0 and increments on every executed entry. Entries
// and exits join on equal id; rows without a partner are dropped, and every
// exit carrying the id of an entry yields its own trade. Since ids only
// grow, only the most recent entry can still find an exit, so the join runs
// in constant memory.
type Aggregator struct {
	tradeID int
	entry   *OpenPosition
	exited  bool // entry already paired with at least one exit
	trades  []Trade
	skipped int
}

// Observe records one bar's executed signal at its mid open price and
// returns the trade id in force after the bar. A non-nil error is a
// division anomaly: the pair was dropped and the run can continue.
func (a *Aggregator) Observe(t time.Time, open core.Price, exec strategy.Signal) (int, error) {
	if exec.LongEntry {
		a.tradeID++
		a.entry = &OpenPosition{TradeID: a.tradeID, EntryTime: t, EntryPrice: open}
		a.exited = false
	}
	if !exec.LongExit {
		return a.tradeID, nil
	}

	entry := a.entry
	if entry == nil {
		// exit at trade id 0
		return a.tradeID, nil
	}
	a.exited = true

	switch {
	case !entry.EntryPrice.Valid || entry.EntryPrice.Value == 0:
		a.skipped++
		return a.tradeID, core.WrapError(core.ErrDivision,
			fmt.Errorf("trade %d: entry price %s", entry.TradeID, entry.EntryPrice))
	case !open.Valid:
		a.skipped++
		return a.tradeID, core.WrapError(core.ErrDivision,
			fmt.Errorf("trade %d: exit price is null", entry.TradeID))
	}

	a.trades = append(a.trades, Trade{
		TradeID:    entry.TradeID,
		EntryTime:  entry.EntryTime,
		EntryPrice: entry.EntryPrice.Value,
		ExitTime:   t,
		ExitPrice:  open.Value,
		Return:     open.Value/entry.EntryPrice.Value - 1,
	})
	return a.tradeID, nil
}

// TradeID returns the current trade id.
func (a *Aggregator) TradeID() int {
	return a.tradeID
}

// Trades returns the completed trades in exit order.
func (a *Aggregator) Trades() []Trade {
	return a.trades
}

// Skipped returns how many pairs were dropped for a bad price.
func (a *Aggregator) Skipped() int {
	return a.skipped
}

// Open returns the latest entry if no exit has paired with it yet.
func (a *Aggregator) Open() *OpenPosition {
	if a.entry == nil || a.exited {
		return nil
	}
	open := *a.entry
	return &open
}
