package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/core"
)

// BarHeader is the per-bar dump header row.
var BarHeader = []string{
	"bar", "datetime", "mid_open", "mid_high", "mid_low", "mid_close",
	"ema_fast", "ema_slow", "long_entry", "long_exit",
	"exec_long_entry", "exec_long_exit", "position",
	"open_return", "strategy_return", "trade_id", "equity", "drawdown",
}

// BarWriter streams BarState rows as CSV. Null values are empty cells.
type BarWriter struct {
	cw      *csv.Writer
	started bool
	err     error
	row     []string
}

func NewBarWriter(w io.Writer) *BarWriter {
	return &BarWriter{cw: csv.NewWriter(w), row: make([]string, len(BarHeader))}
}

// Write appends one bar. After the first failure every call is a no-op and
// the error is reported by Flush.
func (b *BarWriter) Write(s backtest.BarState) {
	if b.err != nil {
		return
	}
	if !b.started {
		b.started = true
		if b.err = b.cw.Write(BarHeader); b.err != nil {
			return
		}
	}

	r := b.row
	r[0] = strconv.Itoa(s.Index)
	r[1] = formatTime(s.Time)
	r[2] = formatPrice(s.Mid.Open)
	r[3] = formatPrice(s.Mid.High)
	r[4] = formatPrice(s.Mid.Low)
	r[5] = formatPrice(s.Mid.Close)
	r[6] = formatPrice(s.Fast)
	r[7] = formatPrice(s.Slow)
	r[8] = flag(s.LongEntry)
	r[9] = flag(s.LongExit)
	r[10] = flag(s.ExecLongEntry)
	r[11] = flag(s.ExecLongExit)
	r[12] = strconv.Itoa(int(s.Position))
	r[13] = formatPrice(s.OpenReturn)
	r[14] = formatPrice(s.StrategyReturn)
	r[15] = strconv.Itoa(s.TradeID)
	r[16] = formatFloat(s.Equity)
	r[17] = formatFloat(s.Drawdown)
	b.err = b.cw.Write(r)
}

// Flush writes buffered rows and returns the first error seen.
func (b *BarWriter) Flush() error {
	if b.err != nil {
		return core.WrapError(core.ErrSinkFailed, b.err)
	}
	b.cw.Flush()
	if err := b.cw.Error(); err != nil {
		return core.WrapError(core.ErrSinkFailed, err)
	}
	return nil
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
