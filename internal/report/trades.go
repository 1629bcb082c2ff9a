// Package report renders backtest results as CSV tables and a plain-text
// performance summary.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/newthinker/crossover/internal/backtest"
	"github.com/newthinker/crossover/internal/core"
	"github.com/shopspring/decimal"
)

// TimeLayout renders timestamps in trade and bar tables.
const TimeLayout = "2006-01-02T15:04:05.000000"

// TradeHeader is the trade table header row.
var TradeHeader = []string{"trade_id", "entry_time", "entry_price", "exit_time", "exit_price", "trade_return"}

// WriteTrades writes the trade table as CSV, one row per paired trade.
func WriteTrades(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradeHeader); err != nil {
		return core.WrapError(core.ErrSinkFailed, err)
	}
	for _, t := range trades {
		row := []string{
			strconv.Itoa(t.TradeID),
			formatTime(t.EntryTime),
			formatFloat(t.EntryPrice),
			formatTime(t.ExitTime),
			formatFloat(t.ExitPrice),
			formatFloat(t.Return),
		}
		if err := cw.Write(row); err != nil {
			return core.WrapError(core.ErrSinkFailed, fmt.Errorf("trade %d: %w", t.TradeID, err))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return core.WrapError(core.ErrSinkFailed, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// formatFloat prints the shortest decimal that round-trips v.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

func formatPrice(p core.Price) string {
	if !p.Valid {
		return ""
	}
	return formatFloat(p.Value)
}
