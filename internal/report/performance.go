package report

import (
	"fmt"
	"io"
	"math"

	"github.com/newthinker/crossover/internal/backtest"
	"github.com/shopspring/decimal"
)

const (
	banner = "========== PERFORMANCE =========="
	footer = "================================="
)

// Percent renders a fraction as a percentage with four decimals.
func Percent(frac float64) string {
	if math.IsNaN(frac) || math.IsInf(frac, 0) {
		return fmt.Sprint(frac * 100)
	}
	return decimal.NewFromFloat(frac).Shift(2).StringFixed(4)
}

// WritePerformance prints the summary block. An open position at the end
// of the series adds one line before the footer.
func WritePerformance(w io.Writer, r backtest.Report) error {
	lines := []string{
		banner,
		fmt.Sprintf("Total Trades   : %d", r.TotalTrades),
		fmt.Sprintf("Total Profit   : %s%%", Percent(r.TotalProfit)),
		fmt.Sprintf("Max Drawdown   : %s%%", Percent(r.MaxDrawdown)),
	}
	if op := r.OpenPosition; op != nil {
		price := formatPrice(op.EntryPrice)
		if price == "" {
			price = "null"
		}
		lines = append(lines, fmt.Sprintf("Open Position  : trade %d since %s @ %s",
			op.TradeID, formatTime(op.EntryTime), price))
	}
	lines = append(lines, footer)

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
