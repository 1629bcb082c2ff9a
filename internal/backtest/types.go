package backtest

import (
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/strategy"
)

// Result holds the complete backtest output
type Result struct {
	Strategy    string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Trades      []Trade
	Report      Report
}

// Trade is one entry paired with the exit carrying the same trade id
type Trade struct {
	TradeID    int
	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64
	Return     float64 // exit/entry - 1
}

// OpenPosition is an entry still waiting for its exit
type OpenPosition struct {
	TradeID    int
	EntryTime  time.Time
	EntryPrice core.Price
}

// Report holds performance statistics
type Report struct {
	TotalTrades int
	TotalProfit float64 // final equity - 1
	MaxDrawdown float64 // min over bars of equity/running max - 1, never positive
	FinalEquity float64

	Bars             int
	NullBars         int // bars with a null mid close
	DivisionWarnings int
	SkippedTrades    int           // paired but excluded for a zero or null price
	OpenPosition     *OpenPosition // nil when flat at the last bar
}

// BarState is every derived column for one bar
type BarState struct {
	Index int
	Time  time.Time
	Mid   core.OHLC

	Fast core.Price
	Slow core.Price

	LongEntry     bool
	LongExit      bool
	ExecLongEntry bool
	ExecLongExit  bool
	Position      strategy.Position

	OpenReturn     core.Price
	StrategyReturn core.Price
	TradeID        int
	Equity         float64
	Drawdown       float64
}
