package backtest

import (
	"fmt"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/strategy"
	"go.uber.org/zap"
)

// Pipeline is the per-bar scan: mid prices, strategy decision, returns,
// trade pairing and equity. All state lives in the value, so a scan can be
// paused after any bar and resumed with the next one.
type Pipeline struct {
	strat  strategy.Strategy
	agg    Aggregator
	sum    Summarizer
	logger *zap.Logger

	index    int
	prevOpen core.Price
	first    time.Time
	last     time.Time

	nullBars         int
	divisionWarnings int
}

// NewPipeline creates a pipeline around a fresh strategy instance.
func NewPipeline(strat strategy.Strategy, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		strat:  strat,
		logger: logger,
	}
}

// Step processes the next bar. Bars must arrive in strictly increasing time
// order; the pipeline does not check this itself.
func (p *Pipeline) Step(bar core.Bar) BarState {
	mid := core.MidOf(bar)
	if !mid.Close.Valid {
		p.nullBars++
	}

	d := p.strat.Step(mid)

	// The position held into this bar earns this bar's open-to-open move.
	openRet := p.openReturn(mid)
	stratRet := core.Null
	if openRet.Valid {
		stratRet = core.Some(openRet.Value * float64(d.Previous))
	}

	tradeID, err := p.agg.Observe(mid.Time, mid.Open, d.Executed)
	if err != nil {
		p.warnDivision(mid.Time, tradeID, err)
	}

	equity, drawdown := p.sum.Add(stratRet)

	if p.index == 0 {
		p.first = mid.Time
	}
	state := BarState{
		Index:          p.index,
		Time:           mid.Time,
		Mid:            mid.OHLC,
		Fast:           d.Fast,
		Slow:           d.Slow,
		LongEntry:      d.Raw.LongEntry,
		LongExit:       d.Raw.LongExit,
		ExecLongEntry:  d.Executed.LongEntry,
		ExecLongExit:   d.Executed.LongExit,
		Position:       d.Position,
		OpenReturn:     openRet,
		StrategyReturn: stratRet,
		TradeID:        tradeID,
		Equity:         equity,
		Drawdown:       drawdown,
	}

	if mid.Open.Valid {
		p.prevOpen = mid.Open
	}
	p.last = mid.Time
	p.index++
	return state
}

// openReturn is the open-to-open change against the last valid open. A
// null open is carried forward from that open, so the bar itself returns 0
// and the next valid open spans the gap. Null before the first valid open.
func (p *Pipeline) openReturn(mid core.MidBar) core.Price {
	if p.index == 0 || !p.prevOpen.Valid {
		return core.Null
	}
	cur := mid.Open
	if !cur.Valid {
		cur = p.prevOpen
	}
	if p.prevOpen.Value == 0 {
		p.warnDivision(mid.Time, p.agg.TradeID(), core.WrapError(core.ErrDivision,
			fmt.Errorf("previous mid open is zero")))
		return core.Null
	}
	return core.Some(cur.Value/p.prevOpen.Value - 1)
}

func (p *Pipeline) warnDivision(t time.Time, tradeID int, err error) {
	p.divisionWarnings++
	p.logger.Warn("division anomaly, value degraded to null",
		zap.Int("bar", p.index),
		zap.Time("time", t),
		zap.Int("trade_id", tradeID),
		zap.Error(err),
	)
}

// Bars returns how many bars have been processed.
func (p *Pipeline) Bars() int {
	return p.index
}

// Trades returns the completed trades so far.
func (p *Pipeline) Trades() []Trade {
	return p.agg.Trades()
}

// Report summarizes the bars processed so far.
func (p *Pipeline) Report() Report {
	return Report{
		TotalTrades:      len(p.agg.Trades()),
		TotalProfit:      p.sum.TotalProfit(),
		MaxDrawdown:      p.sum.MaxDrawdown(),
		FinalEquity:      p.sum.Equity(),
		Bars:             p.index,
		NullBars:         p.nullBars,
		DivisionWarnings: p.divisionWarnings,
		SkippedTrades:    p.agg.Skipped(),
		OpenPosition:     p.agg.Open(),
	}
}
