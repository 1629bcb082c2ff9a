package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/strategy"
	"github.com/newthinker/crossover/internal/strategy/ema_crossover"
	"go.uber.org/zap"
)

// BarSource yields bars in time order and io.EOF after the last one
type BarSource interface {
	Next(ctx context.Context) (core.Bar, error)
}

// Config holds backtest settings
type Config struct {
	Strategy ema_crossover.Config
	// OnBar, when set, receives every derived bar in order.
	OnBar func(BarState)
}

// Backtester runs the EMA crossover pipeline over a bar source
type Backtester struct {
	cfg         Config
	logger      *zap.Logger
	newStrategy func() (strategy.Strategy, error)
}

// New validates cfg and creates a Backtester.
func New(cfg Config, logger *zap.Logger) (*Backtester, error) {
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backtester{
		cfg:    cfg,
		logger: logger,
		newStrategy: func() (strategy.Strategy, error) {
			return ema_crossover.New(cfg.Strategy)
		},
	}, nil
}

// Run consumes src once, top to bottom. Any error from the source aborts
// the run and no result is returned. Every run starts from fresh state, so
// the same input always gives the same result.
func (b *Backtester) Run(ctx context.Context, src BarSource) (*Result, error) {
	strat, err := b.newStrategy()
	if err != nil {
		return nil, err
	}

	b.logger.Info("starting backtest",
		zap.String("strategy", strat.Name()),
		zap.String("description", strat.Description()),
	)
	started := time.Now()

	p := NewPipeline(strat, b.logger)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bar, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading bar %d: %w", p.Bars(), err)
		}

		state := p.Step(bar)
		if b.cfg.OnBar != nil {
			b.cfg.OnBar(state)
		}
	}

	if p.Bars() == 0 {
		return nil, core.ErrNoData
	}

	report := p.Report()
	b.logger.Info("backtest finished",
		zap.Int("bars", report.Bars),
		zap.Int("trades", report.TotalTrades),
		zap.Float64("total_profit", report.TotalProfit),
		zap.Float64("max_drawdown", report.MaxDrawdown),
		zap.Int("division_warnings", report.DivisionWarnings),
		zap.Duration("elapsed", time.Since(started)),
	)
	if report.OpenPosition != nil {
		b.logger.Info("position still open at last bar, not counted as a trade",
			zap.Int("trade_id", report.OpenPosition.TradeID),
			zap.Time("entry_time", report.OpenPosition.EntryTime),
		)
	}

	return &Result{
		Strategy:    strat.Name(),
		Description: strat.Description(),
		StartDate:   p.first,
		EndDate:     p.last,
		Trades:      p.Trades(),
		Report:      report,
	}, nil
}
