package backtest

import (
	"github.com/newthinker/crossover/internal/core"
)

// Summarizer compounds bar returns into an equity curve and tracks the
// deepest drawdown from its running peak. A null return leaves equity
// unchanged. The zero value is ready to use.
type Summarizer struct {
	equity      float64
	runningMax  float64
	maxDrawdown float64
	bars        int
}

// Add folds one bar's return in and returns the equity and drawdown at
// that bar.
func (s *Summarizer) Add(r core.Price) (equity, drawdown float64) {
	if s.bars == 0 {
		s.equity = 1
	}
	if r.Valid {
		s.equity *= 1 + r.Value
	}
	if s.bars == 0 || s.equity > s.runningMax {
		s.runningMax = s.equity
	}
	if s.runningMax > 0 {
		drawdown = s.equity/s.runningMax - 1
	}
	if drawdown < s.maxDrawdown {
		s.maxDrawdown = drawdown
	}
	s.bars++
	return s.equity, drawdown
}

// Equity returns the latest equity, 1 before any bar.
func (s *Summarizer) Equity() float64 {
	if s.bars == 0 {
		return 1
	}
	return s.equity
}

// TotalProfit returns final equity minus one.
func (s *Summarizer) TotalProfit() float64 {
	return s.Equity() - 1
}

// MaxDrawdown returns the minimum drawdown seen, 0 if equity never fell.
func (s *Summarizer) MaxDrawdown() float64 {
	return s.maxDrawdown
}
