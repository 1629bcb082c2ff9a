package ema_crossover

import (
	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/strategy"
)

// Detector flags the bars where the fast average crosses the slow one.
//
// Golden cross at t: fast[t] > slow[t] and fast[t-1] <= slow[t-1].
// Death cross at t:  fast[t] < slow[t] and fast[t-1] >= slow[t-1].
//
// The first bar has no predecessor and never crosses. Any comparison with a
// null average is false.
type Detector struct {
	prevFast core.Price
	prevSlow core.Price
	seen     bool
}

// Detect returns the raw signal for the current bar.
func (d *Detector) Detect(fast, slow core.Price) strategy.Signal {
	var sig strategy.Signal
	if d.seen && fast.Valid && slow.Valid && d.prevFast.Valid && d.prevSlow.Valid {
		sig.LongEntry = fast.Value > slow.Value && d.prevFast.Value <= d.prevSlow.Value
		sig.LongExit = fast.Value < slow.Value && d.prevFast.Value >= d.prevSlow.Value
	}
	d.prevFast, d.prevSlow, d.seen = fast, slow, true
	return sig
}
