package indicator

import (
	"fmt"

	"github.com/newthinker/crossover/internal/core"
)

// NullPolicy controls how an EMA treats a null input price
type NullPolicy string

const (
	// SkipNull emits null for the bar and keeps the running average.
	SkipNull NullPolicy = "skip-null"
	// ResetOnNull emits null for the bar and drops the running average;
	// the next valid price seeds a fresh one.
	ResetOnNull NullPolicy = "reset-on-null"
)

// ParseNullPolicy validates a policy name. Empty means SkipNull.
func ParseNullPolicy(s string) (NullPolicy, error) {
	switch NullPolicy(s) {
	case "", SkipNull:
		return SkipNull, nil
	case ResetOnNull:
		return ResetOnNull, nil
	}
	return "", core.WrapError(core.ErrConfigInvalid,
		fmt.Errorf("unknown null policy %q (want %s or %s)", s, SkipNull, ResetOnNull))
}

// EMA is a non-adjusted exponential moving average accumulator:
// the first valid price seeds the average, every later price p moves it to
// alpha*p + (1-alpha)*ema.
type EMA struct {
	alpha       float64
	value       float64
	initialized bool
	policy      NullPolicy
}

// NewEMA creates an accumulator with alpha = 2/(span+1). Span must be
// greater than one.
func NewEMA(span int, policy NullPolicy) (*EMA, error) {
	if span <= 1 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ema span must be greater than 1, got %d", span))
	}
	return NewEMAWithAlpha(2.0/float64(span+1), policy)
}

// NewEMAWithAlpha creates an accumulator from a raw smoothing factor in
// (0, 1]. Alpha 1 tracks the input exactly.
func NewEMAWithAlpha(alpha float64, policy NullPolicy) (*EMA, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ema alpha must be in (0, 1], got %v", alpha))
	}
	p, err := ParseNullPolicy(string(policy))
	if err != nil {
		return nil, err
	}
	return &EMA{alpha: alpha, policy: p}, nil
}

// Update feeds one price and returns the average for that bar.
func (e *EMA) Update(price core.Price) core.Price {
	if !price.Valid {
		if e.policy == ResetOnNull {
			e.value, e.initialized = 0, false
		}
		return core.Null
	}
	if !e.initialized {
		e.value, e.initialized = price.Value, true
	} else {
		e.value = e.alpha*price.Value + (1-e.alpha)*e.value
	}
	return core.Some(e.value)
}

// Alpha returns the smoothing factor.
func (e *EMA) Alpha() float64 {
	return e.alpha
}
