package ema_crossover

import (
	"fmt"

	"github.com/newthinker/crossover/internal/core"
	"github.com/newthinker/crossover/internal/indicator"
	"github.com/newthinker/crossover/internal/strategy"
)

// Config holds the EMA crossover parameters
type Config struct {
	FastSpan   int
	SlowSpan   int
	NullPolicy indicator.NullPolicy
	// RequireFastBelowSlow rejects fast_span >= slow_span.
	RequireFastBelowSlow bool
}

// Validate checks spans and policy.
func (c Config) Validate() error {
	if c.FastSpan <= 1 || c.SlowSpan <= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ema spans must be greater than 1, got fast=%d slow=%d", c.FastSpan, c.SlowSpan))
	}
	if c.RequireFastBelowSlow && c.FastSpan >= c.SlowSpan {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("fast span %d must be below slow span %d", c.FastSpan, c.SlowSpan))
	}
	if _, err := indicator.ParseNullPolicy(string(c.NullPolicy)); err != nil {
		return err
	}
	return nil
}

// EMACrossover implements a long-only exponential moving average crossover
// over mid close prices. Signals detected at the close of bar t are executed
// at bar t+1.
type EMACrossover struct {
	fast     *indicator.EMA
	slow     *indicator.EMA
	detector Detector
	shifter  strategy.Shifter
	machine  strategy.Machine
	desc     string
}

// New creates a new EMA Crossover strategy
func New(cfg Config) (*EMACrossover, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fast, err := indicator.NewEMA(cfg.FastSpan, cfg.NullPolicy)
	if err != nil {
		return nil, err
	}
	slow, err := indicator.NewEMA(cfg.SlowSpan, cfg.NullPolicy)
	if err != nil {
		return nil, err
	}
	s := NewWithAverages(fast, slow)
	policy, _ := indicator.ParseNullPolicy(string(cfg.NullPolicy))
	s.desc = fmt.Sprintf("EMA Crossover (%d/%d, %s)", cfg.FastSpan, cfg.SlowSpan, policy)
	return s, nil
}

// NewWithAverages builds the strategy around two prepared accumulators.
// The accumulators must not be shared with anything else.
func NewWithAverages(fast, slow *indicator.EMA) *EMACrossover {
	return &EMACrossover{
		fast: fast,
		slow: slow,
		desc: fmt.Sprintf("EMA Crossover (alpha %.4g/%.4g)", fast.Alpha(), slow.Alpha()),
	}
}

func (m *EMACrossover) Name() string {
	return "ema_crossover"
}

func (m *EMACrossover) Description() string {
	return m.desc
}

// Step advances every stage by one bar.
func (m *EMACrossover) Step(bar core.MidBar) strategy.Decision {
	fast := m.fast.Update(bar.Close)
	slow := m.slow.Update(bar.Close)

	raw := m.detector.Detect(fast, slow)
	exec := m.shifter.Shift(raw)

	prev := m.machine.State()
	pos := m.machine.Step(exec)

	return strategy.Decision{
		Fast:     fast,
		Slow:     slow,
		Raw:      raw,
		Executed: exec,
		Previous: prev,
		Position: pos,
	}
}
