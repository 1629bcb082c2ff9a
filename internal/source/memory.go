package source

import (
	"context"
	"io"

	"github.com/newthinker/crossover/internal/core"
)

// Memory serves bars from a slice
type Memory struct {
	bars []core.Bar
	pos  int
}

// NewMemory creates a reader over bars. The slice is not copied.
func NewMemory(bars []core.Bar) *Memory {
	return &Memory{bars: bars}
}

func (m *Memory) Next(ctx context.Context) (core.Bar, error) {
	if err := ctx.Err(); err != nil {
		return core.Bar{}, err
	}
	if m.pos >= len(m.bars) {
		return core.Bar{}, io.EOF
	}
	b := m.bars[m.pos]
	m.pos++
	return b, nil
}

func (m *Memory) Close() error {
	return nil
}
