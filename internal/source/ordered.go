package source

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/crossover/internal/core"
)

// Ordered wraps a Reader and fails with a DATA_ORDER error on the first
// bar whose timestamp is not strictly after the previous one.
type Ordered struct {
	r     Reader
	prev  time.Time
	index int
}

// NewOrdered wraps r.
func NewOrdered(r Reader) *Ordered {
	return &Ordered{r: r}
}

func (o *Ordered) Next(ctx context.Context) (core.Bar, error) {
	bar, err := o.r.Next(ctx)
	if err != nil {
		return bar, err
	}
	if o.index > 0 && !bar.Time.After(o.prev) {
		return core.Bar{}, core.BarError(core.ErrDataOrder, o.index, bar.Time,
			fmt.Errorf("timestamp not after previous bar at %s", o.prev.Format(time.RFC3339Nano)))
	}
	o.prev = bar.Time
	o.index++
	return bar, nil
}

func (o *Ordered) Close() error {
	return o.r.Close()
}
