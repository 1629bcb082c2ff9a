package strategy

import (
	"github.com/newthinker/crossover/internal/core"
)

// Signal is a pair of long-side edge flags for one bar
type Signal struct {
	LongEntry bool
	LongExit  bool
}

// Position is the long/flat state held over a bar
type Position int

const (
	Flat Position = 0
	Long Position = 1
)

func (p Position) String() string {
	if p == Long {
		return "long"
	}
	return "flat"
}

// Decision is everything a strategy derives for one bar
type Decision struct {
	Fast     core.Price
	Slow     core.Price
	Raw      Signal   // detected at the close of this bar
	Executed Signal   // acted on at the open of this bar
	Previous Position // held into this bar
	Position Position // held after this bar's executed signal
}

// Strategy turns an ordered stream of mid bars into decisions. Step must
// be called once per bar in time order and may only use bars seen so far.
type Strategy interface {
	Name() string
	Description() string
	Step(bar core.MidBar) Decision
}
