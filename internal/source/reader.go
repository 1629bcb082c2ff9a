// Package source reads bid/ask bars from columnar and tabular inputs.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/crossover/internal/core"
)

// Reader yields bars one at a time. Next returns io.EOF after the last bar.
type Reader interface {
	Next(ctx context.Context) (core.Bar, error)
	Close() error
}

// Required column names
const (
	ColDatetime = "datetime"
	ColAskOpen  = "ask_open"
	ColAskHigh  = "ask_high"
	ColAskLow   = "ask_low"
	ColAskClose = "ask_close"
	ColBidOpen  = "bid_open"
	ColBidHigh  = "bid_high"
	ColBidLow   = "bid_low"
	ColBidClose = "bid_close"
)

// PriceColumns lists the eight price columns in the order they map onto a
// bar: ask OHLC then bid OHLC.
var PriceColumns = []string{
	ColAskOpen, ColAskHigh, ColAskLow, ColAskClose,
	ColBidOpen, ColBidHigh, ColBidLow, ColBidClose,
}

// Columns is every column a source must provide.
var Columns = append([]string{ColDatetime}, PriceColumns...)

// requireColumns returns a schema error naming every required column
// absent from have.
func requireColumns(have []string) error {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	var missing []string
	for _, c := range Columns {
		if _, ok := set[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return core.WrapError(core.ErrSchemaInvalid,
			fmt.Errorf("missing required columns: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// barFromPrices assembles a bar from prices ordered like PriceColumns.
func barFromPrices(p [8]core.Price) core.Bar {
	return core.Bar{
		Ask: core.OHLC{Open: p[0], High: p[1], Low: p[2], Close: p[3]},
		Bid: core.OHLC{Open: p[4], High: p[5], Low: p[6], Close: p[7]},
	}
}
