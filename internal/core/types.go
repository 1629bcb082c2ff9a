package core

import (
	"strconv"
	"time"
)

// Price is a nullable price. The zero value is null.
type Price struct {
	Value float64
	Valid bool
}

// Null is the missing price.
var Null = Price{}

// Some returns a valid price holding v.
func Some(v float64) Price {
	return Price{Value: v, Valid: true}
}

// IsZero reports whether p is a valid price equal to zero.
func (p Price) IsZero() bool {
	return p.Valid && p.Value == 0
}

func (p Price) String() string {
	if !p.Valid {
		return "null"
	}
	return strconv.FormatFloat(p.Value, 'g', -1, 64)
}

// OHLC holds one side of a bar
type OHLC struct {
	Open  Price
	High  Price
	Low   Price
	Close Price
}

// Bar is one timestamped bid/ask observation
type Bar struct {
	Time time.Time
	Ask  OHLC
	Bid  OHLC
}

// MidBar is the spread-neutral view of a Bar
type MidBar struct {
	Time time.Time
	OHLC
}

// MidOf averages ask and bid field by field. A null on either side
// yields a null mid for that field.
func MidOf(b Bar) MidBar {
	return MidBar{
		Time: b.Time,
		OHLC: OHLC{
			Open:  mid(b.Ask.Open, b.Bid.Open),
			High:  mid(b.Ask.High, b.Bid.High),
			Low:   mid(b.Ask.Low, b.Bid.Low),
			Close: mid(b.Ask.Close, b.Bid.Close),
		},
	}
}

func mid(ask, bid Price) Price {
	if !ask.Valid || !bid.Valid {
		return Null
	}
	return Some((ask.Value + bid.Value) * 0.5)
}
