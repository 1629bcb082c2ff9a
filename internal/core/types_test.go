package core

import (
	"testing"
	"time"
)

func TestPrice_Zero(t *testing.T) {
	var p Price
	if p.Valid {
		t.Error("zero value should be null")
	}
	if p.IsZero() {
		t.Error("null price is not a zero price")
	}
	if !Some(0).IsZero() {
		t.Error("Some(0) should report IsZero")
	}
	if p.String() != "null" {
		t.Errorf("String() = %q, want null", p.String())
	}
	if Some(1.5).String() != "1.5" {
		t.Errorf("String() = %q, want 1.5", Some(1.5).String())
	}
}

func TestMidOf(t *testing.T) {
	ts := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	bar := Bar{
		Time: ts,
		Ask:  OHLC{Open: Some(1.1002), High: Some(1.1010), Low: Some(1.0990), Close: Some(1.1006)},
		Bid:  OHLC{Open: Some(1.1000), High: Some(1.1008), Low: Some(1.0988), Close: Some(1.1004)},
	}

	m := MidOf(bar)

	if !m.Time.Equal(ts) {
		t.Errorf("Time = %v, want %v", m.Time, ts)
	}
	tests := []struct {
		name string
		got  Price
		want float64
	}{
		{"open", m.Open, 1.1001},
		{"high", m.High, 1.1009},
		{"low", m.Low, 1.0989},
		{"close", m.Close, 1.1005},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Valid {
				t.Fatal("expected valid mid")
			}
			if diff := tt.got.Value - tt.want; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("mid = %v, want %v", tt.got.Value, tt.want)
			}
		})
	}
}

func TestMidOf_NullPropagates(t *testing.T) {
	bar := Bar{
		Ask: OHLC{Open: Null, High: Some(2), Low: Some(1), Close: Some(0)},
		Bid: OHLC{Open: Some(1), High: Null, Low: Some(1), Close: Some(0)},
	}

	m := MidOf(bar)

	if m.Open.Valid {
		t.Error("null ask open should give null mid open")
	}
	if m.High.Valid {
		t.Error("null bid high should give null mid high")
	}
	if !m.Low.Valid || m.Low.Value != 1 {
		t.Errorf("Low = %v, want 1", m.Low)
	}
	// A zero mid is a real price, not a null
	if !m.Close.IsZero() {
		t.Errorf("Close = %v, want valid 0", m.Close)
	}
}
