package strategy

import (
	"testing"
)

func TestShifter_DelaysByOneBar(t *testing.T) {
	raw := []Signal{
		{LongEntry: true},
		{},
		{LongExit: true},
		{LongEntry: true},
	}

	var s Shifter
	got := make([]Signal, len(raw))
	for i, r := range raw {
		got[i] = s.Shift(r)
	}

	if got[0] != (Signal{}) {
		t.Errorf("bar 0 should carry no executed signal, got %+v", got[0])
	}
	for i := 1; i < len(raw); i++ {
		if got[i] != raw[i-1] {
			t.Errorf("exec[%d] = %+v, want raw[%d] = %+v", i, got[i], i-1, raw[i-1])
		}
	}
}

func TestMachine_Transitions(t *testing.T) {
	tests := []struct {
		name string
		exec []Signal
		want []Position
	}{
		{
			name: "starts flat and carries",
			exec: []Signal{{}, {}, {}},
			want: []Position{Flat, Flat, Flat},
		},
		{
			name: "entry then carry then exit",
			exec: []Signal{{}, {LongEntry: true}, {}, {}, {LongExit: true}, {}},
			want: []Position{Flat, Long, Long, Long, Flat, Flat},
		},
		{
			name: "exit while flat is a no-op",
			exec: []Signal{{LongExit: true}, {}},
			want: []Position{Flat, Flat},
		},
		{
			name: "repeated entry stays long",
			exec: []Signal{{LongEntry: true}, {LongEntry: true}},
			want: []Position{Long, Long},
		},
		{
			name: "entry wins a tie",
			exec: []Signal{{LongEntry: true, LongExit: true}, {LongEntry: true, LongExit: true}},
			want: []Position{Long, Long},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Machine
			for i, e := range tt.exec {
				if got := m.Step(e); got != tt.want[i] {
					t.Errorf("bar %d: state = %v, want %v", i, got, tt.want[i])
				}
			}
			if m.State() != tt.want[len(tt.want)-1] {
				t.Errorf("State() = %v, want %v", m.State(), tt.want[len(tt.want)-1])
			}
		})
	}
}

func TestMachine_ChangesOnlyOnExecutedEdges(t *testing.T) {
	exec := []Signal{{}, {LongEntry: true}, {}, {LongExit: true}, {}, {LongEntry: true}, {}, {}}

	var m Machine
	prev := m.State()
	for i, e := range exec {
		got := m.Step(e)
		if got != Flat && got != Long {
			t.Fatalf("bar %d: state %d out of range", i, got)
		}
		if !e.LongEntry && !e.LongExit && got != prev {
			t.Errorf("bar %d: state changed without an executed edge", i)
		}
		prev = got
	}
}

func TestPosition_String(t *testing.T) {
	if Flat.String() != "flat" || Long.String() != "long" {
		t.Errorf("unexpected names %q %q", Flat, Long)
	}
}
