package strategy

// Shifter delays signals by exactly one bar: the signal returned for bar t
// is the one passed in at bar t-1. The first call returns no signal.
type Shifter struct {
	pending Signal
}

// Shift stores raw and returns the previous bar's signal.
func (s *Shifter) Shift(raw Signal) Signal {
	out := s.pending
	s.pending = raw
	return out
}
