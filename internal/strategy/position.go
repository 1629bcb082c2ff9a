package strategy

// Machine is the FLAT/LONG position state machine. It starts flat and
// changes state only on an executed edge; an entry is checked before an
// exit, so a bar carrying both ends long.
type Machine struct {
	state Position
}

// Step applies one bar's executed signal and returns the new state.
func (m *Machine) Step(exec Signal) Position {
	switch {
	case exec.LongEntry:
		m.state = Long
	case exec.LongExit:
		m.state = Flat
	}
	return m.state
}

// State returns the current position.
func (m *Machine) State() Position {
	return m.state
}
