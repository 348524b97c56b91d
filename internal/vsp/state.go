package vsp

import "github.com/silvanoneto/sil-core/internal/silstate"

// Flags mirrors spec.md §3 V.State flags: Z zero, N negative, C
// carry/collapse, O overflow, H halt.
type Flags struct {
	Z bool
	N bool
	C bool
	O bool
	H bool
}

// Gradient is the per-layer (d_rho, d_theta) pair cached by GRAD.
type Gradient struct {
	DRho   float64
	DTheta float64
}

// CallFrame records what's needed to unwind a CALL (spec.md §3).
type CallFrame struct {
	ReturnPC       uint32
	SavedRegsMask  uint16
	LocalBase      int
}

// State is the VSP's register file, program counter, stack pointer, flags
// and cycle counter (spec.md §3 V.State).
type State struct {
	Regs  [NumRegisters]silstate.SilState
	PC    uint32
	SP    int
	Flags Flags

	Cycles uint64
	Mode   Mode

	Gradient [silstate.NumLayers]Gradient
}

// newState builds the initial state: regs = vacuum, pc=0, flags cleared.
func newState(mode Mode) State {
	var s State
	vac := silstate.Vacuum()
	for i := range s.Regs {
		s.Regs[i] = vac
	}
	s.Mode = mode
	return s
}
