// Package vsp implements the Virtual SIL Processor: a register+stack
// machine with a fixed bytecode format, code/data/heap/stack memory
// regions, 16 typed registers, two execution modes, deterministic
// stepping, and a backend-selection policy for CPU/GPU/NPU accelerators.
//
// The fetch-decode-execute loop and memory/lifecycle shape are grounded on
// the teacher's CPU64/CPU32 (IntuitionEngine cpu_ie64.go, cpu_ie32.go):
// a fixed register file, a PROG_START/STACK_START memory layout, a
// LoadProgram/Reset lifecycle and a single Execute loop dispatching on a
// byte opcode. This package generalizes that shape to the spec's
// variable-length instruction encoding and flags-based (rather than
// compare-and-branch) condition model.
package vsp

import "github.com/silvanoneto/sil-core/internal/silstate"

// Mode selects whether registers are interpreted as holding a single byte
// value (SIL-64) or a full 16-layer state (SIL-128). Register storage is
// uniform internally (always a full SilState); Mode only changes which
// opcodes are meaningful and is reported for diagnostics/codegen.
type Mode int

const (
	SIL64 Mode = iota
	SIL128
)

func (m Mode) String() string {
	if m == SIL64 {
		return "sil64"
	}
	return "sil128"
}

// GradMode resolves the §9 open question about how GRAD's finite-difference
// on theta handles the mod-16 phase wrap. GradCircular (the default) takes
// the shortest signed delta mod 16; GradNaive takes a plain subtraction.
type GradMode int

const (
	GradCircular GradMode = iota
	GradNaive
)

// NumRegisters is the fixed VSP register-file width.
const NumRegisters = 16

// CurStateReg is the conventional "current state" register used by
// LSTATE/SSTATE and GRAD, analogous to a single-accumulator ISA's
// accumulator register. The spec describes these opcodes operating on "a
// designated current state register" without naming it; R0 is chosen here
// and documented in DESIGN.md.
const CurStateReg = 0

// Config configures a new Vsp instance (spec.md §4.3).
type Config struct {
	CodeSize  int
	DataSize  int
	HeapSize  int
	StackSize int

	EnableGPU  bool
	EnableNPU  bool
	EnableFPGA bool

	Debug     bool
	Mode      Mode
	MaxCycles uint64 // 0 means unlimited
	GradMode  GradMode
}

// DefaultConfig returns sane defaults for ad-hoc program execution.
func DefaultConfig() Config {
	return Config{
		CodeSize:  1 << 16,
		DataSize:  1 << 16,
		HeapSize:  1024,
		StackSize: 64,
		Mode:      SIL128,
		GradMode:  GradCircular,
	}
}

// Validate reports a ConfigError for nonsensical configuration.
func (c Config) Validate() error {
	if c.HeapSize < 0 || c.StackSize <= 0 {
		return &ConfigError{Reason: "heap/stack size must be positive"}
	}
	return nil
}

// ConfigError is returned by Vsp.New for invalid configuration.
type ConfigError struct{ Reason string }

func (e *ConfigError) Error() string { return "vsp: invalid config: " + e.Reason }

// vacuumHeap builds a zero-initialized (vacuum) heap of the given size.
func vacuumHeap(n int) []silstate.SilState {
	h := make([]silstate.SilState, n)
	vac := silstate.Vacuum()
	for i := range h {
		h[i] = vac
	}
	return h
}
