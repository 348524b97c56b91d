package vsp

import "github.com/silvanoneto/sil-core/internal/silstate"

// MemoryRegion names the four disjoint address spaces of spec.md §3
// V.Memory, used in OutOfBounds error reporting.
type MemoryRegion string

const (
	RegionCode  MemoryRegion = "code"
	RegionData  MemoryRegion = "data"
	RegionHeap  MemoryRegion = "heap"
	RegionStack MemoryRegion = "stack"
)

// Memory holds the VSP's four memory regions (spec.md §3 V.Memory):
// code and data are read-only byte arrays, heap is an indexable vector of
// SilState cells (zero-initialized to vacuum), stack is a fixed-depth ring
// of call frames.
type Memory struct {
	Code []byte
	Data []byte
	Heap []silstate.SilState
	// Frames is the fixed-depth call-frame ring (spec.md §3 "Call frame").
	Frames []CallFrame
}

func newMemory(cfg Config) *Memory {
	return &Memory{
		Code:   make([]byte, 0, cfg.CodeSize),
		Data:   make([]byte, 0, cfg.DataSize),
		Heap:   vacuumHeap(cfg.HeapSize),
		Frames: make([]CallFrame, cfg.StackSize),
	}
}

// LoadCode replaces the code section. Immutable thereafter until the next
// Load.
func (m *Memory) LoadCode(code []byte) {
	m.Code = append([]byte(nil), code...)
}

// LoadData replaces the data section.
func (m *Memory) LoadData(data []byte) {
	m.Data = append([]byte(nil), data...)
}

// ReadCodeByte reads one byte from the code section, bounds-checked.
func (m *Memory) ReadCodeByte(addr uint32, cycles uint64) (byte, error) {
	if int(addr) >= len(m.Code) {
		return 0, newRuntimeErr(ErrOutOfBounds, cycles, "code read at 0x%04X (size=%d)", addr, len(m.Code))
	}
	return m.Code[addr], nil
}

// ReadDataByte reads one byte from the data section, bounds-checked.
func (m *Memory) ReadDataByte(addr uint16, cycles uint64) (byte, error) {
	if int(addr) >= len(m.Data) {
		return 0, newRuntimeErr(ErrOutOfBounds, cycles, "data read at 0x%04X (size=%d)", addr, len(m.Data))
	}
	return m.Data[addr], nil
}

// HeapCell returns the SilState at heap index addr, bounds-checked.
func (m *Memory) HeapCell(addr uint16, cycles uint64) (silstate.SilState, error) {
	if int(addr) >= len(m.Heap) {
		return silstate.SilState{}, newRuntimeErr(ErrOutOfBounds, cycles, "heap read at 0x%04X (size=%d)", addr, len(m.Heap))
	}
	return m.Heap[addr], nil
}

// SetHeapCell writes the SilState at heap index addr, bounds-checked.
func (m *Memory) SetHeapCell(addr uint16, v silstate.SilState, cycles uint64) error {
	if int(addr) >= len(m.Heap) {
		return newRuntimeErr(ErrOutOfBounds, cycles, "heap write at 0x%04X (size=%d)", addr, len(m.Heap))
	}
	m.Heap[addr] = v
	return nil
}

// PushFrame pushes a call frame, bounds-checked against the fixed stack
// depth (spec.md §3: "stack underflow on RET from frame 0 is a fatal
// error"; overflow is its mirror image).
func (m *Memory) PushFrame(sp int, f CallFrame, cycles uint64) (int, error) {
	if sp >= len(m.Frames) {
		return sp, newRuntimeErr(ErrStackOverflow, cycles, "call stack depth %d exceeded", len(m.Frames))
	}
	m.Frames[sp] = f
	return sp + 1, nil
}

// PopFrame pops a call frame, bounds-checked.
func (m *Memory) PopFrame(sp int, cycles uint64) (CallFrame, int, error) {
	if sp <= 0 {
		return CallFrame{}, sp, newRuntimeErr(ErrStackUnderflow, cycles, "RET with empty call stack")
	}
	sp--
	return m.Frames[sp], sp, nil
}
