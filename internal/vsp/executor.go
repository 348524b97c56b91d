package vsp

import (
	"context"

	"github.com/silvanoneto/sil-core/internal/bytesil"
	"github.com/silvanoneto/sil-core/internal/silstate"
)

// Vsp is the Virtual SIL Processor: lifecycle, state, memory and backend
// selection bound together (spec.md §4.3, §6 "Programmatic core API").
// Grounded on the teacher's CPU64 (cpu_ie64.go): New/LoadProgram/Reset
// lifecycle, a single Execute loop, bounds-checked memory access.
type Vsp struct {
	cfg     Config
	state   State
	mem     *Memory
	backend *BackendSelector
}

// New builds a Vsp in its initial state (spec.md §4.3 "created by
// Vsp::new(config) in initial state").
func New(cfg Config) (*Vsp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Vsp{
		cfg:     cfg,
		state:   newState(cfg.Mode),
		mem:     newMemory(cfg),
		backend: NewBackendSelector(cfg),
	}, nil
}

// State returns a copy of the current VSP state.
func (v *Vsp) State() State { return v.state }

// Memory returns the VSP's memory regions (for loaders/inspection tools).
func (v *Vsp) Memory() *Memory { return v.mem }

// Backend returns the VSP's backend selector.
func (v *Vsp) Backend() *BackendSelector { return v.backend }

// LoadBytes loads code and data sections directly (spec.md §6
// Vsp::load_bytes).
func (v *Vsp) LoadBytes(code, data []byte) {
	v.mem.LoadCode(code)
	v.mem.LoadData(data)
	v.state.PC = 0
}

// Reset restores the post-New state (spec.md §4.3 "reset restores the
// initial state"). Code and data sections are preserved; registers, PC,
// SP, flags, cycles and gradient cache are cleared.
func (v *Vsp) Reset() {
	v.state = newState(v.cfg.Mode)
	v.mem.Heap = vacuumHeap(v.cfg.HeapSize)
}

// Step performs exactly one fetch-decode-execute cycle (spec.md §4.3):
// read the instruction at pc, advance pc by its decoded length, dispatch,
// update flags, increment cycles by exactly 1, and report whether
// execution should continue.
func (v *Vsp) Step() (bool, error) {
	if v.state.Flags.H {
		return false, nil
	}
	instr, err := Decode(v.mem.Code, v.state.PC)
	if err != nil {
		if re, ok := err.(*RuntimeError); ok {
			re.Cycles = v.state.Cycles
		}
		return false, err
	}
	nextPC := v.state.PC + uint32(instr.Len)
	cont, err := v.dispatch(instr, nextPC)
	v.state.Cycles++
	if err != nil {
		if re, ok := err.(*RuntimeError); ok {
			re.Cycles = v.state.Cycles
		}
		return false, err
	}
	return cont, nil
}

// dispatch runs execute under recover so a malformed-but-decodable
// instruction (e.g. ROOT with n=0) can't take the whole process down with
// it; any panic surfaces as an ErrPanic RuntimeError instead.
func (v *Vsp) dispatch(instr Instruction, nextPC uint32) (cont bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			cont = false
			err = newRuntimeErr(ErrPanic, v.state.Cycles, "recovered: %v", r)
		}
	}()
	return v.execute(instr, nextPC)
}

// Run loops Step until continuation is false, the configured MaxCycles is
// exceeded (CycleLimitExceeded), or ctx is cancelled (Cancelled), polling
// ctx at least once per step (spec.md §5 "Cancellation and timeouts").
func (v *Vsp) Run(ctx context.Context) (State, error) {
	for {
		select {
		case <-ctx.Done():
			return v.state, newRuntimeErr(ErrCancelled, v.state.Cycles, "context cancelled: %v", ctx.Err())
		default:
		}
		if v.cfg.MaxCycles != 0 && v.state.Cycles >= v.cfg.MaxCycles {
			return v.state, newRuntimeErr(ErrCycleLimitExceeded, v.state.Cycles, "max cycles %d reached", v.cfg.MaxCycles)
		}
		cont, err := v.Step()
		if err != nil {
			return v.state, err
		}
		if !cont {
			return v.state, nil
		}
	}
}

func (v *Vsp) reg(i byte) (int, error) {
	if int(i) >= NumRegisters {
		return 0, newRuntimeErr(ErrInvalidRegister, v.state.Cycles, "register r%d out of range", i)
	}
	return int(i), nil
}

// execute dispatches one decoded instruction. nextPC is the fallthrough PC
// (pc + instruction length); control-flow opcodes overwrite v.state.PC
// explicitly instead.
func (v *Vsp) execute(instr Instruction, nextPC uint32) (bool, error) {
	v.state.PC = nextPC

	switch instr.Opcode {
	case OpNOP:
		return true, nil

	case OpHLT:
		v.state.Flags.H = true
		return false, nil

	case OpJMP:
		v.state.PC = uint32(instr.Operands[0].Addr16)
		return true, nil

	case OpJZ:
		if v.state.Flags.Z {
			v.state.PC = uint32(instr.Operands[0].Addr16)
		}
		return true, nil

	case OpJNZ:
		if !v.state.Flags.Z {
			v.state.PC = uint32(instr.Operands[0].Addr16)
		}
		return true, nil

	case OpJC:
		if v.state.Flags.C {
			v.state.PC = uint32(instr.Operands[0].Addr16)
		}
		return true, nil

	case OpJNC:
		if !v.state.Flags.C {
			v.state.PC = uint32(instr.Operands[0].Addr16)
		}
		return true, nil

	case OpJN:
		if v.state.Flags.N {
			v.state.PC = uint32(instr.Operands[0].Addr16)
		}
		return true, nil

	case OpJNN:
		if !v.state.Flags.N {
			v.state.PC = uint32(instr.Operands[0].Addr16)
		}
		return true, nil

	case OpCALL:
		frame := CallFrame{ReturnPC: v.state.PC, LocalBase: v.state.SP}
		sp, err := v.mem.PushFrame(v.state.SP, frame, v.state.Cycles)
		if err != nil {
			return false, err
		}
		v.state.SP = sp
		v.state.PC = uint32(instr.Operands[0].Addr16)
		return true, nil

	case OpRET:
		frame, sp, err := v.mem.PopFrame(v.state.SP, v.state.Cycles)
		if err != nil {
			return false, err
		}
		v.state.SP = sp
		v.state.PC = frame.ReturnPC
		return true, nil

	case OpMOV:
		rD, err := v.reg(instr.Operands[0].Reg)
		if err != nil {
			return false, err
		}
		rS, err := v.reg(instr.Operands[1].Reg)
		if err != nil {
			return false, err
		}
		v.state.Regs[rD] = v.state.Regs[rS]
		v.setFlagsFromState(v.state.Regs[rD])
		return true, nil

	case OpMOVI:
		rD, err := v.reg(instr.Operands[0].Reg)
		if err != nil {
			return false, err
		}
		b := bytesil.FromU8(instr.Operands[1].Imm8)
		v.state.Regs[rD] = silstate.Vacuum().WithLayer(0, b)
		v.setFlagsFromByte(b)
		return true, nil

	case OpLOAD:
		rD, err := v.reg(instr.Operands[0].Reg)
		if err != nil {
			return false, err
		}
		raw, err := v.mem.ReadDataByte(instr.Operands[1].Addr16, v.state.Cycles)
		if err != nil {
			return false, err
		}
		b := bytesil.FromU8(raw)
		v.state.Regs[rD] = silstate.Vacuum().WithLayer(0, b)
		v.setFlagsFromByte(b)
		return true, nil

	case OpSTORE:
		rD, err := v.reg(instr.Operands[0].Reg)
		if err != nil {
			return false, err
		}
		addr := instr.Operands[1].Addr16
		cell, err := v.mem.HeapCell(addr, v.state.Cycles)
		if err != nil {
			return false, err
		}
		cell = cell.WithLayer(0, v.state.Regs[rD].Get(0))
		if err := v.mem.SetHeapCell(addr, cell, v.state.Cycles); err != nil {
			return false, err
		}
		return true, nil

	case OpGETL:
		rD, err := v.reg(instr.Operands[0].Reg)
		if err != nil {
			return false, err
		}
		rS, err := v.reg(instr.Operands[1].Reg)
		if err != nil {
			return false, err
		}
		layer := int(instr.Operands[2].Layer)
		b := v.state.Regs[rS].Get(layer)
		v.state.Regs[rD] = silstate.Vacuum().WithLayer(0, b)
		v.setFlagsFromByte(b)
		return true, nil

	case OpSETL:
		rD, err := v.reg(instr.Operands[0].Reg)
		if err != nil {
			return false, err
		}
		rS, err := v.reg(instr.Operands[1].Reg)
		if err != nil {
			return false, err
		}
		layer := int(instr.Operands[2].Layer)
		b := v.state.Regs[rS].Get(0)
		v.state.Regs[rD] = v.state.Regs[rD].WithLayer(layer, b)
		return true, nil

	case OpLSTATE:
		addr := instr.Operands[0].Addr16
		cell, err := v.mem.HeapCell(addr, v.state.Cycles)
		if err != nil {
			return false, err
		}
		v.state.Regs[CurStateReg] = cell
		v.setFlagsFromState(cell)
		return true, nil

	case OpSSTATE:
		addr := instr.Operands[0].Addr16
		if err := v.mem.SetHeapCell(addr, v.state.Regs[CurStateReg], v.state.Cycles); err != nil {
			return false, err
		}
		return true, nil

	case OpADD, OpSUB, OpMUL, OpDIV:
		return v.execByteArith(instr)

	case OpPOW, OpROOT:
		return v.execByteShape(instr)

	case OpCONJ, OpINV, OpNEG:
		return v.execByteUnary(instr)

	case OpXORL, OpANDL, OpORL:
		return v.execLayerAlgebra(instr)

	case OpROTL:
		return v.execRotl(instr)

	case OpFOLD, OpCOLLAPSE:
		return v.execCollapse(instr)

	case OpPROJECT:
		rD, err := v.reg(instr.Operands[0].Reg)
		if err != nil {
			return false, err
		}
		rS, err := v.reg(instr.Operands[1].Reg)
		if err != nil {
			return false, err
		}
		out := silstate.Project(v.state.Regs[rS], instr.Operands[2].Mask16)
		v.state.Regs[rD] = out
		v.setFlagsFromState(out)
		return true, nil

	case OpCMP:
		return v.execCmp(instr)

	case OpTEST:
		return v.execTest(instr)

	case OpGRAD:
		return v.execGrad()

	case OpEMERGE:
		rD, err := v.reg(instr.Operands[0].Reg)
		if err != nil {
			return false, err
		}
		backend := v.backend.Pick()
		input := v.state.Regs[rD]
		v.backend.Defer(func() {
			result := backend.Emergence(input)
			v.state.Regs[rD] = result
			v.setFlagsFromState(result)
		})
		return true, nil

	case OpFENCE:
		v.backend.Fence()
		return true, nil

	default:
		return false, newRuntimeErr(ErrInvalidOpcode, v.state.Cycles, "opcode 0x%02X", instr.Opcode)
	}
}

func (v *Vsp) setFlagsFromByte(b bytesil.ByteSil) {
	v.state.Flags.Z = b.IsNull()
	v.state.Flags.N = b.Rho < 0 && !b.IsNull()
}

func (v *Vsp) setFlagsFromState(s silstate.SilState) {
	allVacuum := true
	for i := 0; i < silstate.NumLayers; i++ {
		if !s.Get(i).IsNull() {
			allVacuum = false
			break
		}
	}
	v.state.Flags.Z = allVacuum
	v.state.Flags.N = s.Get(0).Rho < 0 && !s.Get(0).IsNull()
}

func (v *Vsp) execByteArith(instr Instruction) (bool, error) {
	rD, err := v.reg(instr.Operands[0].Reg)
	if err != nil {
		return false, err
	}
	rA, err := v.reg(instr.Operands[1].Reg)
	if err != nil {
		return false, err
	}
	rB, err := v.reg(instr.Operands[2].Reg)
	if err != nil {
		return false, err
	}
	a := v.state.Regs[rA].Get(0)
	b := v.state.Regs[rB].Get(0)

	var result bytesil.ByteSil
	var saturated bool
	switch instr.Opcode {
	case OpADD:
		result = bytesil.Mul(a, b) // log-domain add == multiply (rho sums)
		saturated = rhoSaturates(int(a.Rho)+int(b.Rho)) && !a.IsNull() && !b.IsNull()
	case OpSUB:
		var derr error
		result, derr = bytesil.Div(a, b)
		if derr != nil {
			return false, newRuntimeErrWrap(ErrDivByZero, v.state.Cycles, derr, "SUB: %v", derr)
		}
		saturated = rhoSaturates(int(a.Rho)-int(b.Rho)) && !a.IsNull() && !b.IsNull()
	case OpMUL:
		result = bytesil.Mul(a, b)
		saturated = rhoSaturates(int(a.Rho)+int(b.Rho)) && !a.IsNull() && !b.IsNull()
	case OpDIV:
		var derr error
		result, derr = bytesil.Div(a, b)
		if derr != nil {
			return false, newRuntimeErrWrap(ErrDivByZero, v.state.Cycles, derr, "DIV: %v", derr)
		}
		saturated = rhoSaturates(int(a.Rho)-int(b.Rho)) && !a.IsNull() && !b.IsNull()
	}
	v.state.Regs[rD] = silstate.Vacuum().WithLayer(0, result)
	v.setFlagsFromByte(result)
	v.state.Flags.C = saturated
	return true, nil
}

func rhoSaturates(r int) bool { return r < -8 || r > 7 }

func (v *Vsp) execByteShape(instr Instruction) (bool, error) {
	rD, err := v.reg(instr.Operands[0].Reg)
	if err != nil {
		return false, err
	}
	rA, err := v.reg(instr.Operands[1].Reg)
	if err != nil {
		return false, err
	}
	n := int(instr.Operands[2].Imm8)
	a := v.state.Regs[rA].Get(0)

	var result bytesil.ByteSil
	switch instr.Opcode {
	case OpPOW:
		result = bytesil.Pow(a, n)
	case OpROOT:
		if n < 1 {
			n = 1
		}
		result = bytesil.Root(a, n)
	}
	v.state.Regs[rD] = silstate.Vacuum().WithLayer(0, result)
	v.setFlagsFromByte(result)
	return true, nil
}

func (v *Vsp) execByteUnary(instr Instruction) (bool, error) {
	rD, err := v.reg(instr.Operands[0].Reg)
	if err != nil {
		return false, err
	}
	rS, err := v.reg(instr.Operands[1].Reg)
	if err != nil {
		return false, err
	}
	a := v.state.Regs[rS].Get(0)
	var result bytesil.ByteSil
	switch instr.Opcode {
	case OpCONJ:
		result = bytesil.Conj(a)
	case OpINV:
		result = bytesil.Inv(a)
	case OpNEG:
		result = bytesil.Neg(a)
	}
	v.state.Regs[rD] = silstate.Vacuum().WithLayer(0, result)
	v.setFlagsFromByte(result)
	return true, nil
}

func (v *Vsp) execLayerAlgebra(instr Instruction) (bool, error) {
	rD, err := v.reg(instr.Operands[0].Reg)
	if err != nil {
		return false, err
	}
	rA, err := v.reg(instr.Operands[1].Reg)
	if err != nil {
		return false, err
	}
	rB, err := v.reg(instr.Operands[2].Reg)
	if err != nil {
		return false, err
	}
	a, b := v.state.Regs[rA], v.state.Regs[rB]
	var out silstate.SilState
	switch instr.Opcode {
	case OpXORL:
		out = silstate.Xor(a, b)
	case OpANDL:
		out = pointwiseByteOp(a, b, func(x, y byte) byte { return x & y })
	case OpORL:
		out = pointwiseByteOp(a, b, func(x, y byte) byte { return x | y })
	}
	v.state.Regs[rD] = out
	v.setFlagsFromState(out)
	return true, nil
}

func pointwiseByteOp(a, b silstate.SilState, op func(x, y byte) byte) silstate.SilState {
	out := silstate.Vacuum()
	for i := 0; i < silstate.NumLayers; i++ {
		out = out.WithLayer(i, bytesil.FromU8(op(a.Get(i).ToU8(), b.Get(i).ToU8())))
	}
	return out
}

func (v *Vsp) execRotl(instr Instruction) (bool, error) {
	rD, err := v.reg(instr.Operands[0].Reg)
	if err != nil {
		return false, err
	}
	rS, err := v.reg(instr.Operands[1].Reg)
	if err != nil {
		return false, err
	}
	n := int(instr.Operands[2].Imm8) % silstate.NumLayers
	src := v.state.Regs[rS]
	out := silstate.Vacuum()
	for i := 0; i < silstate.NumLayers; i++ {
		out = out.WithLayer((i+n)%silstate.NumLayers, src.Get(i))
	}
	v.state.Regs[rD] = out
	v.setFlagsFromState(out)
	return true, nil
}

func (v *Vsp) execCollapse(instr Instruction) (bool, error) {
	rD, err := v.reg(instr.Operands[0].Reg)
	if err != nil {
		return false, err
	}
	rS, err := v.reg(instr.Operands[1].Reg)
	if err != nil {
		return false, err
	}
	strategy := silstate.CollapseStrategy(instr.Operands[2].Imm8)
	result := v.state.Regs[rS].Collapse(strategy)
	v.state.Regs[rD] = silstate.Vacuum().WithLayer(0, result)
	v.setFlagsFromByte(result)
	v.state.Flags.C = result.IsNull()
	return true, nil
}

func (v *Vsp) execCmp(instr Instruction) (bool, error) {
	rA, err := v.reg(instr.Operands[0].Reg)
	if err != nil {
		return false, err
	}
	rB, err := v.reg(instr.Operands[1].Reg)
	if err != nil {
		return false, err
	}
	na := v.state.Regs[rA].Get(0).Norm()
	nb := v.state.Regs[rB].Get(0).Norm()
	diff := na - nb
	v.state.Flags.Z = diff == 0
	v.state.Flags.N = diff < 0
	v.state.Flags.C = false
	v.state.Flags.O = false
	return true, nil
}

func (v *Vsp) execTest(instr Instruction) (bool, error) {
	rS, err := v.reg(instr.Operands[0].Reg)
	if err != nil {
		return false, err
	}
	mask := instr.Operands[1].Mask16
	s := v.state.Regs[rS]
	var occupied uint16
	for i := 0; i < silstate.NumLayers; i++ {
		if !s.Get(i).IsNull() {
			occupied |= 1 << uint(i)
		}
	}
	v.state.Flags.Z = occupied&mask == 0
	return true, nil
}

func (v *Vsp) execGrad() (bool, error) {
	backend := v.backend.Pick()
	cur := v.state.Regs[CurStateReg]
	v.backend.Defer(func() {
		v.state.Gradient = backend.ComputeGradient(cur, v.cfg.GradMode)
	})
	return true, nil
}
