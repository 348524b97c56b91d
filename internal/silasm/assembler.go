package silasm

import (
	"fmt"

	"github.com/silvanoneto/sil-core/internal/vsp"
)

// AssembleError wraps one diagnostic produced during assembly, carrying the
// offending line so multiple errors from one source file can be reported
// together (spec.md §4.4 "unknown mnemonic, unresolved label, duplicate
// label, operand arity mismatch — each carries line/column").
type AssembleError struct {
	Line, Column int
	Detail       string
}

func (e *AssembleError) Error() string {
	return fmtPos(e.Line, e.Column, "assemble: "+e.Detail)
}

type section int

const (
	sectionCode section = iota
	sectionData
)

type symbol struct {
	section section
	offset  uint32
}

// DebugRecord maps one code address back to its originating (line, col,
// symbol) source location, emitted only when the `.debug` directive is
// present (spec.md §3 "optional debug table"; SPEC_FULL.md §3's debug table
// maps code offsets to "(line, col, symbol) triples"). Symbol is the
// nearest preceding label, i.e. the function/transform (or other label)
// the instruction lexically belongs to.
type DebugRecord struct {
	Addr   uint32
	Line   int
	Column int
	Symbol string
}

// Assembled is the result of a successful two-pass assembly: code and data
// byte streams plus, if `.debug` was seen, a source line table.
type Assembled struct {
	Code  []byte
	Data  []byte
	Mode  vsp.Mode
	Debug []DebugRecord
}

// Assembler performs the two-pass assembly spec.md §4.4 describes: pass 1
// measures instruction lengths and records label addresses (including
// labels defined after their first use); pass 2 emits bytes, resolving
// every label and `.const` reference. Grounded on the teacher's
// assembler/ie64asm.go two-pass label-resolution shape, generalized from
// IE64's fixed 8-byte instructions to this ISA's variable-length encoding.
type Assembler struct {
	stmts []Stmt

	mode   vsp.Mode
	consts map[string]byte
	labels map[string]symbol

	errors []error
}

// NewAssembler builds an Assembler over an already-parsed statement list.
func NewAssembler(stmts []Stmt) *Assembler {
	return &Assembler{
		stmts:  stmts,
		mode:   vsp.SIL128,
		consts: make(map[string]byte),
		labels: make(map[string]symbol),
	}
}

// Errors returns every diagnostic accumulated during Assemble.
func (a *Assembler) Errors() []error { return a.errors }

// Assemble runs both passes, returning the emitted bytes. Partial output is
// still returned alongside errors so callers (e.g. a disassembler round
// trip test) can inspect what pass 2 managed to produce.
func (a *Assembler) Assemble() (Assembled, error) {
	if err := a.pass1(); err != nil {
		return Assembled{}, err
	}
	code, data, debug := a.pass2()
	if len(a.errors) > 0 {
		return Assembled{Code: code, Data: data, Mode: a.mode, Debug: debug}, a.errors[0]
	}
	return Assembled{Code: code, Data: data, Mode: a.mode, Debug: debug}, nil
}

func (a *Assembler) pass1() error {
	sec := sectionCode
	var codeOff, dataOff uint32
	for _, st := range a.stmts {
		switch st.Kind {
		case StmtLabel:
			if _, dup := a.labels[st.Label]; dup {
				a.errors = append(a.errors, &AssembleError{Line: st.Line, Detail: "duplicate label " + st.Label})
				continue
			}
			off := codeOff
			if sec == sectionData {
				off = dataOff
			}
			a.labels[st.Label] = symbol{section: sec, offset: off}
		case StmtDirective:
			switch st.Directive {
			case "mode":
				if len(st.DirectiveArgs) == 1 && st.DirectiveArgs[0].Label == "sil64" {
					a.mode = vsp.SIL64
				} else {
					a.mode = vsp.SIL128
				}
			case "data":
				sec = sectionData
			case "const":
				if len(st.DirectiveArgs) != 2 || st.DirectiveArgs[0].Kind != OperandLabelRef {
					a.errors = append(a.errors, &AssembleError{Line: st.Line, Detail: ".const requires a name and a value"})
					continue
				}
				a.consts[st.DirectiveArgs[0].Label] = byte(st.DirectiveArgs[1].Imm)
			case "align":
				if len(st.DirectiveArgs) != 1 {
					a.errors = append(a.errors, &AssembleError{Line: st.Line, Detail: ".align requires one argument"})
					continue
				}
				n := uint32(st.DirectiveArgs[0].Imm)
				if n == 0 {
					continue
				}
				if sec == sectionCode {
					codeOff = alignUp(codeOff, n)
				} else {
					dataOff = alignUp(dataOff, n)
				}
			case "debug":
				// handled in pass2 purely as a flag; no size impact here.
			default:
				a.errors = append(a.errors, &AssembleError{Line: st.Line, Detail: "unknown directive ." + st.Directive})
			}
		case StmtInstr:
			if st.Mnemonic == "MARK" {
				if err := a.markLabel(st, sec, codeOff, dataOff); err != nil {
					a.errors = append(a.errors, err)
				}
				continue
			}
			opcode, ok := vsp.MnemonicToOpcode[st.Mnemonic]
			if !ok {
				a.errors = append(a.errors, &AssembleError{Line: st.Line, Detail: "unknown mnemonic " + st.Mnemonic})
				continue
			}
			n, _ := vsp.InstrLen(opcode)
			if sec == sectionCode {
				codeOff += uint32(n)
			} else {
				dataOff += uint32(n)
			}
		}
	}
	return nil
}

// markLabel implements the MARK pseudo-instruction (spec.md §4.3 control
// group: "MARK label, no-op at run time, consumed by assembler"). Unlike a
// real opcode it occupies zero bytes: it is exactly equivalent to a
// `label:` declaration, just spelled as an instruction so codegen/hand-
// written assembly can mark a position inline in a statement list instead
// of as a separate label statement.
func (a *Assembler) markLabel(st Stmt, sec section, codeOff, dataOff uint32) error {
	if len(st.Operands) != 1 || st.Operands[0].Kind != OperandLabelRef {
		return &AssembleError{Line: st.Line, Detail: "MARK requires a single label operand"}
	}
	name := st.Operands[0].Label
	if _, dup := a.labels[name]; dup {
		return &AssembleError{Line: st.Line, Detail: "duplicate label " + name}
	}
	off := codeOff
	if sec == sectionData {
		off = dataOff
	}
	a.labels[name] = symbol{section: sec, offset: off}
	return nil
}

func alignUp(off, n uint32) uint32 {
	if off%n == 0 {
		return off
	}
	return off + (n - off%n)
}

func (a *Assembler) pass2() ([]byte, []byte, []DebugRecord) {
	sec := sectionCode
	var code, data []byte
	var debug []DebugRecord
	debugOn := false
	curSymbol := ""

	for _, st := range a.stmts {
		switch st.Kind {
		case StmtLabel:
			// addresses already recorded in pass 1
			curSymbol = st.Label
		case StmtDirective:
			switch st.Directive {
			case "data":
				sec = sectionData
			case "debug":
				debugOn = true
			case "align":
				if len(st.DirectiveArgs) != 1 {
					continue
				}
				n := uint32(st.DirectiveArgs[0].Imm)
				if n == 0 {
					continue
				}
				if sec == sectionCode {
					for uint32(len(code))%n != 0 {
						code = append(code, 0)
					}
				} else {
					for uint32(len(data))%n != 0 {
						data = append(data, 0)
					}
				}
			}
		case StmtInstr:
			if st.Mnemonic == "MARK" {
				continue // label already recorded in pass 1; emits nothing
			}
			opcode, ok := vsp.MnemonicToOpcode[st.Mnemonic]
			if !ok {
				continue // already reported in pass 1
			}
			spec := vsp.ISA[opcode]
			if len(spec.Operands) != len(st.Operands) {
				a.errors = append(a.errors, &AssembleError{Line: st.Line, Detail: fmt.Sprintf("%s expects %d operands, got %d", st.Mnemonic, len(spec.Operands), len(st.Operands))})
				continue
			}
			operands := make([]vsp.Operand, len(spec.Operands))
			ok = true
			for i, kind := range spec.Operands {
				op, err := a.resolveOperand(kind, st.Operands[i])
				if err != nil {
					a.errors = append(a.errors, err)
					ok = false
					continue
				}
				operands[i] = op
			}
			if !ok {
				continue
			}
			if debugOn && sec == sectionCode {
				debug = append(debug, DebugRecord{Addr: uint32(len(code)), Line: st.Line, Column: st.Column, Symbol: curSymbol})
			}
			if sec == sectionCode {
				code = vsp.Encode(code, opcode, operands)
			} else {
				data = vsp.Encode(data, opcode, operands)
			}
		}
	}
	return code, data, debug
}

func (a *Assembler) resolveOperand(kind vsp.OperandKind, syn OperandSyntax) (vsp.Operand, error) {
	switch kind {
	case vsp.KindReg:
		if syn.Kind != OperandReg {
			return vsp.Operand{}, &AssembleError{Line: syn.Line, Column: syn.Col, Detail: "expected register operand"}
		}
		return vsp.Operand{Kind: kind, Reg: byte(syn.Reg)}, nil
	case vsp.KindImm8, vsp.KindLayer4:
		v, err := a.resolveImmediate(syn)
		if err != nil {
			return vsp.Operand{}, err
		}
		if kind == vsp.KindLayer4 {
			return vsp.Operand{Kind: kind, Layer: byte(v)}, nil
		}
		return vsp.Operand{Kind: kind, Imm8: byte(v)}, nil
	case vsp.KindAddr16, vsp.KindOffset16:
		addr, err := a.resolveAddress(syn)
		if err != nil {
			return vsp.Operand{}, err
		}
		return vsp.Operand{Kind: kind, Addr16: addr}, nil
	case vsp.KindMask16:
		v, err := a.resolveImmediate(syn)
		if err != nil {
			return vsp.Operand{}, err
		}
		return vsp.Operand{Kind: kind, Mask16: uint16(v)}, nil
	default:
		return vsp.Operand{}, &AssembleError{Line: syn.Line, Column: syn.Col, Detail: "unsupported operand kind"}
	}
}

func (a *Assembler) resolveImmediate(syn OperandSyntax) (int64, error) {
	switch syn.Kind {
	case OperandImm:
		return syn.Imm, nil
	case OperandLabelRef:
		if b, ok := a.consts[syn.Label]; ok {
			return int64(b), nil
		}
		return 0, &AssembleError{Line: syn.Line, Column: syn.Col, Detail: "undefined constant " + syn.Label}
	default:
		return 0, &AssembleError{Line: syn.Line, Column: syn.Col, Detail: "expected immediate operand"}
	}
}

func (a *Assembler) resolveAddress(syn OperandSyntax) (uint16, error) {
	switch syn.Kind {
	case OperandImm:
		return uint16(syn.Imm), nil
	case OperandLabelRef:
		sym, ok := a.labels[syn.Label]
		if !ok {
			return 0, &AssembleError{Line: syn.Line, Column: syn.Col, Detail: "unresolved label " + syn.Label}
		}
		return uint16(sym.offset), nil
	default:
		return 0, &AssembleError{Line: syn.Line, Column: syn.Col, Detail: "expected address or label"}
	}
}
