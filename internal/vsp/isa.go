package vsp

// Opcodes. Grouped by range the way the teacher groups IE64 opcodes
// (0x0x control, 0x1x data movement, 0x2x memory, ...;
// see IntuitionEngine cpu_ie64.go's OP_* block).
const (
	// Control
	OpNOP  = 0x00
	OpHLT  = 0x01
	OpJMP  = 0x02
	OpJZ   = 0x03
	OpJNZ  = 0x04
	OpJC   = 0x05
	OpJNC  = 0x06
	OpCALL = 0x07
	OpRET  = 0x08
	OpJN   = 0x09 // jump if N flag set (CMP found a < b)
	OpJNN  = 0x0A // jump if N flag clear

	// Data movement
	OpMOV   = 0x10
	OpMOVI  = 0x11
	OpLOAD  = 0x12
	OpSTORE = 0x13
	OpGETL  = 0x14 // extract one layer of a state register into a byte register
	OpSETL  = 0x15 // write a byte register into one layer of a state register

	// State I/O
	OpLSTATE = 0x20
	OpSSTATE = 0x21

	// Byte algebra
	OpADD  = 0x30
	OpSUB  = 0x31
	OpMUL  = 0x32
	OpDIV  = 0x33
	OpPOW  = 0x34
	OpROOT = 0x35
	OpCONJ = 0x36
	OpINV  = 0x37
	OpNEG  = 0x38

	// Layer algebra
	OpXORL    = 0x40
	OpANDL    = 0x41
	OpORL     = 0x42
	OpROTL    = 0x43
	OpFOLD    = 0x44
	OpPROJECT = 0x45

	// Comparison and flags
	OpCMP  = 0x50
	OpTEST = 0x51

	// Meta
	OpGRAD     = 0x60
	OpEMERGE   = 0x61
	OpCOLLAPSE = 0x62

	// I/O sync
	OpFENCE = 0x70
)

// OperandKind enumerates the operand shapes in spec.md §4.3: register
// index (4 bits), 8-bit immediate, 16-bit signed offset, 16-bit unsigned
// address, layer index (4 bits). Each is encoded in a whole byte (or two,
// for the 16-bit kinds) for decoder simplicity; the low bits carry the
// spec-mandated width.
type OperandKind int

const (
	KindReg OperandKind = iota
	KindImm8
	KindOffset16
	KindAddr16
	KindLayer4
	KindMask16
)

func (k OperandKind) size() int {
	switch k {
	case KindReg, KindImm8, KindLayer4:
		return 1
	case KindOffset16, KindAddr16, KindMask16:
		return 2
	default:
		return 0
	}
}

// instrSpec describes one opcode's mnemonic and operand shape. Shared by
// the decoder (internal/vsp), the assembler and disassembler
// (internal/silasm), and the compiler's assembly-mode codegen.
type instrSpec struct {
	Mnemonic string
	Operands []OperandKind
}

// ISA is the fixed opcode table, the single source of truth for encoding
// and decoding, exactly as spec.md §4.4 requires ("the encoding table is
// fixed and shared by assembler and decoder").
var ISA = map[byte]instrSpec{
	OpNOP:  {"NOP", nil},
	OpHLT:  {"HLT", nil},
	OpJMP:  {"JMP", []OperandKind{KindAddr16}},
	OpJZ:   {"JZ", []OperandKind{KindAddr16}},
	OpJNZ:  {"JNZ", []OperandKind{KindAddr16}},
	OpJC:   {"JC", []OperandKind{KindAddr16}},
	OpJNC:  {"JNC", []OperandKind{KindAddr16}},
	OpCALL: {"CALL", []OperandKind{KindAddr16}},
	OpRET:  {"RET", nil},
	OpJN:   {"JN", []OperandKind{KindAddr16}},
	OpJNN:  {"JNN", []OperandKind{KindAddr16}},

	OpMOV:   {"MOV", []OperandKind{KindReg, KindReg}},
	OpMOVI:  {"MOVI", []OperandKind{KindReg, KindImm8}},
	OpLOAD:  {"LOAD", []OperandKind{KindReg, KindAddr16}},
	OpSTORE: {"STORE", []OperandKind{KindReg, KindAddr16}},
	OpGETL:  {"GETL", []OperandKind{KindReg, KindReg, KindLayer4}},
	OpSETL:  {"SETL", []OperandKind{KindReg, KindReg, KindLayer4}},

	OpLSTATE: {"LSTATE", []OperandKind{KindAddr16}},
	OpSSTATE: {"SSTATE", []OperandKind{KindAddr16}},

	OpADD:  {"ADD", []OperandKind{KindReg, KindReg, KindReg}},
	OpSUB:  {"SUB", []OperandKind{KindReg, KindReg, KindReg}},
	OpMUL:  {"MUL", []OperandKind{KindReg, KindReg, KindReg}},
	OpDIV:  {"DIV", []OperandKind{KindReg, KindReg, KindReg}},
	OpPOW:  {"POW", []OperandKind{KindReg, KindReg, KindImm8}},
	OpROOT: {"ROOT", []OperandKind{KindReg, KindReg, KindImm8}},
	OpCONJ: {"CONJ", []OperandKind{KindReg, KindReg}},
	OpINV:  {"INV", []OperandKind{KindReg, KindReg}},
	OpNEG:  {"NEG", []OperandKind{KindReg, KindReg}},

	OpXORL:    {"XORL", []OperandKind{KindReg, KindReg, KindReg}},
	OpANDL:    {"ANDL", []OperandKind{KindReg, KindReg, KindReg}},
	OpORL:     {"ORL", []OperandKind{KindReg, KindReg, KindReg}},
	OpROTL:    {"ROTL", []OperandKind{KindReg, KindReg, KindImm8}},
	OpFOLD:    {"FOLD", []OperandKind{KindReg, KindReg, KindImm8}},
	OpPROJECT: {"PROJECT", []OperandKind{KindReg, KindReg, KindMask16}},

	OpCMP:  {"CMP", []OperandKind{KindReg, KindReg}},
	OpTEST: {"TEST", []OperandKind{KindReg, KindMask16}},

	OpGRAD:     {"GRAD", nil},
	OpEMERGE:   {"EMERGE", []OperandKind{KindReg}},
	OpCOLLAPSE: {"COLLAPSE", []OperandKind{KindReg, KindReg, KindImm8}},

	OpFENCE: {"FENCE", nil},
}

// MnemonicToOpcode is built from ISA for the assembler's lexer/parser.
var MnemonicToOpcode = func() map[string]byte {
	m := make(map[string]byte, len(ISA))
	for op, spec := range ISA {
		m[spec.Mnemonic] = op
	}
	return m
}()

// InstrLen returns the total encoded length (opcode byte + operands) for
// the instruction starting with the given opcode.
func InstrLen(opcode byte) (int, bool) {
	spec, ok := ISA[opcode]
	if !ok {
		return 0, false
	}
	n := 1
	for _, k := range spec.Operands {
		n += k.size()
	}
	return n, true
}
