package vsp

import "encoding/binary"

// Operand is a decoded instruction operand. Only the field matching Kind is
// meaningful; this single-struct shape (rather than a Kind-keyed union
// type) keeps the decoder allocation-free, mirroring the teacher's flat
// byte1/byte2/byte3/imm32 decode in cpu_ie64.go's Execute().
type Operand struct {
	Kind   OperandKind
	Reg    byte
	Imm8   byte
	Addr16 uint16
	Layer  byte
	Mask16 uint16
}

// Instruction is one decoded instruction: its opcode, operands, and total
// encoded length in bytes.
type Instruction struct {
	Opcode   byte
	Mnemonic string
	Operands []Operand
	Len      int
}

// Decode reads one instruction from code at offset pc. It is the single
// decoding routine shared (via the ISA table) by the VSP executor and
// internal/silasm's disassembler, per spec.md §4.4's "encoding table is
// fixed and shared by assembler and decoder".
func Decode(code []byte, pc uint32) (Instruction, error) {
	if int(pc) >= len(code) {
		return Instruction{}, newRuntimeErr(ErrOutOfBounds, 0, "decode at 0x%04X (size=%d)", pc, len(code))
	}
	opcode := code[pc]
	spec, ok := ISA[opcode]
	if !ok {
		return Instruction{}, newRuntimeErr(ErrInvalidOpcode, 0, "opcode 0x%02X at 0x%04X", opcode, pc)
	}

	instr := Instruction{Opcode: opcode, Mnemonic: spec.Mnemonic}
	off := pc + 1
	for _, kind := range spec.Operands {
		size := kind.size()
		if int(off)+size > len(code) {
			return Instruction{}, newRuntimeErr(ErrOutOfBounds, 0, "truncated operand for %s at 0x%04X", spec.Mnemonic, pc)
		}
		var op Operand
		op.Kind = kind
		switch kind {
		case KindReg:
			op.Reg = code[off] & 0x0F
		case KindImm8:
			op.Imm8 = code[off]
		case KindLayer4:
			op.Layer = code[off] & 0x0F
		case KindAddr16:
			op.Addr16 = binary.LittleEndian.Uint16(code[off:])
		case KindOffset16:
			op.Addr16 = binary.LittleEndian.Uint16(code[off:])
		case KindMask16:
			op.Mask16 = binary.LittleEndian.Uint16(code[off:])
		}
		instr.Operands = append(instr.Operands, op)
		off += uint32(size)
	}
	instr.Len = int(off - pc)
	return instr, nil
}

// Encode appends the byte encoding of (opcode, operands) to dst, returning
// the extended slice. Used by internal/silasm's assembler.
func Encode(dst []byte, opcode byte, operands []Operand) []byte {
	dst = append(dst, opcode)
	for _, op := range operands {
		switch op.Kind {
		case KindReg:
			dst = append(dst, op.Reg&0x0F)
		case KindImm8:
			dst = append(dst, op.Imm8)
		case KindLayer4:
			dst = append(dst, op.Layer&0x0F)
		case KindAddr16, KindOffset16:
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], op.Addr16)
			dst = append(dst, b[:]...)
		case KindMask16:
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], op.Mask16)
			dst = append(dst, b[:]...)
		}
	}
	return dst
}
