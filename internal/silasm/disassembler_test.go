package silasm

import "testing"

// reassemble is a small helper mirroring what a real disassembler round
// trip test does: assemble source, disassemble the bytes, and reassemble
// the disassembly.
func reassemble(t *testing.T, src string) Assembled {
	t.Helper()
	asm, err := assemble(t, src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	text, err := Disassemble(asm.Code)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	stmts, p := parseSrc(t, text)
	if len(p.Errors()) != 0 {
		t.Fatalf("parsing disassembly: %v\ntext:\n%s", p.Errors(), text)
	}
	out, err := NewAssembler(stmts).Assemble()
	if err != nil {
		t.Fatalf("reassembling disassembly: %v\ntext:\n%s", err, text)
	}
	return out
}

func TestDisassembleThenReassembleIsByteIdentical(t *testing.T) {
	src := "MOVI R0, 5\nMOVI R1, 10\nMUL R2, R0, R1\nHLT\n"
	asm, err := assemble(t, src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	reasm := reassemble(t, src)
	if string(asm.Code) != string(reasm.Code) {
		t.Fatalf("reassembled code differs:\noriginal: % x\nreassembled: % x", asm.Code, reasm.Code)
	}
}

func TestDisassembleSynthesizesLabelsForJumpTargets(t *testing.T) {
	src := "loop:\nMOVI R0, 1\nJMP loop\n"
	asm, err := assemble(t, src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	text, err := Disassemble(asm.Code)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(text) == 0 {
		t.Fatal("expected non-empty disassembly")
	}
	reasm := reassemble(t, src)
	if string(asm.Code) != string(reasm.Code) {
		t.Fatalf("round trip mismatch:\n% x\n% x", asm.Code, reasm.Code)
	}
}

func TestDisassembleRejectsInvalidOpcode(t *testing.T) {
	if _, err := Disassemble([]byte{0xFE}); err == nil {
		t.Fatal("expected an error decoding an invalid opcode")
	}
}

func TestDisassembleRoundTripsByteAlgebraLogicAndBranchOpcodes(t *testing.T) {
	src := "" +
		".const FIVE, 5\n" +
		"MOVI R0, 5\n" +
		"MOVI R1, 10\n" +
		"ADD R2, R0, R1\n" +
		"SUB R2, R0, R1\n" +
		"MUL R2, R0, R1\n" +
		"DIV R2, R0, R1\n" +
		"POW R2, R0, 2\n" +
		"ROOT R2, R0, 2\n" +
		"CONJ R3, R0\n" +
		"INV R3, R0\n" +
		"NEG R3, R0\n" +
		"XORL R4, R0, R1\n" +
		"ANDL R4, R0, R1\n" +
		"ORL R4, R0, R1\n" +
		"CMP R0, R1\n" +
		"JZ end\n" +
		"JNZ end\n" +
		"end:\n" +
		"HLT\n"
	asm, err := assemble(t, src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	reasm := reassemble(t, src)
	if string(asm.Code) != string(reasm.Code) {
		t.Fatalf("round trip mismatch:\n% x\n% x", asm.Code, reasm.Code)
	}
}
