package silasm

import "testing"

func parseSrc(t *testing.T, src string) ([]Stmt, *Parser) {
	t.Helper()
	l := NewLexer(src)
	toks := l.Tokenize()
	p := NewParser(toks)
	stmts := p.Parse()
	return stmts, p
}

func TestParserParsesLabelDirectiveAndInstruction(t *testing.T) {
	stmts, p := parseSrc(t, "loop:\n.mode sil64\nMOVI R0, 5\n")
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
	if len(stmts) != 3 {
		t.Fatalf("want 3 statements, got %d: %+v", len(stmts), stmts)
	}
	if stmts[0].Kind != StmtLabel || stmts[0].Label != "loop" {
		t.Fatalf("stmt 0 = %+v, want label loop", stmts[0])
	}
	if stmts[1].Kind != StmtDirective || stmts[1].Directive != "mode" {
		t.Fatalf("stmt 1 = %+v, want .mode directive", stmts[1])
	}
	if stmts[2].Kind != StmtInstr || stmts[2].Mnemonic != "MOVI" {
		t.Fatalf("stmt 2 = %+v, want MOVI", stmts[2])
	}
	if len(stmts[2].Operands) != 2 {
		t.Fatalf("MOVI operands = %+v, want 2", stmts[2].Operands)
	}
}

func TestParserUppercasesMnemonicCaseInsensitively(t *testing.T) {
	stmts, p := parseSrc(t, "movi r0, 5\nhlt\n")
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
	if stmts[0].Mnemonic != "MOVI" {
		t.Fatalf("mnemonic = %q, want MOVI", stmts[0].Mnemonic)
	}
	if stmts[1].Mnemonic != "HLT" {
		t.Fatalf("mnemonic = %q, want HLT", stmts[1].Mnemonic)
	}
}

func TestParserAccumulatesMultipleErrorsWithoutExceedingSourceErrorCount(t *testing.T) {
	// Two malformed lines (bad token where an operand/mnemonic is expected).
	src := ", bad1\n, bad2\nNOP\n"
	stmts, p := parseSrc(t, src)
	if len(p.Errors()) == 0 {
		t.Fatal("expected parse errors")
	}
	if len(p.Errors()) > 2 {
		t.Fatalf("got %d errors, want at most 2 (one per malformed line): %v", len(p.Errors()), p.Errors())
	}
	// recovery must still yield the trailing NOP statement.
	found := false
	for _, st := range stmts {
		if st.Kind == StmtInstr && st.Mnemonic == "NOP" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected NOP to be parsed after recovery, got %+v", stmts)
	}
}

func TestParserMarkInstructionTakesLabelOperand(t *testing.T) {
	stmts, p := parseSrc(t, "MARK done\nHLT\n")
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
	if stmts[0].Mnemonic != "MARK" || len(stmts[0].Operands) != 1 {
		t.Fatalf("stmt 0 = %+v, want MARK with one operand", stmts[0])
	}
	if stmts[0].Operands[0].Kind != OperandLabelRef || stmts[0].Operands[0].Label != "done" {
		t.Fatalf("MARK operand = %+v, want label ref \"done\"", stmts[0].Operands[0])
	}
}
