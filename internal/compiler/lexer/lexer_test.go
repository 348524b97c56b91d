package lexer

import "testing"

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func lastNonEOF(toks []Token) []Token {
	if len(toks) > 0 && toks[len(toks)-1].Kind == EOF {
		return toks[:len(toks)-1]
	}
	return toks
}

func TestTokenizeKeywordsIdentsAndPunctuation(t *testing.T) {
	lx := New(`fn add(a, b) { return a + b; }`, nil)
	toks := lastNonEOF(lx.Tokenize())
	if !lx.Errors().Empty() {
		t.Fatalf("unexpected lex errors: %v", lx.Errors().All())
	}
	want := []Kind{
		Keyword, Ident, LParen, Ident, Comma, Ident, RParen, LBrace,
		Keyword, Ident, Op, Ident, Semi, RBrace,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d: %v", len(got), len(want), toks)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d kind = %s, want %s (token: %v)", i, got[i], want[i], toks[i])
		}
	}
}

func TestTokenizeIntAndFloatLiterals(t *testing.T) {
	lx := New("42 3.5", nil)
	toks := lastNonEOF(lx.Tokenize())
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %v", len(toks), toks)
	}
	if toks[0].Kind != IntLit || toks[0].Int != 42 {
		t.Fatalf("token 0 = %v, want IntLit(42)", toks[0])
	}
	if toks[1].Kind != FloatLit || toks[1].Float != 3.5 {
		t.Fatalf("token 1 = %v, want FloatLit(3.5)", toks[1])
	}
}

func TestTokenizeLayerLiteral(t *testing.T) {
	lx := New("L0 LF", nil)
	toks := lastNonEOF(lx.Tokenize())
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %v", len(toks), toks)
	}
	if toks[0].Kind != Layer || toks[0].Layer != 0 {
		t.Fatalf("token 0 = %v, want Layer(0)", toks[0])
	}
	if toks[1].Kind != Layer || toks[1].Layer != 15 {
		t.Fatalf("token 1 = %v, want Layer(15)", toks[1])
	}
}

func TestTokenizeBoolLiterals(t *testing.T) {
	lx := New("true false", nil)
	toks := lastNonEOF(lx.Tokenize())
	if len(toks) != 2 || toks[0].Kind != BoolLit || toks[1].Kind != BoolLit {
		t.Fatalf("expected 2 BoolLit tokens, got %v", toks)
	}
	if toks[0].Int == 0 {
		t.Fatal("expected true to encode as a nonzero Int")
	}
	if toks[1].Int != 0 {
		t.Fatal("expected false to encode as a zero Int")
	}
}

func TestTokenizeStringLiteral(t *testing.T) {
	lx := New(`"hello"`, nil)
	toks := lastNonEOF(lx.Tokenize())
	if len(toks) != 1 || toks[0].Kind != StringLit || toks[0].Text != "hello" {
		t.Fatalf("expected a single StringLit(hello), got %v", toks)
	}
}

func TestTokenizeRecoversFromIllegalCharacter(t *testing.T) {
	lx := New("let x = 1 ` let y = 2;", nil)
	toks := lx.Tokenize()
	if lx.Errors().Empty() {
		t.Fatal("expected a lex error for the illegal backtick character")
	}
	// lexing should still continue past the bad character rather than abort
	foundY := false
	for _, tok := range toks {
		if tok.Kind == Ident && tok.Text == "y" {
			foundY = true
		}
	}
	if !foundY {
		t.Fatalf("expected tokenizing to recover and keep scanning, got %v", toks)
	}
}

func TestTokenizeEndsWithEOF(t *testing.T) {
	lx := New("", nil)
	toks := lx.Tokenize()
	if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
		t.Fatalf("expected a trailing EOF token, got %v", toks)
	}
}
