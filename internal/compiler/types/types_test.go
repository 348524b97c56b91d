package types

import (
	"testing"

	"github.com/silvanoneto/sil-core/internal/compiler/parser"
)

func checkOK(t *testing.T, src string) *Result {
	t.Helper()
	prog, perrs := parser.Parse(src)
	if perrs != nil && !perrs.Empty() {
		t.Fatalf("unexpected parse errors: %v", perrs.All())
	}
	res, terrs := Check(prog)
	if terrs != nil && !terrs.Empty() {
		t.Fatalf("unexpected type errors for %q: %v", src, terrs.All())
	}
	return res
}

func TestCheckInfersIntArithmetic(t *testing.T) {
	res := checkOK(t, `fn main() { let x = 1 + 2; return x; }`)
	fn, ok := res.Funcs["main"]
	if !ok {
		t.Fatal("expected a signature for main")
	}
	if fn.Ret.Kind != KInt {
		t.Fatalf("main return kind = %v, want KInt", fn.Ret.Kind)
	}
}

func TestCheckResolvesStateLiteralKind(t *testing.T) {
	prog, perrs := parser.Parse(`fn main() { let s = State { L0: 1 }; return s; }`)
	if perrs != nil && !perrs.Empty() {
		t.Fatalf("unexpected parse errors: %v", perrs.All())
	}
	res, terrs := Check(prog)
	if terrs != nil && !terrs.Empty() {
		t.Fatalf("unexpected type errors: %v", terrs.All())
	}
	if res.Funcs["main"].Ret.Kind != KState {
		t.Fatalf("main return kind = %v, want KState", res.Funcs["main"].Ret.Kind)
	}
}

func TestCheckReportsUndefinedVariable(t *testing.T) {
	prog, _ := parser.Parse(`fn main() { return undefined_name; }`)
	_, terrs := Check(prog)
	if terrs == nil || terrs.Empty() {
		t.Fatal("expected a type error for an undefined variable")
	}
}

func TestCheckReportsArgumentCountMismatch(t *testing.T) {
	prog, _ := parser.Parse(`fn add(a, b) { return a + b; } fn main() { return add(1); }`)
	_, terrs := Check(prog)
	if terrs == nil || terrs.Empty() {
		t.Fatal("expected a type error for an argument count mismatch")
	}
}

func TestCheckAcceptsFeedbackAndEmergeOnState(t *testing.T) {
	checkOK(t, `fn main() { let s = State { L0: 1 }; let r = emerge s; feedback s; return r; }`)
}
