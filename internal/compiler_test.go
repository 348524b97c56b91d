package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/silvanoneto/sil-core/internal/compiler/jsil"
	"github.com/silvanoneto/sil-core/internal/silasm"
)

const sampleSrc = `fn main() { let x = 1 + 2; return x; }`

func TestParseReturnsProgramWithNoErrors(t *testing.T) {
	prog, bag := Parse(sampleSrc)
	if prog == nil {
		t.Fatal("expected a non-nil program")
	}
	if bag != nil && !bag.Empty() {
		t.Fatalf("unexpected parse errors: %v", bag.All())
	}
}

func TestCompileProducesBytecodeProgram(t *testing.T) {
	compiled, bag := Compile(sampleSrc)
	if bag != nil && !bag.Empty() {
		t.Fatalf("unexpected compile errors: %v", bag.All())
	}
	if compiled.Bytecode == nil || len(compiled.Bytecode.Ops) == 0 {
		t.Fatal("expected a non-empty bytecode program")
	}
}

func TestCompileMergesErrorsAcrossPhases(t *testing.T) {
	_, bag := Compile("fn main() { let x = ; }")
	if bag == nil || bag.Empty() {
		t.Fatal("expected parse errors for malformed source")
	}
}

func TestCompileToBytecodeRoundTripsThroughSilasmLoad(t *testing.T) {
	buf, bag := CompileToBytecode(sampleSrc)
	if bag != nil && !bag.Empty() {
		t.Fatalf("unexpected errors: %v", bag.All())
	}
	container, err := silasm.Load(buf)
	if err != nil {
		t.Fatalf("silasm.Load: %v", err)
	}
	if len(container.Code) == 0 {
		t.Fatal("expected non-empty code section")
	}
}

func TestCompileToContainerProducesValidJSONL(t *testing.T) {
	buf, stats, bag := CompileToContainer(sampleSrc, jsil.ModeNone, 1000)
	if bag != nil && !bag.Empty() {
		t.Fatalf("unexpected errors: %v", bag.All())
	}
	if stats.RecordCount < 3 {
		t.Fatalf("expected record_count >= 3, got %d", stats.RecordCount)
	}
	records, _, err := jsil.Read(buf)
	if err != nil {
		t.Fatalf("jsil.Read: %v", err)
	}
	if len(records) == 0 || records[0].Kind != jsil.KindMetadata {
		t.Fatalf("expected a leading Metadata record, got %+v", records)
	}
	if records[0].Metadata.Mode != "Sil128" {
		t.Fatalf("Metadata.Mode = %q, want Sil128", records[0].Metadata.Mode)
	}
}

func TestCompileToBytecodeCachedNoDirCompilesEveryTime(t *testing.T) {
	buf, bag, hit := CompileToBytecodeCached(sampleSrc, "")
	if bag != nil && !bag.Empty() {
		t.Fatalf("unexpected errors: %v", bag.All())
	}
	if hit {
		t.Fatal("expected no cache hit when dir is empty")
	}
	if len(buf) == 0 {
		t.Fatal("expected non-empty bytecode")
	}
}

func TestCompileToBytecodeCachedHitsOnSecondCall(t *testing.T) {
	dir := t.TempDir()

	first, bag, hit := CompileToBytecodeCached(sampleSrc, dir)
	if bag != nil && !bag.Empty() {
		t.Fatalf("unexpected errors: %v", bag.All())
	}
	if hit {
		t.Fatal("expected a cache miss on the first call")
	}

	second, bag2, hit2 := CompileToBytecodeCached(sampleSrc, dir)
	if bag2 != nil && !bag2.Empty() {
		t.Fatalf("unexpected errors: %v", bag2.All())
	}
	if !hit2 {
		t.Fatal("expected a cache hit on the second call")
	}
	if string(first) != string(second) {
		t.Fatal("cached bytecode should be identical to the original compile")
	}
}

func TestCompileToBytecodeCachedRecompilesOnCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, cacheKey(sampleSrc)+".silc")
	if err := os.WriteFile(path, []byte("not a valid container"), 0o644); err != nil {
		t.Fatalf("seeding corrupt cache entry: %v", err)
	}

	buf, bag, hit := CompileToBytecodeCached(sampleSrc, dir)
	if bag != nil && !bag.Empty() {
		t.Fatalf("unexpected errors: %v", bag.All())
	}
	if hit {
		t.Fatal("a corrupt cache entry must not be reported as a hit")
	}
	if _, err := silasm.Load(buf); err != nil {
		t.Fatalf("recompiled bytecode should still be valid: %v", err)
	}
}
