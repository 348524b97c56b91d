// Package compiler is the root façade that wires lex -> parse -> type-check -> codegen
// into the four entry points spec.md §6 names for embedding the compiler as
// a library: Parse, Compile, CompileToBytecode for the .silc container, and
// CompileToContainer for the jsil JSONL record mode. It also supplies
// CompileToBytecodeCached, the AOT bytecode cache SPEC_FULL.md §3 adds on
// top (content-addressed by source + compiler version, under
// SIL_CACHE_DIR).
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/silvanoneto/sil-core/internal/compiler/ast"
	"github.com/silvanoneto/sil-core/internal/compiler/codegen"
	"github.com/silvanoneto/sil-core/internal/compiler/diag"
	"github.com/silvanoneto/sil-core/internal/compiler/jsil"
	"github.com/silvanoneto/sil-core/internal/compiler/parser"
	"github.com/silvanoneto/sil-core/internal/compiler/types"
	"github.com/silvanoneto/sil-core/internal/silasm"
)

// CompilerVersion is stamped into the AOT cache key and into JSONL Metadata
// records (spec.md §9 end-to-end scenario E1: Metadata.version == "1.0").
const CompilerVersion = "1.0"

// Parse runs the lexer and parser over src, returning the AST and any
// diagnostics. A non-empty bag does not necessarily mean prog is nil — the
// parser recovers to statement boundaries and keeps going (spec.md §7).
func Parse(src string) (*ast.Program, *diag.Bag) {
	return parser.Parse(src)
}

// Compiled bundles every intermediate artifact one compilation produces, so
// a caller that wants more than bytecode (e.g. the CLI's `compile --asm`)
// doesn't need to re-run the front end.
type Compiled struct {
	Program  *ast.Program
	Types    *types.Result
	Bytecode *codegen.Program
}

// Compile runs the full front end (parse, type-check, codegen) over src and
// returns every stage's output plus the accumulated diagnostics. Diagnostics
// from every phase are merged into one bag in phase order.
func Compile(src string) (*Compiled, *diag.Bag) {
	bag := diag.NewBag(0)

	prog, parseErrs := Parse(src)
	mergeBag(bag, parseErrs)
	if prog == nil {
		return nil, bag
	}

	checked, typeErrs := types.Check(prog)
	mergeBag(bag, typeErrs)

	gen, genErrs := codegen.Generate(prog, checked)
	mergeBag(bag, genErrs)

	return &Compiled{Program: prog, Types: checked, Bytecode: gen}, bag
}

func mergeBag(dst, src *diag.Bag) {
	if src == nil {
		return
	}
	for _, e := range src.All() {
		dst.Add(e)
	}
}

// CompileToBytecode compiles src and assembles the result into a .silc
// bytecode container (spec.md §6).
func CompileToBytecode(src string) ([]byte, *diag.Bag) {
	compiled, bag := Compile(src)
	if compiled == nil || bag.Len() > 0 {
		return nil, bag
	}
	assembled, err := compiled.Bytecode.Assemble()
	if err != nil {
		bag.Add(err)
		return nil, bag
	}
	container := silasm.NewContainer(assembled)
	return container.Save(), bag
}

// CompileToContainer compiles src to the jsil JSONL container format under
// the given compression mode (spec.md §6's programmatic jsil entry point).
func CompileToContainer(src string, mode jsil.Mode, timestamp int64) ([]byte, jsil.Stats, *diag.Bag) {
	compiled, bag := Compile(src)
	if compiled == nil || bag.Len() > 0 {
		return nil, jsil.Stats{}, bag
	}
	records := compiled.Bytecode.ToJSONL(CompilerVersion, timestamp)
	buf, stats, err := jsil.Write(records, mode)
	if err != nil {
		bag.Add(err)
		return nil, jsil.Stats{}, bag
	}
	return buf, stats, bag
}

// cacheKey hashes the compiler version and source text, matching
// SPEC_FULL.md §3's "content-addressed .silc cache keyed on a hash of the
// source text + compiler version".
func cacheKey(src string) string {
	h := sha256.New()
	h.Write([]byte(CompilerVersion))
	h.Write([]byte{0})
	h.Write([]byte(src))
	return hex.EncodeToString(h.Sum(nil))
}

// CompileToBytecodeCached is CompileToBytecode with a content-addressed
// on-disk cache under dir (typically SIL_CACHE_DIR, read by the CLI via
// os.Getenv — this function never reads the environment itself). A
// cache hit skips compilation entirely; a miss compiles, writes the cache
// entry, and returns the fresh bytecode. dir == "" disables caching.
func CompileToBytecodeCached(src string, dir string) ([]byte, *diag.Bag, bool) {
	if dir == "" {
		buf, bag := CompileToBytecode(src)
		return buf, bag, false
	}

	path := filepath.Join(dir, cacheKey(src)+".silc")
	if cached, err := os.ReadFile(path); err == nil {
		if _, loadErr := silasm.Load(cached); loadErr == nil {
			return cached, diag.NewBag(0), true
		}
		// fall through to recompile on a corrupt/unreadable cache entry
	}

	buf, bag := CompileToBytecode(src)
	if buf == nil || bag.Len() > 0 {
		return buf, bag, false
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		bag.Add(fmt.Errorf("compiler: cache dir: %w", err))
		return buf, bag, false
	}
	_ = os.WriteFile(path, buf, 0o644) // cache write failure is non-fatal
	return buf, bag, false
}
