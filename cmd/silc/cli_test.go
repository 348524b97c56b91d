package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/silvanoneto/sil-core/internal/silasm"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

const sampleSILSrc = `fn main() { let x = 1 + 2; return x; }`

func TestCompileCmdEmitsSilcByDefault(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "prog.sil", sampleSILSrc)

	cmd := newCompileCmd()
	cmd.SetArgs([]string{in})
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("compile: %v (stderr: %s)", err, stderr.String())
	}

	out := filepath.Join(dir, "prog.silc")
	buf, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", out, err)
	}
	if _, err := silasm.Load(buf); err != nil {
		t.Fatalf("silasm.Load on compiled output: %v", err)
	}
}

func TestCompileCmdAsmFlagEmitsText(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "prog.sil", sampleSILSrc)

	cmd := newCompileCmd()
	cmd.SetArgs([]string{"--asm", in})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("compile --asm: %v", err)
	}

	out := filepath.Join(dir, "prog.asm")
	buf, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", out, err)
	}
	if len(buf) == 0 {
		t.Fatal("expected non-empty assembly text")
	}
}

func TestCompileCmdJSILFlagEmitsContainer(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "prog.sil", sampleSILSrc)

	cmd := newCompileCmd()
	cmd.SetArgs([]string{"--jsil", in})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("compile --jsil: %v", err)
	}

	out := filepath.Join(dir, "prog.jsil")
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected %s to exist: %v", out, err)
	}
}

func TestCompileCmdReportsParseErrorExitCode(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "bad.sil", "fn main() { let x = ; }")

	cmd := newCompileCmd()
	cmd.SetArgs([]string{in})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error for malformed source")
	}
	ek, ok := err.(exitKinder)
	if !ok {
		t.Fatalf("expected an exitKinder error, got %T", err)
	}
	if ek.ExitCode() != exitParseError {
		t.Fatalf("ExitCode() = %d, want %d", ek.ExitCode(), exitParseError)
	}
}

func TestAssembleThenInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "prog.sil", sampleSILSrc)

	compile := newCompileCmd()
	compile.SetArgs([]string{"--asm", in})
	if err := compile.Execute(); err != nil {
		t.Fatalf("compile --asm: %v", err)
	}
	asmPath := filepath.Join(dir, "prog.asm")

	assemble := newAssembleCmd()
	assemble.SetArgs([]string{asmPath})
	if err := assemble.Execute(); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	silcPath := filepath.Join(dir, "prog.silc")
	if _, err := os.Stat(silcPath); err != nil {
		t.Fatalf("expected %s to exist: %v", silcPath, err)
	}

	info := newInfoCmd()
	info.SetArgs([]string{silcPath})
	var out bytes.Buffer
	info.SetOut(&out)
	if err := info.Execute(); err != nil {
		t.Fatalf("info: %v", err)
	}
}

func TestInfoCmdReportsFormatErrorOnBadContainer(t *testing.T) {
	dir := t.TempDir()
	bad := writeTempFile(t, dir, "bad.silc", "not a container")

	cmd := newInfoCmd()
	cmd.SetArgs([]string{bad})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error for a malformed container")
	}
	ek, ok := err.(exitKinder)
	if !ok {
		t.Fatalf("expected an exitKinder error, got %T", err)
	}
	if ek.ExitCode() != exitFormatError {
		t.Fatalf("ExitCode() = %d, want %d", ek.ExitCode(), exitFormatError)
	}
}

func TestRunCmdExecutesCompiledProgram(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "prog.sil", sampleSILSrc)

	compile := newCompileCmd()
	compile.SetArgs([]string{in})
	if err := compile.Execute(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	silcPath := filepath.Join(dir, "prog.silc")

	run := newRunCmd()
	run.SetArgs([]string{silcPath})
	if err := run.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunCmdRejectsInvalidMode(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "prog.sil", sampleSILSrc)

	compile := newCompileCmd()
	compile.SetArgs([]string{in})
	if err := compile.Execute(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	silcPath := filepath.Join(dir, "prog.silc")

	run := newRunCmd()
	run.SetArgs([]string{"--mode", "bogus", silcPath})
	err := run.Execute()
	if err == nil {
		t.Fatal("expected an error for an invalid --mode value")
	}
	ek, ok := err.(exitKinder)
	if !ok {
		t.Fatalf("expected an exitKinder error, got %T", err)
	}
	if ek.ExitCode() != exitParseError {
		t.Fatalf("ExitCode() = %d, want %d", ek.ExitCode(), exitParseError)
	}
}

func TestWrapExitNilErrorReturnsNil(t *testing.T) {
	if err := wrapExit(exitIOError, nil); err != nil {
		t.Fatalf("wrapExit(_, nil) = %v, want nil", err)
	}
}
