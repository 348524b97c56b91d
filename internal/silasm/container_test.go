package silasm

import (
	"errors"
	"testing"

	"github.com/silvanoneto/sil-core/internal/vsp"
)

func TestContainerSaveLoadRoundTrip(t *testing.T) {
	asm, err := assemble(t, "MOVI R0, 5\nHLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	c := NewContainer(asm)
	buf := c.Save()

	loaded, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(buf[0:4]) != "SILC" {
		t.Fatalf("magic = %q, want SILC", buf[0:4])
	}
	if loaded.Mode != c.Mode {
		t.Fatalf("mode = %v, want %v", loaded.Mode, c.Mode)
	}
	if string(loaded.Code) != string(c.Code) || string(loaded.Data) != string(c.Data) {
		t.Fatal("code/data did not round-trip")
	}
}

func TestContainerSaveIsByteIdenticalAcrossSaveLoadSave(t *testing.T) {
	asm, err := assemble(t, "MOVI R0, 5\nMOVI R1, 10\nADD R2, R0, R1\nHLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	c := NewContainer(asm)
	first := c.Save()

	loaded, err := Load(first)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second := loaded.Save()

	if string(first) != string(second) {
		t.Fatalf("save -> load -> save not byte-identical:\n%x\n%x", first, second)
	}
}

func TestContainerChecksumMismatchRejectsSingleByteMutation(t *testing.T) {
	asm, err := assemble(t, "MOVI R0, 5\nHLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	buf := NewContainer(asm).Save()

	// Flip one bit inside the code section without recomputing the
	// checksum (spec.md §8 testable property 12).
	mutated := append([]byte(nil), buf...)
	mutated[headerSize] ^= 0x01

	if _, err := Load(mutated); err == nil {
		t.Fatal("expected ChecksumMismatch-equivalent error on mutated code byte")
	}
}

func TestContainerRejectsBadMagic(t *testing.T) {
	asm, err := assemble(t, "HLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	buf := NewContainer(asm).Save()
	buf[0] = 'X'
	if _, err := Load(buf); err == nil {
		t.Fatal("expected an error for bad magic")
	}
}

func TestContainerRejectsUnsupportedVersion(t *testing.T) {
	asm, err := assemble(t, "HLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	buf := NewContainer(asm).Save()
	buf[4] = 9 // version_major
	if _, err := Load(buf); err == nil {
		t.Fatal("expected an error for unsupported version")
	}
}

func TestContainerRejectsTruncatedFile(t *testing.T) {
	if _, err := Load([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a truncated header")
	}
}

func TestContainerDebugBlockRoundTrips(t *testing.T) {
	asm, err := assemble(t, ".debug\nMOVI R0, 5\nHLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	c := NewContainer(asm)
	buf := c.Save()
	if buf[9]&flagDebugPresent == 0 {
		t.Fatal("expected debug-present flag bit set")
	}
	loaded, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Debug) != len(c.Debug) {
		t.Fatalf("debug records = %d, want %d", len(loaded.Debug), len(c.Debug))
	}
}

func TestContainerDebugRecordsCarryLineColumnAndSymbol(t *testing.T) {
	asm, err := assemble(t, ".debug\nfoo:\nMOVI R0, 5\nHLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	c := NewContainer(asm)
	buf := c.Save()
	loaded, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Debug) != 2 {
		t.Fatalf("debug records = %d, want 2", len(loaded.Debug))
	}
	for _, r := range loaded.Debug {
		if r.Symbol != "foo" {
			t.Fatalf("debug record symbol = %q, want %q", r.Symbol, "foo")
		}
		if r.Line == 0 {
			t.Fatal("debug record line was not populated")
		}
	}
}

func TestContainerChecksumMismatchHasChecksumMismatchKind(t *testing.T) {
	asm, err := assemble(t, "MOVI R0, 5\nHLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	buf := NewContainer(asm).Save()
	mutated := append([]byte(nil), buf...)
	mutated[headerSize] ^= 0x01

	_, err = Load(mutated)
	var cerr *ContainerError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a *ContainerError, got %T: %v", err, err)
	}
	if cerr.Kind != ErrChecksumMismatch {
		t.Fatalf("Kind = %v, want ErrChecksumMismatch", cerr.Kind)
	}
}

func TestContainerRejectsBadMagicWithInvalidMagicKind(t *testing.T) {
	asm, err := assemble(t, "HLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	buf := NewContainer(asm).Save()
	buf[0] = 'X'
	_, err = Load(buf)
	var cerr *ContainerError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a *ContainerError, got %T: %v", err, err)
	}
	if cerr.Kind != ErrInvalidMagic {
		t.Fatalf("Kind = %v, want ErrInvalidMagic", cerr.Kind)
	}
}

func TestContainerModeByteRoundTrips(t *testing.T) {
	asm, err := assemble(t, ".mode sil64\nHLT\n")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	buf := NewContainer(asm).Save()
	if buf[8] != 0 {
		t.Fatalf("mode byte = %d, want 0 (SIL-64)", buf[8])
	}
	loaded, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Mode != vsp.SIL64 {
		t.Fatalf("loaded mode = %v, want SIL64", loaded.Mode)
	}
}
