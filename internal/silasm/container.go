package silasm

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/silvanoneto/sil-core/internal/vsp"
)

// Magic identifies the bytecode container format (spec.md §4.4 "magic: 4 B
// fixed ASCII tag").
var Magic = [4]byte{'S', 'I', 'L', 'C'}

const (
	versionMajor = 1
	versionMinor = 0

	flagDebugPresent = 1 << 0

	headerSize = 4 /*magic*/ + 2 /*ver*/ + 1 /*mode*/ + 1 /*flags*/ + 4 /*code_size*/ + 4 /*data_size*/ + 4 /*reserved*/ + 4 /*checksum*/
)

// ContainerErrorKind discriminates the four BytecodeError variants spec.md
// §7 enumerates (InvalidMagic, UnsupportedVersion, ChecksumMismatch,
// TruncatedSection), mirroring vsp.RuntimeErrorKind's Kind-plus-Detail shape
// rather than leaving callers to string-sniff Error() to tell them apart.
type ContainerErrorKind int

const (
	ErrInvalidMagic ContainerErrorKind = iota
	ErrUnsupportedVersion
	ErrChecksumMismatch
	ErrTruncatedSection
)

func (k ContainerErrorKind) String() string {
	switch k {
	case ErrInvalidMagic:
		return "InvalidMagic"
	case ErrUnsupportedVersion:
		return "UnsupportedVersion"
	case ErrChecksumMismatch:
		return "ChecksumMismatch"
	case ErrTruncatedSection:
		return "TruncatedSection"
	default:
		return "Unknown"
	}
}

// ContainerError reports a malformed or rejected .silc file (spec.md §4.4
// "loader rejects any file whose magic, version major, size fields, or
// checksum do not match"; spec.md §7 BytecodeError).
type ContainerError struct {
	Kind   ContainerErrorKind
	Detail string
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("silasm: container: %s: %s", e.Kind, e.Detail)
}

func newContainerErr(kind ContainerErrorKind, format string, args ...any) *ContainerError {
	return &ContainerError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Container is the in-memory form of a .silc bytecode file: a fixed binary
// header (spec.md §4.4 table, field order and widths exact, little-endian)
// followed by code, data, and an optional debug block.
type Container struct {
	VersionMajor, VersionMinor uint16
	Mode                       vsp.Mode
	Code, Data                 []byte
	Debug                      []DebugRecord
}

// NewContainer builds a Container from an Assembled result.
func NewContainer(a Assembled) Container {
	return Container{
		VersionMajor: versionMajor,
		VersionMinor: versionMinor,
		Mode:         a.Mode,
		Code:         a.Code,
		Data:         a.Data,
		Debug:        a.Debug,
	}
}

func modeByte(m vsp.Mode) byte {
	if m == vsp.SIL64 {
		return 0
	}
	return 1
}

func byteMode(b byte) vsp.Mode {
	if b == 0 {
		return vsp.SIL64
	}
	return vsp.SIL128
}

// Save encodes c into its canonical byte-exact .silc representation
// (spec.md §6 "a round-trip save → load → save must produce byte-identical
// output").
func (c Container) Save() []byte {
	hasDebug := len(c.Debug) > 0
	buf := make([]byte, headerSize, headerSize+len(c.Code)+len(c.Data))

	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], c.VersionMajor)
	binary.LittleEndian.PutUint16(buf[6:8], c.VersionMinor)
	buf[8] = modeByte(c.Mode)
	var flags byte
	if hasDebug {
		flags |= flagDebugPresent
	}
	buf[9] = flags
	binary.LittleEndian.PutUint32(buf[10:14], uint32(len(c.Code)))
	binary.LittleEndian.PutUint32(buf[14:18], uint32(len(c.Data)))
	binary.LittleEndian.PutUint32(buf[18:22], 0) // reserved

	body := append(append([]byte{}, c.Code...), c.Data...)
	checksum := crc32.ChecksumIEEE(body)
	binary.LittleEndian.PutUint32(buf[22:26], checksum)

	buf = append(buf, c.Code...)
	buf = append(buf, c.Data...)

	if hasDebug {
		buf = appendDebugBlock(buf, c.Debug)
	}
	return buf
}

// appendDebugBlock serializes each (addr, line, col, symbol) record: a
// 16-byte fixed part (addr, line, col, symbol length) followed by the
// symbol's raw bytes, so a reader can skip unknown trailing fields the way
// §6 "record container" readers are expected to for jsil records.
func appendDebugBlock(buf []byte, recs []DebugRecord) []byte {
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(recs)))
	buf = append(buf, countBuf[:]...)
	for _, r := range recs {
		var entry [16]byte
		binary.LittleEndian.PutUint32(entry[0:4], r.Addr)
		binary.LittleEndian.PutUint32(entry[4:8], uint32(r.Line))
		binary.LittleEndian.PutUint32(entry[8:12], uint32(r.Column))
		binary.LittleEndian.PutUint32(entry[12:16], uint32(len(r.Symbol)))
		buf = append(buf, entry[:]...)
		buf = append(buf, r.Symbol...)
	}
	return buf
}

// Load decodes and validates a .silc byte stream, rejecting anything whose
// magic, version major, size fields, or checksum mismatch (spec.md §4.4).
func Load(buf []byte) (Container, error) {
	if len(buf) < headerSize {
		return Container{}, newContainerErr(ErrTruncatedSection, "truncated header: %d bytes", len(buf))
	}
	if [4]byte(buf[0:4]) != Magic {
		return Container{}, newContainerErr(ErrInvalidMagic, "bad magic")
	}
	verMajor := binary.LittleEndian.Uint16(buf[4:6])
	verMinor := binary.LittleEndian.Uint16(buf[6:8])
	if verMajor != versionMajor {
		return Container{}, newContainerErr(ErrUnsupportedVersion, "unsupported version major %d", verMajor)
	}
	mode := byteMode(buf[8])
	flags := buf[9]
	codeSize := binary.LittleEndian.Uint32(buf[10:14])
	dataSize := binary.LittleEndian.Uint32(buf[14:18])
	checksum := binary.LittleEndian.Uint32(buf[22:26])

	end := headerSize + int(codeSize) + int(dataSize)
	if end > len(buf) {
		return Container{}, newContainerErr(ErrTruncatedSection, "code/data size exceeds file length")
	}
	code := buf[headerSize : headerSize+int(codeSize)]
	data := buf[headerSize+int(codeSize) : end]

	body := append(append([]byte{}, code...), data...)
	if crc32.ChecksumIEEE(body) != checksum {
		return Container{}, newContainerErr(ErrChecksumMismatch, "checksum mismatch")
	}

	var debug []DebugRecord
	if flags&flagDebugPresent != 0 {
		var err error
		debug, err = parseDebugBlock(buf[end:])
		if err != nil {
			return Container{}, err
		}
	}

	return Container{
		VersionMajor: verMajor,
		VersionMinor: verMinor,
		Mode:         mode,
		Code:         append([]byte(nil), code...),
		Data:         append([]byte(nil), data...),
		Debug:        debug,
	}, nil
}

func parseDebugBlock(buf []byte) ([]DebugRecord, error) {
	if len(buf) < 4 {
		return nil, newContainerErr(ErrTruncatedSection, "truncated debug block")
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	off := 4
	recs := make([]DebugRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+16 > len(buf) {
			return nil, newContainerErr(ErrTruncatedSection, "truncated debug record")
		}
		addr := binary.LittleEndian.Uint32(buf[off : off+4])
		line := binary.LittleEndian.Uint32(buf[off+4 : off+8])
		col := binary.LittleEndian.Uint32(buf[off+8 : off+12])
		symLen := binary.LittleEndian.Uint32(buf[off+12 : off+16])
		off += 16
		if off+int(symLen) > len(buf) {
			return nil, newContainerErr(ErrTruncatedSection, "truncated debug record symbol")
		}
		symbol := string(buf[off : off+int(symLen)])
		off += int(symLen)
		recs = append(recs, DebugRecord{Addr: addr, Line: int(line), Column: int(col), Symbol: symbol})
	}
	return recs, nil
}
