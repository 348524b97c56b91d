// Package jsil implements the "jsil" record container of spec.md §4.5/§6:
// a compressed, line-delimited JSON record stream with a text framing
// header. Four record kinds (Metadata, Symbol, Instruction, Data) and five
// compression modes (None, Xor, Rotate, XorRotate, Adaptive) per spec.
//
// Grounded on stdlib encoding/json for line-delimited record marshaling
// (DESIGN.md: "no corpus JSON library beats stdlib encoding/json for
// line-delimited records") and the teacher's own container/header framing
// idiom in internal/silasm/container.go (fixed header fields, explicit
// load/save, byte-exact round trip), widened from a binary header to the
// text header spec.md §4.5 calls for here.
package jsil

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the four record families spec.md §4.5 enumerates.
type Kind string

const (
	KindMetadata    Kind = "Metadata"
	KindSymbol      Kind = "Symbol"
	KindInstruction Kind = "Instruction"
	KindData        Kind = "Data"
)

// Record is one JSONL line. Only the field matching Kind is populated; a
// reader that encounters an unrecognized Kind skips the line and continues
// (spec.md §6 "readers that encounter an unknown kind must skip it and
// continue").
type Record struct {
	Kind        Kind               `json:"kind"`
	Metadata    *MetadataFields    `json:"metadata,omitempty"`
	Symbol      *SymbolFields      `json:"symbol,omitempty"`
	Instruction *InstructionFields `json:"instruction,omitempty"`
	Data        *DataFields        `json:"data,omitempty"`
}

// MetadataFields is the Metadata record's field set.
type MetadataFields struct {
	Version   string `json:"version"`
	Mode      string `json:"mode"`
	Timestamp int64  `json:"timestamp"`
}

// SymbolFields is the Symbol record's field set.
type SymbolFields struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // function, transform, ...
	Address uint32 `json:"address"`
}

// InstructionFields is the Instruction record's field set.
type InstructionFields struct {
	Op       string   `json:"op"`
	Operands []string `json:"operands"`
}

// DataFields is the Data record's field set; Bytes is base64-encoded.
type DataFields struct {
	Offset uint32 `json:"offset"`
	Len    uint32 `json:"len"`
	Bytes  string `json:"bytes"`
}

// NewMetadataRecord, NewSymbolRecord, NewInstructionRecord, and
// NewDataRecord build one record of each kind.
func NewMetadataRecord(version, mode string, timestamp int64) Record {
	return Record{Kind: KindMetadata, Metadata: &MetadataFields{Version: version, Mode: mode, Timestamp: timestamp}}
}

func NewSymbolRecord(name, kind string, addr uint32) Record {
	return Record{Kind: KindSymbol, Symbol: &SymbolFields{Name: name, Kind: kind, Address: addr}}
}

func NewInstructionRecord(op string, operands []string) Record {
	return Record{Kind: KindInstruction, Instruction: &InstructionFields{Op: op, Operands: operands}}
}

func NewDataRecord(offset uint32, data []byte) Record {
	return Record{Kind: KindData, Data: &DataFields{Offset: offset, Len: uint32(len(data)), Bytes: base64.StdEncoding.EncodeToString(data)}}
}

// Mode enumerates the compression modes spec.md §4.5 lists. ModeAdaptive
// never appears in a stored header — Write resolves it to one of the
// other four before writing (spec.md §9's open-question resolution: "try
// all three non-None modes on a sample and pick the smallest; record the
// winning mode in the header").
type Mode int

const (
	ModeNone Mode = iota
	ModeXor
	ModeRotate
	ModeXorRotate
	ModeAdaptive
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeXor:
		return "xor"
	case ModeRotate:
		return "rotate"
	case ModeXorRotate:
		return "xorrotate"
	case ModeAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "none":
		return ModeNone, nil
	case "xor":
		return ModeXor, nil
	case "rotate":
		return ModeRotate, nil
	case "xorrotate":
		return ModeXorRotate, nil
	case "adaptive":
		return ModeAdaptive, nil
	default:
		return ModeNone, fmt.Errorf("jsil: unknown compression mode %q", s)
	}
}

func rotateLeft(b byte, n int) byte {
	n = n & 7
	return b<<n | b>>(8-n)
}

func rotateRight(b byte, n int) byte {
	n = n & 7
	return b>>n | b<<(8-n)
}

// xorBytes returns out[i] = in[i] ^ key.
func xorBytes(in []byte, key byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b ^ key
	}
	return out
}

func rotateBytes(in []byte, n int, left bool) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		if left {
			out[i] = rotateLeft(b, n)
		} else {
			out[i] = rotateRight(b, n)
		}
	}
	return out
}

// adaptiveProbeKey is the fixed key tried by Xor/XorRotate during Adaptive
// sampling (spec.md §9 doesn't fix one; DESIGN.md records this choice).
const adaptiveProbeKey = 0x5A

// encode applies mode/param to buf (the forward direction: plain -> coded).
func encode(buf []byte, mode Mode, param byte) []byte {
	switch mode {
	case ModeNone:
		return append([]byte(nil), buf...)
	case ModeXor:
		return xorBytes(buf, param)
	case ModeRotate:
		return rotateBytes(buf, int(param), true)
	case ModeXorRotate:
		xored := xorBytes(buf, param)
		return rotateBytes(xored, int(param)&0x7, true)
	default:
		return append([]byte(nil), buf...)
	}
}

// decode is encode's inverse: XOR again, right-rotate, right-rotate-then-
// xor, per spec.md §4.5 "inverses are XOR again, right-rotate,
// right-rotate-then-xor".
func decode(buf []byte, mode Mode, param byte) []byte {
	switch mode {
	case ModeNone:
		return append([]byte(nil), buf...)
	case ModeXor:
		return xorBytes(buf, param)
	case ModeRotate:
		return rotateBytes(buf, int(param), false)
	case ModeXorRotate:
		unrot := rotateBytes(buf, int(param)&0x7, false)
		return xorBytes(unrot, param)
	default:
		return append([]byte(nil), buf...)
	}
}

const adaptiveSampleSize = 1024

// resolveAdaptive picks whichever of Xor/Rotate/XorRotate (plus implicitly
// None) yields the smallest encoding of a leading sample of buf.
func resolveAdaptive(buf []byte) (Mode, byte) {
	sample := buf
	if len(sample) > adaptiveSampleSize {
		sample = sample[:adaptiveSampleSize]
	}
	bestMode := ModeNone
	var bestParam byte
	bestSize := len(sample)

	try := func(mode Mode, param byte) {
		size := len(encode(sample, mode, param))
		if size < bestSize {
			bestSize, bestMode, bestParam = size, mode, param
		}
	}
	try(ModeXor, adaptiveProbeKey)
	for n := 1; n <= 7; n++ {
		try(ModeRotate, byte(n))
	}
	try(ModeXorRotate, adaptiveProbeKey)
	return bestMode, bestParam
}

// Stats reports the compression outcome (spec.md §4.5 "compression-ratio
// metric").
type Stats struct {
	UncompressedSize int
	CompressedSize   int
	RecordCount      int
	Ratio            float64 // compressed / uncompressed, 0 when input is empty
}

// frameVersion is the jsil container format version stamped in the header.
const frameVersion = 1

// Write encodes records as newline-delimited JSON, compresses the result
// under mode (resolving ModeAdaptive to a concrete mode first), and writes
// the text header followed by the compressed payload to buf, returning the
// bytes and compression Stats.
func Write(records []Record, mode Mode) ([]byte, Stats, error) {
	var lineBuf bytes.Buffer
	enc := json.NewEncoder(&lineBuf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, Stats{}, fmt.Errorf("jsil: encode record: %w", err)
		}
	}
	plain := lineBuf.Bytes()

	param := byte(0)
	finalMode := mode
	if mode == ModeAdaptive {
		finalMode, param = resolveAdaptive(plain)
	} else if mode == ModeXor || mode == ModeXorRotate {
		param = adaptiveProbeKey
	} else if mode == ModeRotate {
		param = 1
	}

	compressed := encode(plain, finalMode, param)

	stats := Stats{
		UncompressedSize: len(plain),
		CompressedSize:   len(compressed),
		RecordCount:      len(records),
	}
	if stats.UncompressedSize > 0 {
		stats.Ratio = float64(stats.CompressedSize) / float64(stats.UncompressedSize)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "SILJSONL\n")
	fmt.Fprintf(&out, "version=%d\n", frameVersion)
	fmt.Fprintf(&out, "mode=%s\n", finalMode)
	fmt.Fprintf(&out, "param=%d\n", param)
	fmt.Fprintf(&out, "count=%d\n", stats.RecordCount)
	fmt.Fprintf(&out, "uncompressed=%d\n", stats.UncompressedSize)
	fmt.Fprintf(&out, "compressed=%d\n", stats.CompressedSize)
	out.WriteString("\n")
	out.Write(compressed)
	return out.Bytes(), stats, nil
}

// FormatError reports a malformed jsil container.
type FormatError struct{ Detail string }

func (e *FormatError) Error() string { return "jsil: " + e.Detail }

// Read parses a jsil container, decompresses its payload, and decodes every
// JSONL line into a Record, skipping any line whose kind is unrecognized.
func Read(buf []byte) ([]Record, Stats, error) {
	r := bufio.NewReader(bytes.NewReader(buf))
	magic, err := r.ReadString('\n')
	if err != nil || strings.TrimRight(magic, "\n") != "SILJSONL" {
		return nil, Stats{}, &FormatError{Detail: "bad magic line"}
	}

	fields := map[string]string{}
	for {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimRight(line, "\n")
		if trimmed == "" {
			break
		}
		parts := strings.SplitN(trimmed, "=", 2)
		if len(parts) == 2 {
			fields[parts[0]] = parts[1]
		}
		if err != nil {
			return nil, Stats{}, &FormatError{Detail: "truncated header"}
		}
	}

	mode, err := ParseMode(fields["mode"])
	if err != nil {
		return nil, Stats{}, err
	}
	paramN, _ := strconv.Atoi(fields["param"])
	count, _ := strconv.Atoi(fields["count"])
	uncompressed, _ := strconv.Atoi(fields["uncompressed"])
	compressedSize, _ := strconv.Atoi(fields["compressed"])

	rest, err := readAll(r)
	if err != nil {
		return nil, Stats{}, err
	}
	plain := decode(rest, mode, byte(paramN))

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(plain))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // malformed line: skip and continue per spec
		}
		switch rec.Kind {
		case KindMetadata, KindSymbol, KindInstruction, KindData:
			records = append(records, rec)
		default:
			// unknown kind: skip and continue
		}
	}

	stats := Stats{RecordCount: count, UncompressedSize: uncompressed, CompressedSize: compressedSize}
	if uncompressed > 0 {
		stats.Ratio = float64(compressedSize) / float64(uncompressed)
	}
	return records, stats, nil
}

func readAll(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r)
	return buf.Bytes(), err
}
