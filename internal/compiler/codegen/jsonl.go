package codegen

import (
	"fmt"

	"github.com/silvanoneto/sil-core/internal/compiler/jsil"
	"github.com/silvanoneto/sil-core/internal/vsp"
)

// ToJSONL renders p as the jsil record sequence: one Metadata record, one
// Symbol record per function/transform at its resolved code address, then
// one Instruction record per emitted instruction, in program order
// (end-to-end scenario E1: "Metadata ... Symbol record for
// main ... at least one Instruction record").
//
// timestamp is caller-supplied (rather than time.Now() here) so the
// compiler façade's tests can assert an exact Metadata record.
func (p *Program) ToJSONL(version string, timestamp int64) []jsil.Record {
	addrs := p.labelAddresses()

	records := make([]jsil.Record, 0, len(p.Ops)+len(p.Symbols)+1)
	records = append(records, jsil.NewMetadataRecord(version, jsonlModeName(p.Mode), timestamp))

	for _, sym := range p.Symbols {
		records = append(records, jsil.NewSymbolRecord(sym.Name, sym.Kind, addrs[sym.Label]))
	}

	for _, op := range p.Ops {
		if op.Label != "" {
			continue
		}
		records = append(records, jsil.NewInstructionRecord(op.Mnemonic, renderOperandStrings(op.Operands)))
	}
	return records
}

// labelAddresses walks p.Ops computing each label's byte offset in the
// eventual code stream, using internal/vsp.InstrLen the same way
// internal/silasm's assembler measures instructions in pass 1.
func (p *Program) labelAddresses() map[string]uint32 {
	addrs := make(map[string]uint32)
	var offset uint32
	for _, op := range p.Ops {
		if op.Label != "" {
			addrs[op.Label] = offset
			continue
		}
		opcode, ok := vsp.MnemonicToOpcode[op.Mnemonic]
		if !ok {
			continue
		}
		n, _ := vsp.InstrLen(opcode)
		offset += uint32(n)
	}
	return addrs
}

// jsonlModeName renders the Metadata record's mode field in the exact
// casing spec.md's end-to-end scenario E1 names ("Sil128"), distinct from
// vsp.Mode.String()'s lowercase form used by the `.mode` assembly directive.
func jsonlModeName(m vsp.Mode) string {
	if m == vsp.SIL64 {
		return "Sil64"
	}
	return "Sil128"
}

func renderOperandStrings(operands []Operand) []string {
	out := make([]string, len(operands))
	for i, o := range operands {
		switch o.Kind {
		case OperandReg:
			out[i] = fmt.Sprintf("R%d", o.Reg)
		case OperandImm:
			out[i] = fmt.Sprintf("%d", o.Imm)
		case OperandLabel:
			out[i] = o.Label
		}
	}
	return out
}
