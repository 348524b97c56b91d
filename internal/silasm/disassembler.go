package silasm

import (
	"fmt"
	"strings"

	"github.com/klauspost/asmfmt"

	"github.com/silvanoneto/sil-core/internal/vsp"
)

// Disassemble decodes code back into assembly text, opcode by opcode, using
// the same vsp.ISA/vsp.Decode table the assembler encodes with — the
// "reference disassembler" spec.md §4.4/§6 calls for (testable property:
// assemble → disassemble → reassemble is byte-identical).
//
// Grounded on the teacher's assembler/ie64dis.go: an opcode-table-driven
// linear decode loop that emits one formatted line per instruction, with
// labels synthesized for jump/call targets it discovers along the way.
func Disassemble(code []byte) (string, error) {
	targets := map[uint32]bool{}
	var instrs []vsp.Instruction
	var offsets []uint32

	for pc := uint32(0); int(pc) < len(code); {
		instr, err := vsp.Decode(code, pc)
		if err != nil {
			return "", err
		}
		instrs = append(instrs, instr)
		offsets = append(offsets, pc)
		for _, op := range instr.Operands {
			if op.Kind == vsp.KindAddr16 || op.Kind == vsp.KindOffset16 {
				targets[uint32(op.Addr16)] = true
			}
		}
		pc += uint32(instr.Len)
	}

	labelAt := make(map[uint32]string, len(targets))
	i := 0
	for _, addr := range orderedUint32(targets) {
		labelAt[addr] = fmt.Sprintf("L%d", i)
		i++
	}

	var out strings.Builder
	for idx, instr := range instrs {
		addr := offsets[idx]
		if name, ok := labelAt[addr]; ok {
			out.WriteString(name)
			out.WriteString(":\n")
		}
		out.WriteString(renderInstr(instr, labelAt))
		out.WriteByte('\n')
	}

	formatted, err := asmfmt.Format(strings.NewReader(out.String()))
	if err != nil {
		// asmfmt targets Go's plan9 assembly dialect; this source isn't
		// always a perfect match for its grammar. Fall back to the
		// unformatted text rather than fail disassembly over cosmetics.
		return out.String(), nil
	}
	return string(formatted), nil
}

// orderedUint32 yields the keys of m in ascending order, so label numbering
// (and therefore disassembly output) is deterministic.
func orderedUint32(m map[uint32]bool) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func renderInstr(instr vsp.Instruction, labelAt map[uint32]string) string {
	var b strings.Builder
	b.WriteString(instr.Mnemonic)
	for i, op := range instr.Operands {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		switch op.Kind {
		case vsp.KindReg:
			fmt.Fprintf(&b, "R%d", op.Reg)
		case vsp.KindImm8:
			fmt.Fprintf(&b, "%d", op.Imm8)
		case vsp.KindLayer4:
			fmt.Fprintf(&b, "%d", op.Layer)
		case vsp.KindMask16:
			fmt.Fprintf(&b, "0x%04X", op.Mask16)
		case vsp.KindAddr16, vsp.KindOffset16:
			if name, ok := labelAt[uint32(op.Addr16)]; ok {
				b.WriteString(name)
			} else {
				fmt.Fprintf(&b, "0x%04X", op.Addr16)
			}
		}
	}
	return b.String()
}
