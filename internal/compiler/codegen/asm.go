package codegen

import (
	"fmt"
	"strings"

	"github.com/klauspost/asmfmt"

	"github.com/silvanoneto/sil-core/internal/silasm"
)

// ToStmts converts p's flat op stream into silasm statements, ready for
// internal/silasm.NewAssembler to turn into bytecode. Every label/operand
// name p produced is preserved verbatim — the assembler's own two-pass
// resolution (internal/silasm/assembler.go) handles forward references.
func (p *Program) ToStmts() []silasm.Stmt {
	stmts := make([]silasm.Stmt, 0, len(p.Ops))
	for _, op := range p.Ops {
		if op.Label != "" {
			stmts = append(stmts, silasm.Stmt{Kind: silasm.StmtLabel, Line: op.Line, Label: op.Label})
			continue
		}
		stmts = append(stmts, silasm.Stmt{
			Kind:     silasm.StmtInstr,
			Line:     op.Line,
			Mnemonic: op.Mnemonic,
			Operands: toSyntaxOperands(op.Operands),
		})
	}
	return stmts
}

func toSyntaxOperands(ops []Operand) []silasm.OperandSyntax {
	out := make([]silasm.OperandSyntax, len(ops))
	for i, o := range ops {
		switch o.Kind {
		case OperandReg:
			out[i] = silasm.OperandSyntax{Kind: silasm.OperandReg, Reg: int(o.Reg)}
		case OperandImm:
			out[i] = silasm.OperandSyntax{Kind: silasm.OperandImm, Imm: o.Imm}
		case OperandLabel:
			out[i] = silasm.OperandSyntax{Kind: silasm.OperandLabelRef, Label: o.Label}
		}
	}
	return out
}

// Assemble lowers p straight to bytecode via internal/silasm, skipping the
// text round trip (spec.md §6's CompileToBytecode path).
func (p *Program) Assemble() (silasm.Assembled, error) {
	asm := silasm.NewAssembler(p.ToStmts())
	return asm.Assemble()
}

// Text renders p as human-readable assembly, one label or instruction per
// line, formatted through asmfmt the same way internal/silasm's
// disassembler does (and falling back to the unformatted text on the same
// grammar-mismatch grounds: asmfmt targets Go's plan9 dialect, not this
// ISA's, so it is a best-effort prettifier, not a correctness gate).
func (p *Program) Text() string {
	var out strings.Builder
	for _, op := range p.Ops {
		if op.Label != "" {
			out.WriteString(op.Label)
			out.WriteString(":\n")
			continue
		}
		out.WriteString(renderOp(op))
		out.WriteByte('\n')
	}
	formatted, err := asmfmt.Format(strings.NewReader(out.String()))
	if err != nil {
		return out.String()
	}
	return string(formatted)
}

func renderOp(op Op) string {
	var b strings.Builder
	b.WriteString(op.Mnemonic)
	for i, operand := range op.Operands {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		switch operand.Kind {
		case OperandReg:
			fmt.Fprintf(&b, "R%d", operand.Reg)
		case OperandImm:
			fmt.Fprintf(&b, "%d", operand.Imm)
		case OperandLabel:
			b.WriteString(operand.Label)
		}
	}
	return b.String()
}
