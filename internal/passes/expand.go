package passes

import (
	"rvasm/internal/diag"
	"rvasm/internal/ir"
)

// ExpandPseudo rewrites position-independent pseudo-instructions into
// their canonical forms and lowers data-sequence directives into runs
// of single-value packs. The li, call and tail pseudos stay: their
// width depends on label distances and is settled during layout.
type ExpandPseudo struct {
	reporter *diag.Reporter
	little   bool
}

// NewExpandPseudo constructs the pass; little is the global endianness
// applied to lowered data sequences.
func NewExpandPseudo(reporter *diag.Reporter, little bool) *ExpandPseudo {
	return &ExpandPseudo{reporter: reporter, little: little}
}

// Name implements the Pass interface.
func (e *ExpandPseudo) Name() string { return "expand-pseudo" }

// Run rewrites the item sequence in place.
func (e *ExpandPseudo) Run(p *ir.Program) error {
	out := make([]ir.Item, 0, len(p.Items))
	for _, item := range p.Items {
		switch it := item.(type) {
		case *ir.Pseudo:
			out = append(out, e.expand(it)...)
		case *ir.DataSeq:
			for _, v := range it.Values {
				pack := &ir.Pack{At: it.At, Little: e.little, Width: it.Kind.Width(), Expr: v}
				if it.Kind.Float() {
					if it.Kind == ir.SeqFloats {
						pack.Format = 'f'
					} else {
						pack.Format = 'd'
					}
					pack.Width = 0
				}
				out = append(out, pack)
			}
		default:
			out = append(out, item)
		}
	}
	p.Items = out
	return nil
}

func (e *ExpandPseudo) expand(it *ir.Pseudo) []ir.Item {
	at := it.At
	one := func(item ir.Item) []ir.Item { return []ir.Item{item} }
	zero := ir.Reg(0)
	switch it.Name {
	case "nop":
		return one(&ir.IType{At: at, Name: "addi", Rd: zero, Rs1: zero, Imm: ir.Int(at, 0)})
	case "mv":
		return one(&ir.IType{At: at, Name: "addi", Rd: it.Regs[0], Rs1: it.Regs[1], Imm: ir.Int(at, 0)})
	case "not":
		return one(&ir.IType{At: at, Name: "xori", Rd: it.Regs[0], Rs1: it.Regs[1], Imm: ir.Int(at, -1)})
	case "neg":
		return one(&ir.RType{At: at, Name: "sub", Rd: it.Regs[0], Rs1: zero, Rs2: it.Regs[1]})
	case "seqz":
		return one(&ir.IType{At: at, Name: "sltiu", Rd: it.Regs[0], Rs1: it.Regs[1], Imm: ir.Int(at, 1)})
	case "snez":
		return one(&ir.RType{At: at, Name: "sltu", Rd: it.Regs[0], Rs1: zero, Rs2: it.Regs[1]})
	case "sltz":
		return one(&ir.RType{At: at, Name: "slt", Rd: it.Regs[0], Rs1: it.Regs[1], Rs2: zero})
	case "sgtz":
		return one(&ir.RType{At: at, Name: "slt", Rd: it.Regs[0], Rs1: zero, Rs2: it.Regs[1]})
	case "beqz":
		return one(&ir.BType{At: at, Name: "beq", Rs1: it.Regs[0], Rs2: zero, Target: it.Imm})
	case "bnez":
		return one(&ir.BType{At: at, Name: "bne", Rs1: it.Regs[0], Rs2: zero, Target: it.Imm})
	case "blez":
		return one(&ir.BType{At: at, Name: "bge", Rs1: zero, Rs2: it.Regs[0], Target: it.Imm})
	case "bgez":
		return one(&ir.BType{At: at, Name: "bge", Rs1: it.Regs[0], Rs2: zero, Target: it.Imm})
	case "bltz":
		return one(&ir.BType{At: at, Name: "blt", Rs1: it.Regs[0], Rs2: zero, Target: it.Imm})
	case "bgtz":
		return one(&ir.BType{At: at, Name: "blt", Rs1: zero, Rs2: it.Regs[0], Target: it.Imm})
	case "bgt":
		return one(&ir.BType{At: at, Name: "blt", Rs1: it.Regs[1], Rs2: it.Regs[0], Target: it.Imm})
	case "ble":
		return one(&ir.BType{At: at, Name: "bge", Rs1: it.Regs[1], Rs2: it.Regs[0], Target: it.Imm})
	case "bgtu":
		return one(&ir.BType{At: at, Name: "bltu", Rs1: it.Regs[1], Rs2: it.Regs[0], Target: it.Imm})
	case "bleu":
		return one(&ir.BType{At: at, Name: "bgeu", Rs1: it.Regs[1], Rs2: it.Regs[0], Target: it.Imm})
	case "j":
		return one(&ir.JType{At: at, Name: "jal", Rd: zero, Target: it.Imm})
	case "jr":
		return one(&ir.IType{At: at, Name: "jalr", Rd: zero, Rs1: it.Regs[0], Imm: ir.Int(at, 0)})
	case "ret":
		return one(&ir.IType{At: at, Name: "jalr", Rd: zero, Rs1: ir.Reg(1), Imm: ir.Int(at, 0)})
	case "li", "call", "tail":
		return one(it)
	}
	e.reporter.Errorf(at, "unknown pseudo-instruction: %s", it.Name)
	return nil
}
