package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable listing of the program items, one per
// line. It is used by the -vv diagnostic mode.
func Dump(p *Program, w io.Writer) {
	if p == nil {
		fmt.Fprintln(w, "<nil program>")
		return
	}
	for _, item := range p.Items {
		fmt.Fprintf(w, "%-24s %s\n", item.Pos(), renderItem(item))
	}
}

func renderItem(item Item) string {
	switch it := item.(type) {
	case *ConstantDef:
		return fmt.Sprintf("%s = %s", it.Name, Render(it.Expr))
	case *Label:
		return it.Name + ":"
	case *RType:
		if it.Shamt != nil {
			return fmt.Sprintf("%s %s %s %s", it.Name, renderReg(it.Rd), renderReg(it.Rs1), Render(it.Shamt))
		}
		return fmt.Sprintf("%s %s %s %s", it.Name, renderReg(it.Rd), renderReg(it.Rs1), renderReg(it.Rs2))
	case *IType:
		return fmt.Sprintf("%s %s %s %s", it.Name, renderReg(it.Rd), renderReg(it.Rs1), Render(it.Imm))
	case *SType:
		return fmt.Sprintf("%s %s %s %s", it.Name, renderReg(it.Rs1), renderReg(it.Rs2), Render(it.Imm))
	case *BType:
		return fmt.Sprintf("%s %s %s %s", it.Name, renderReg(it.Rs1), renderReg(it.Rs2), Render(it.Target))
	case *UType:
		return fmt.Sprintf("%s %s %s", it.Name, renderReg(it.Rd), Render(it.Imm))
	case *JType:
		return fmt.Sprintf("%s %s %s", it.Name, renderReg(it.Rd), Render(it.Target))
	case *Amo:
		suffix := ""
		if it.Aq {
			suffix += " aq"
		}
		if it.Rl {
			suffix += " rl"
		}
		return fmt.Sprintf("%s %s %s %s%s", it.Name, renderReg(it.Rd), renderReg(it.Rs1), renderReg(it.Rs2), suffix)
	case *CInstr:
		parts := []string{it.Name}
		for _, r := range it.Regs {
			parts = append(parts, renderReg(r))
		}
		if it.Imm != nil {
			parts = append(parts, Render(it.Imm))
		}
		return strings.Join(parts, " ")
	case *Pseudo:
		parts := []string{it.Name}
		for _, r := range it.Regs {
			parts = append(parts, renderReg(r))
		}
		if it.Imm != nil {
			parts = append(parts, Render(it.Imm))
		}
		return strings.Join(parts, " ")
	case *DataSeq:
		parts := []string{it.Kind.String()}
		for _, v := range it.Values {
			parts = append(parts, Render(v))
		}
		return strings.Join(parts, " ")
	case *Pack:
		endian := ">"
		if it.Little {
			endian = "<"
		}
		if it.Format == 0 {
			return fmt.Sprintf("pack %s[%d] %s", endian, it.Width, Render(it.Expr))
		}
		return fmt.Sprintf("pack %s%c %s", endian, it.Format, Render(it.Expr))
	case *StringLit:
		return fmt.Sprintf("string %q", it.Data)
	case *IncludeBytes:
		return fmt.Sprintf("include_bytes %s (%d bytes)", it.Path, len(it.Data))
	case *Align:
		return "align " + Render(it.N)
	case *ErrorDirective:
		return fmt.Sprintf("error %s", it.Message)
	default:
		return fmt.Sprintf("<unknown item %T>", item)
	}
}

func renderReg(r RegArg) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("x%d", r.Num)
}

// Render formats an expression tree back to source-like text.
func Render(e Expr) string {
	switch x := e.(type) {
	case *IntLit:
		return fmt.Sprintf("%d", x.Value)
	case *FloatLit:
		return fmt.Sprintf("%g", x.Value)
	case *Ref:
		return x.Name
	case *Unary:
		return x.Op + Render(x.X)
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", Render(x.X), x.Op, Render(x.Y))
	case *Hi:
		return fmt.Sprintf("%%hi(%s)", Render(x.X))
	case *Lo:
		return fmt.Sprintf("%%lo(%s)", Render(x.X))
	case *Position:
		return fmt.Sprintf("%%position(%s, %s)", x.Label, Render(x.Base))
	case *OffsetOf:
		return fmt.Sprintf("%%offset(%s)", x.Label)
	case nil:
		return ""
	default:
		return fmt.Sprintf("<unknown expr %T>", e)
	}
}
