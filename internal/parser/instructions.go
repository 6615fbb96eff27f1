package parser

import (
	"rvasm/internal/diag"
	"rvasm/internal/encoding"
	"rvasm/internal/ir"
	"rvasm/internal/lexer"
)

// pseudoShapes describes the operand shape of every pseudo-instruction:
// number of leading register operands and whether a trailing expression
// operand follows.
var pseudoShapes = map[string]struct {
	regs   int
	hasImm bool
}{
	"nop":  {0, false},
	"mv":   {2, false},
	"not":  {2, false},
	"neg":  {2, false},
	"seqz": {2, false},
	"snez": {2, false},
	"sltz": {2, false},
	"sgtz": {2, false},
	"beqz": {1, true},
	"bnez": {1, true},
	"blez": {1, true},
	"bgez": {1, true},
	"bltz": {1, true},
	"bgtz": {1, true},
	"bgt":  {2, true},
	"ble":  {2, true},
	"bgtu": {2, true},
	"bleu": {2, true},
	"j":    {0, true},
	"jr":   {1, false},
	"ret":  {0, false},
	"li":   {1, true},
	"call": {0, true},
	"tail": {0, true},
}

func (p *parser) parseInstruction(pos diag.Pos, name string) ir.Item {
	// jal and jalr double as pseudo-instructions when given fewer
	// operands than their canonical forms take.
	switch name {
	case "jal":
		return p.parseJal(pos)
	case "jalr":
		return p.parseJalr(pos)
	case "fence":
		return p.parseFence(pos)
	case "ecall":
		return &ir.IType{At: pos, Name: "ecall", Rd: ir.Reg(0), Rs1: ir.Reg(0), Imm: ir.Int(pos, 0)}
	case "ebreak":
		return &ir.IType{At: pos, Name: "ebreak", Rd: ir.Reg(0), Rs1: ir.Reg(0), Imm: ir.Int(pos, 1)}
	}

	if shape, ok := pseudoShapes[name]; ok {
		item := &ir.Pseudo{At: pos, Name: name}
		for i := 0; i < shape.regs; i++ {
			item.Regs = append(item.Regs, p.parseReg())
		}
		if shape.hasImm {
			item.Imm = p.parseExpr()
		}
		return item
	}

	if cspec, ok := encoding.Compressed[name]; ok {
		item := &ir.CInstr{At: pos, Name: name}
		for i := 0; i < cspec.NumRegs; i++ {
			item.Regs = append(item.Regs, p.parseReg())
		}
		if cspec.HasImm {
			item.Imm = p.parseExpr()
		}
		return item
	}

	spec, ok := encoding.Lookup(name)
	if !ok {
		return nil
	}
	switch spec.Format {
	case encoding.FormatR:
		return &ir.RType{At: pos, Name: name, Rd: p.parseReg(), Rs1: p.parseReg(), Rs2: p.parseReg()}
	case encoding.FormatRShamt:
		return &ir.RType{At: pos, Name: name, Rd: p.parseReg(), Rs1: p.parseReg(), Shamt: p.parseExpr()}
	case encoding.FormatI:
		rd := p.parseReg()
		if name == "lb" || name == "lh" || name == "lw" || name == "lbu" || name == "lhu" {
			if imm, rs1, ok := p.tryMemOperand(); ok {
				return &ir.IType{At: pos, Name: name, Rd: rd, Rs1: rs1, Imm: imm}
			}
		}
		return &ir.IType{At: pos, Name: name, Rd: rd, Rs1: p.parseReg(), Imm: p.parseExpr()}
	case encoding.FormatS:
		first := p.parseReg()
		if imm, rs1, ok := p.tryMemOperand(); ok {
			// sugar: "sw rs2, imm(rs1)"
			return &ir.SType{At: pos, Name: name, Rs1: rs1, Rs2: first, Imm: imm}
		}
		return &ir.SType{At: pos, Name: name, Rs1: first, Rs2: p.parseReg(), Imm: p.parseExpr()}
	case encoding.FormatB:
		return &ir.BType{At: pos, Name: name, Rs1: p.parseReg(), Rs2: p.parseReg(), Target: p.parseExpr()}
	case encoding.FormatU:
		return &ir.UType{At: pos, Name: name, Rd: p.parseReg(), Imm: p.parseExpr()}
	case encoding.FormatJ:
		return &ir.JType{At: pos, Name: name, Rd: p.parseReg(), Target: p.parseExpr()}
	case encoding.FormatAmo:
		return p.parseAmo(pos, name)
	}
	return nil
}

func (p *parser) parseJal(pos diag.Pos) ir.Item {
	p.skipCommas()
	// Canonical form takes a register then a target; a single operand
	// is the "jal offset" pseudo linking through ra.
	if p.isRegToken() {
		rd := p.parseReg()
		if p.atEOL() {
			// "jal rs" is not a form; treat the register as a target
			// label would be wrong, so report.
			p.errorf(pos, "jal requires a target operand")
			return nil
		}
		return &ir.JType{At: pos, Name: "jal", Rd: rd, Target: p.parseExpr()}
	}
	target := p.parseExpr()
	if p.bad {
		return nil
	}
	return &ir.JType{At: pos, Name: "jal", Rd: ir.Reg(1), Target: target}
}

func (p *parser) parseJalr(pos diag.Pos) ir.Item {
	rd := p.parseReg()
	if p.bad {
		return nil
	}
	if p.atEOL() {
		// "jalr rs" pseudo: link through ra.
		return &ir.IType{At: pos, Name: "jalr", Rd: ir.Reg(1), Rs1: rd, Imm: ir.Int(pos, 0)}
	}
	if imm, rs1, ok := p.tryMemOperand(); ok {
		return &ir.IType{At: pos, Name: "jalr", Rd: rd, Rs1: rs1, Imm: imm}
	}
	return &ir.IType{At: pos, Name: "jalr", Rd: rd, Rs1: p.parseReg(), Imm: p.parseExpr()}
}

// fenceMask parses an iorw flag string into the 4-bit fence mask.
func fenceMask(s string) (int64, bool) {
	var mask int64
	for _, c := range s {
		switch c {
		case 'i':
			mask |= 0b1000
		case 'o':
			mask |= 0b0100
		case 'r':
			mask |= 0b0010
		case 'w':
			mask |= 0b0001
		default:
			return 0, false
		}
	}
	return mask, mask != 0
}

func (p *parser) parseFence(pos diag.Pos) ir.Item {
	if p.atEOL() {
		// bare "fence" orders everything against everything
		return &ir.IType{At: pos, Name: "fence", Rd: ir.Reg(0), Rs1: ir.Reg(0), Imm: ir.Int(pos, 0xff)}
	}
	pred := p.parseFenceMask()
	succ := p.parseFenceMask()
	if p.bad {
		return nil
	}
	imm := &ir.Binary{At: pos, Op: "|",
		X: &ir.Binary{At: pos, Op: "<<", X: pred, Y: ir.Int(pos, 4)},
		Y: succ,
	}
	return &ir.IType{At: pos, Name: "fence", Rd: ir.Reg(0), Rs1: ir.Reg(0), Imm: imm}
}

func (p *parser) parseFenceMask() ir.Expr {
	p.skipCommas()
	if t := p.peek(); t.Kind == lexer.Ident {
		if mask, ok := fenceMask(t.Lexeme); ok {
			p.next()
			return ir.Int(t.Pos, mask)
		}
	}
	return p.parseExpr()
}

func (p *parser) parseAmo(pos diag.Pos, name string) ir.Item {
	item := &ir.Amo{At: pos, Name: name}
	item.Rd = p.parseReg()
	item.Rs1 = p.parseReg()
	if name != "lr.w" {
		item.Rs2 = p.parseReg()
	} else {
		item.Rs2 = ir.Reg(0)
	}
	// optional ordering bits: "aq rl" as 0/1 literals
	if !p.atEOL() {
		item.Aq = p.parseOrderBit("aq")
	}
	if !p.atEOL() {
		item.Rl = p.parseOrderBit("rl")
	}
	return item
}

func (p *parser) parseOrderBit(what string) bool {
	p.skipCommas()
	t := p.next()
	if t.Kind != lexer.Int || (t.Int != 0 && t.Int != 1) {
		p.errorf(t.Pos, "%s ordering bit must be 0 or 1, got %q", what, t.Lexeme)
		return false
	}
	return t.Int == 1
}

// isRegToken reports whether the next token starts a register operand
// rather than a target expression: a known register name, or a bare
// integer followed by a further operand.
func (p *parser) isRegToken() bool {
	p.skipCommas()
	t := p.peek()
	if t.Kind == lexer.Ident {
		return ir.IsRegisterName(t.Lexeme)
	}
	if t.Kind == lexer.Int && p.cur+1 < len(p.toks) {
		switch p.toks[p.cur+1].Kind {
		case lexer.Ident, lexer.Int, lexer.Modifier, lexer.Char, lexer.Comma:
			return true
		}
	}
	return false
}

func (p *parser) parseReg() ir.RegArg {
	p.skipCommas()
	t := p.next()
	switch t.Kind {
	case lexer.Ident:
		return ir.RegArg{At: t.Pos, Name: t.Lexeme}
	case lexer.Int:
		return ir.RegArg{At: t.Pos, Num: t.Int}
	default:
		p.errorf(t.Pos, "expected register operand, got %s %q", t.Kind, t.Lexeme)
		return ir.RegArg{At: t.Pos}
	}
}

// tryMemOperand recognizes the "imm(rs)" sugar: the remaining operand
// tokens end in a parenthesized register. On a match it consumes the
// operand and returns the offset expression and base register.
func (p *parser) tryMemOperand() (ir.Expr, ir.RegArg, bool) {
	p.skipCommas()
	// The line must end with "( reg )"; scan ahead without consuming.
	last := len(p.toks) - 1 // EOL
	if last-1 < p.cur || p.toks[last-1].Kind != lexer.RParen {
		return nil, ir.RegArg{}, false
	}
	regTok := p.toks[last-2]
	if last-3 < p.cur || p.toks[last-3].Kind != lexer.LParen {
		return nil, ir.RegArg{}, false
	}
	if regTok.Kind != lexer.Ident && regTok.Kind != lexer.Int {
		return nil, ir.RegArg{}, false
	}
	if regTok.Kind == lexer.Ident && !ir.IsRegisterName(regTok.Lexeme) {
		return nil, ir.RegArg{}, false
	}

	// Parse the offset expression from the tokens before the '('.
	sub := &parser{little: p.little, reporter: p.reporter}
	sub.toks = append(append([]lexer.Token{}, p.toks[p.cur:last-3]...),
		lexer.Token{Pos: p.toks[last-3].Pos, Kind: lexer.EOL})
	var imm ir.Expr
	if len(sub.toks) == 1 {
		imm = ir.Int(regTok.Pos, 0)
	} else {
		imm = sub.parseExpr()
		if sub.bad || !sub.atEOL() {
			p.errorf(p.toks[p.cur].Pos, "invalid memory operand offset")
			return nil, ir.RegArg{}, false
		}
	}

	var base ir.RegArg
	if regTok.Kind == lexer.Ident {
		base = ir.RegArg{At: regTok.Pos, Name: regTok.Lexeme}
	} else {
		base = ir.RegArg{At: regTok.Pos, Num: regTok.Int}
	}
	p.cur = last
	return imm, base, true
}
