package encoding

import (
	"rvasm/internal/expr"
	"rvasm/internal/ir"
)

// CompressedForm attempts to encode a 32-bit item as its C-extension
// equivalent at the program point described by sc (whose PC must be the
// item's offset). pseudoLong marks a li/call/tail frozen in its two-
// instruction form, which is never compressible. The boolean result is
// false when the item has no legal compressed form at this offset.
//
// The same function drives both the compression pass (feasibility) and
// the encoder (final bytes), so the two can never disagree.
func CompressedForm(p *ir.Program, item ir.Item, sc *expr.Scope, pseudoLong bool) (uint16, bool) {
	switch it := item.(type) {
	case *ir.IType:
		return compressIType(p, it, sc)
	case *ir.SType:
		return compressSType(p, it, sc)
	case *ir.RType:
		return compressRType(p, it, sc)
	case *ir.UType:
		return compressUType(p, it, sc)
	case *ir.BType:
		return compressBType(p, it, sc)
	case *ir.JType:
		return compressJType(p, it, sc)
	case *ir.Pseudo:
		if pseudoLong {
			return 0, false
		}
		return compressPseudo(p, it, sc)
	}
	return 0, false
}

func try(code uint16, err error) (uint16, bool) {
	if err != nil {
		return 0, false
	}
	return code, true
}

func regPair(p *ir.Program, a, b ir.RegArg) (int, int, bool) {
	ra, ok := p.ResolveReg(a)
	if !ok {
		return 0, 0, false
	}
	rb, ok := p.ResolveReg(b)
	if !ok {
		return 0, 0, false
	}
	return ra, rb, true
}

func compressIType(p *ir.Program, it *ir.IType, sc *expr.Scope) (uint16, bool) {
	rd, rs1, ok := regPair(p, it.Rd, it.Rs1)
	if !ok {
		return 0, false
	}
	imm, err := expr.Eval(it.Imm, sc)
	if err != nil {
		return 0, false
	}
	switch it.Name {
	case "addi":
		switch {
		case rd == 0 && rs1 == 0 && imm == 0:
			return CNop(), true
		case rs1 == 0:
			return try(CLi(rd, imm))
		case rd == rs1:
			if rd == 2 {
				if code, ok := try(CAddi16sp(imm)); ok {
					return code, true
				}
			}
			return try(CAddi(rd, imm))
		case rs1 == 2:
			return try(CAddi4spn(rd, imm))
		}
	case "jalr":
		if imm != 0 {
			return 0, false
		}
		switch rd {
		case 0:
			return try(CJr(rs1))
		case 1:
			return try(CJalr(rs1))
		}
	case "lw":
		if rs1 == 2 {
			if code, ok := try(CLwsp(rd, imm)); ok {
				return code, true
			}
		}
		return try(CLw(rd, rs1, imm))
	case "andi":
		if rd == rs1 {
			return try(CAndi(rd, imm))
		}
	case "ebreak":
		if imm == 1 {
			return CEbreak(), true
		}
	}
	return 0, false
}

func compressSType(p *ir.Program, it *ir.SType, sc *expr.Scope) (uint16, bool) {
	if it.Name != "sw" {
		return 0, false
	}
	rs1, rs2, ok := regPair(p, it.Rs1, it.Rs2)
	if !ok {
		return 0, false
	}
	imm, err := expr.Eval(it.Imm, sc)
	if err != nil {
		return 0, false
	}
	if rs1 == 2 {
		if code, ok := try(CSwsp(rs2, imm)); ok {
			return code, true
		}
	}
	return try(CSw(rs1, rs2, imm))
}

func compressRType(p *ir.Program, it *ir.RType, sc *expr.Scope) (uint16, bool) {
	rd, rs1, ok := regPair(p, it.Rd, it.Rs1)
	if !ok {
		return 0, false
	}
	if it.Shamt != nil {
		shamt, err := expr.Eval(it.Shamt, sc)
		if err != nil || rd != rs1 {
			return 0, false
		}
		switch it.Name {
		case "slli":
			return try(CSlli(rd, shamt))
		case "srli":
			return try(CSrli(rd, shamt))
		case "srai":
			return try(CSrai(rd, shamt))
		}
		return 0, false
	}
	rs2, ok := p.ResolveReg(it.Rs2)
	if !ok {
		return 0, false
	}
	switch it.Name {
	case "add":
		switch {
		case rs1 == 0:
			return try(CMv(rd, rs2))
		case rd == rs1:
			return try(CAdd(rd, rs2))
		}
	case "sub":
		if rd == rs1 {
			return try(CSub(rd, rs2))
		}
	case "xor":
		if rd == rs1 {
			return try(CXor(rd, rs2))
		}
	case "or":
		if rd == rs1 {
			return try(COr(rd, rs2))
		}
	case "and":
		if rd == rs1 {
			return try(CAnd(rd, rs2))
		}
	}
	return 0, false
}

func compressUType(p *ir.Program, it *ir.UType, sc *expr.Scope) (uint16, bool) {
	if it.Name != "lui" {
		return 0, false
	}
	rd, ok := p.ResolveReg(it.Rd)
	if !ok {
		return 0, false
	}
	imm, err := expr.Eval(it.Imm, sc)
	if err != nil {
		return 0, false
	}
	return try(CLui(rd, expr.SignExtend(imm&0xfffff, 20)))
}

func compressBType(p *ir.Program, it *ir.BType, sc *expr.Scope) (uint16, bool) {
	rs1, rs2, ok := regPair(p, it.Rs1, it.Rs2)
	if !ok {
		return 0, false
	}
	// one operand must be x0, the other a prime register
	reg := rs1
	if reg == 0 {
		reg = rs2
	} else if rs2 != 0 {
		return 0, false
	}
	off, err := expr.EvalTarget(it.Target, sc)
	if err != nil {
		return 0, false
	}
	switch it.Name {
	case "beq":
		return try(CBeqz(reg, off))
	case "bne":
		return try(CBnez(reg, off))
	}
	return 0, false
}

func compressJType(p *ir.Program, it *ir.JType, sc *expr.Scope) (uint16, bool) {
	if it.Name != "jal" {
		return 0, false
	}
	rd, ok := p.ResolveReg(it.Rd)
	if !ok {
		return 0, false
	}
	off, err := expr.EvalTarget(it.Target, sc)
	if err != nil {
		return 0, false
	}
	switch rd {
	case 0:
		return try(CJ(off))
	case 1:
		return try(CJal(off))
	}
	return 0, false
}

func compressPseudo(p *ir.Program, it *ir.Pseudo, sc *expr.Scope) (uint16, bool) {
	switch it.Name {
	case "li":
		rd, ok := p.ResolveReg(it.Regs[0])
		if !ok {
			return 0, false
		}
		v, err := expr.Eval(it.Imm, sc)
		if err != nil {
			return 0, false
		}
		if v >= -2048 && v <= 2047 {
			return try(CLi(rd, v))
		}
		if v&0xfff == 0 {
			return try(CLui(rd, expr.RelocateHi(v)))
		}
	case "call", "tail":
		off, err := expr.EvalTarget(it.Imm, sc)
		if err != nil {
			return 0, false
		}
		if it.Name == "call" {
			return try(CJal(off))
		}
		return try(CJ(off))
	}
	return 0, false
}
