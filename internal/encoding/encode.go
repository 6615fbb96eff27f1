package encoding

import (
	"fmt"

	"rvasm/internal/diag"
	"rvasm/internal/expr"
	"rvasm/internal/ir"
)

// encoder holds the state of one EncodeProgram run. Range failures and
// bad operands are reported with the offending item's origin; on any
// error EncodeProgram returns a nil image.
type encoder struct {
	plan     *ir.Plan
	reporter *diag.Reporter
	longs    map[int]bool // item index -> pseudo frozen long
	buf      []byte
}

// EncodeProgram emits the byte image for a layout plan. longs marks the
// li/call/tail items that layout froze in their two-instruction form.
func EncodeProgram(plan *ir.Plan, longs map[int]bool, reporter *diag.Reporter) []byte {
	e := &encoder{plan: plan, reporter: reporter, longs: longs}
	for i, item := range plan.Prog.Items {
		if int64(len(e.buf)) != plan.Offsets[i] {
			reporter.Errorf(item.Pos(), "internal error: emitted %d bytes but layout placed item at %d", len(e.buf), plan.Offsets[i])
			return nil
		}
		e.encodeItem(i, item)
		if stop, ok := item.(*ir.ErrorDirective); ok {
			reporter.Error(stop.At, stop.Message)
			return nil
		}
		// Keep offsets aligned past error placeholders so later items
		// still report against their own origins.
		if want := plan.Offsets[i] + plan.Sizes[i]; int64(len(e.buf)) < want {
			e.buf = append(e.buf, make([]byte, want-int64(len(e.buf)))...)
		}
	}
	if e.reporter.HasErrors() {
		return nil
	}
	return e.buf
}

func (e *encoder) scope(i int) *expr.Scope {
	return &expr.Scope{
		Consts: e.plan.Prog.Consts,
		Labels: e.plan.Labels,
		PC:     e.plan.Offsets[i],
	}
}

func (e *encoder) reg(pos diag.Pos, arg ir.RegArg) (int, bool) {
	r, ok := e.plan.Prog.ResolveReg(arg)
	if !ok {
		if arg.Name != "" {
			e.reporter.Errorf(pos, "register is not a number or valid name: %s", arg.Name)
		} else {
			e.reporter.Errorf(pos, "register must be between 0 and 31: %d", arg.Num)
		}
		return 0, false
	}
	return r, true
}

func (e *encoder) eval(pos diag.Pos, x ir.Expr, sc *expr.Scope) (int64, bool) {
	v, err := expr.Eval(x, sc)
	if err != nil {
		e.reporter.Errorf(pos, "invalid expression: %v", err)
		return 0, false
	}
	return v, true
}

func (e *encoder) evalTarget(pos diag.Pos, x ir.Expr, sc *expr.Scope) (int64, bool) {
	v, err := expr.EvalTarget(x, sc)
	if err != nil {
		e.reporter.Errorf(pos, "invalid target: %v", err)
		return 0, false
	}
	return v, true
}

func (e *encoder) emitWord(pos diag.Pos, code uint32, err error) {
	if err != nil {
		e.reporter.Errorf(pos, "%v", err)
		e.buf = append(e.buf, 0, 0, 0, 0)
		return
	}
	e.buf = PutWord(e.buf, code)
}

func (e *encoder) encodeItem(i int, item ir.Item) {
	sc := e.scope(i)
	switch it := item.(type) {
	case *ir.ConstantDef, *ir.Label, *ir.ErrorDirective:
		// zero width

	case *ir.Align:
		e.buf = append(e.buf, make([]byte, e.plan.Sizes[i])...)

	case *ir.RType:
		if e.plan.Compressed[i] {
			e.emitCompressed(i, item)
			return
		}
		rd, ok1 := e.reg(it.At, it.Rd)
		rs1, ok2 := e.reg(it.At, it.Rs1)
		if !ok1 || !ok2 {
			return
		}
		spec := Base[it.Name]
		if it.Shamt != nil {
			shamt, ok := e.eval(it.At, it.Shamt, sc)
			if !ok {
				return
			}
			code, err := Shift(rd, rs1, shamt, spec)
			e.emitWord(it.At, code, err)
			return
		}
		rs2, ok := e.reg(it.At, it.Rs2)
		if !ok {
			return
		}
		code, err := RType(rd, rs1, rs2, spec.Opcode, spec.Funct3, spec.Funct7)
		e.emitWord(it.At, code, err)

	case *ir.IType:
		if e.plan.Compressed[i] {
			e.emitCompressed(i, item)
			return
		}
		rd, ok1 := e.reg(it.At, it.Rd)
		rs1, ok2 := e.reg(it.At, it.Rs1)
		imm, ok3 := e.eval(it.At, it.Imm, sc)
		if !ok1 || !ok2 || !ok3 {
			return
		}
		spec := Base[it.Name]
		code, err := IType(rd, rs1, imm, spec.Opcode, spec.Funct3)
		e.emitWord(it.At, code, err)

	case *ir.SType:
		if e.plan.Compressed[i] {
			e.emitCompressed(i, item)
			return
		}
		rs1, ok1 := e.reg(it.At, it.Rs1)
		rs2, ok2 := e.reg(it.At, it.Rs2)
		imm, ok3 := e.eval(it.At, it.Imm, sc)
		if !ok1 || !ok2 || !ok3 {
			return
		}
		spec := Base[it.Name]
		code, err := SType(rs1, rs2, imm, spec.Opcode, spec.Funct3)
		e.emitWord(it.At, code, err)

	case *ir.BType:
		if e.plan.Compressed[i] {
			e.emitCompressed(i, item)
			return
		}
		rs1, ok1 := e.reg(it.At, it.Rs1)
		rs2, ok2 := e.reg(it.At, it.Rs2)
		off, ok3 := e.evalTarget(it.At, it.Target, sc)
		if !ok1 || !ok2 || !ok3 {
			return
		}
		spec := Base[it.Name]
		code, err := BType(rs1, rs2, off, spec.Opcode, spec.Funct3)
		e.emitWord(it.At, code, err)

	case *ir.UType:
		if e.plan.Compressed[i] {
			e.emitCompressed(i, item)
			return
		}
		rd, ok1 := e.reg(it.At, it.Rd)
		imm, ok2 := e.eval(it.At, it.Imm, sc)
		if !ok1 || !ok2 {
			return
		}
		spec := Base[it.Name]
		code, err := UType(rd, imm, spec.Opcode)
		e.emitWord(it.At, code, err)

	case *ir.JType:
		if e.plan.Compressed[i] {
			e.emitCompressed(i, item)
			return
		}
		rd, ok1 := e.reg(it.At, it.Rd)
		off, ok2 := e.evalTarget(it.At, it.Target, sc)
		if !ok1 || !ok2 {
			return
		}
		spec := Base[it.Name]
		code, err := JType(rd, off, spec.Opcode)
		e.emitWord(it.At, code, err)

	case *ir.Amo:
		rd, ok1 := e.reg(it.At, it.Rd)
		rs1, ok2 := e.reg(it.At, it.Rs1)
		rs2, ok3 := e.reg(it.At, it.Rs2)
		if !ok1 || !ok2 || !ok3 {
			return
		}
		spec := Base[it.Name]
		code, err := AmoType(rd, rs1, rs2, spec, it.Aq, it.Rl)
		e.emitWord(it.At, code, err)

	case *ir.CInstr:
		e.encodeCInstr(i, it, sc)

	case *ir.Pseudo:
		e.encodePseudo(i, it, sc)

	case *ir.Pack:
		e.encodePack(it, sc)

	case *ir.StringLit:
		e.buf = append(e.buf, it.Data...)

	case *ir.IncludeBytes:
		e.buf = append(e.buf, it.Data...)

	default:
		e.reporter.Errorf(item.Pos(), "internal error: unencodable item %T", item)
	}
}

func (e *encoder) emitCompressed(i int, item ir.Item) {
	code, ok := CompressedForm(e.plan.Prog, item, e.scope(i), e.longs[i])
	if !ok {
		e.reporter.Errorf(item.Pos(), "internal error: compressed instruction no longer encodes")
		e.buf = append(e.buf, 0, 0)
		return
	}
	e.buf = PutHalf(e.buf, code)
}

func (e *encoder) encodeCInstr(i int, it *ir.CInstr, sc *expr.Scope) {
	cspec := Compressed[it.Name]
	regs := make([]int, 0, len(it.Regs))
	for _, arg := range it.Regs {
		r, ok := e.reg(it.At, arg)
		if !ok {
			return
		}
		regs = append(regs, r)
	}
	var imm int64
	if cspec.HasImm {
		var ok bool
		if cspec.PCRel {
			imm, ok = e.evalTarget(it.At, it.Imm, sc)
		} else {
			imm, ok = e.eval(it.At, it.Imm, sc)
		}
		if !ok {
			return
		}
	}
	code, err := cspec.Encode(regs, imm)
	if err != nil {
		e.reporter.Errorf(it.At, "%v", err)
		e.buf = append(e.buf, 0, 0)
		return
	}
	e.buf = PutHalf(e.buf, code)
}

// LiValueRange checks a li operand fits in 32 bits.
func LiValueRange(v int64) error {
	if v < -(1<<31) || v >= 1<<32 {
		return fmt.Errorf("li immediate must fit in 32 bits: %d", v)
	}
	return nil
}

// LiLong reports whether a li of value v needs the lui+addi pair.
func LiLong(v int64) bool {
	if v >= -2048 && v <= 2047 {
		return false
	}
	return v&0xfff != 0
}

func (e *encoder) encodePseudo(i int, it *ir.Pseudo, sc *expr.Scope) {
	if e.plan.Compressed[i] {
		e.emitCompressed(i, it)
		return
	}
	long := e.longs[i]
	switch it.Name {
	case "li":
		rd, ok1 := e.reg(it.At, it.Regs[0])
		v, ok2 := e.eval(it.At, it.Imm, sc)
		if !ok1 || !ok2 {
			return
		}
		if err := LiValueRange(v); err != nil {
			e.reporter.Errorf(it.At, "%v", err)
			return
		}
		lui := Base["lui"]
		addi := Base["addi"]
		switch {
		case !long && v >= -2048 && v <= 2047:
			code, err := IType(rd, 0, v, addi.Opcode, addi.Funct3)
			e.emitWord(it.At, code, err)
		case !long:
			code, err := UType(rd, expr.RelocateHi(v), lui.Opcode)
			e.emitWord(it.At, code, err)
		default:
			code, err := UType(rd, expr.RelocateHi(v), lui.Opcode)
			e.emitWord(it.At, code, err)
			code, err = IType(rd, rd, expr.RelocateLo(v), addi.Opcode, addi.Funct3)
			e.emitWord(it.At, code, err)
		}

	case "call", "tail":
		off, ok := e.evalTarget(it.At, it.Imm, sc)
		if !ok {
			return
		}
		link, scratch := 1, 1 // call links and retargets through ra
		if it.Name == "tail" {
			link, scratch = 0, 6
		}
		if !long {
			jal := Base["jal"]
			code, err := JType(link, off, jal.Opcode)
			e.emitWord(it.At, code, err)
			return
		}
		auipc := Base["auipc"]
		jalr := Base["jalr"]
		code, err := UType(scratch, expr.RelocateHi(off), auipc.Opcode)
		e.emitWord(it.At, code, err)
		code, err = IType(link, scratch, expr.RelocateLo(off), jalr.Opcode, jalr.Funct3)
		e.emitWord(it.At, code, err)

	default:
		e.reporter.Errorf(it.At, "internal error: unexpanded pseudo-instruction %s", it.Name)
	}
}

func (e *encoder) encodePack(it *ir.Pack, sc *expr.Scope) {
	if it.Format == 0 {
		v, ok := e.eval(it.At, it.Expr, sc)
		if !ok {
			return
		}
		data, err := PackInferred(it.Little, it.Width, v)
		if err != nil {
			e.reporter.Errorf(it.At, "%v", err)
			return
		}
		e.buf = append(e.buf, data...)
		return
	}
	width, signed, float, ok := PackFormat(it.Format)
	if !ok {
		e.reporter.Errorf(it.At, "unsupported pack format character %q", it.Format)
		return
	}
	if float {
		v, err := expr.EvalFloat(it.Expr, sc)
		if err != nil {
			e.reporter.Errorf(it.At, "invalid expression: %v", err)
			return
		}
		data, err := PackFloat(it.Little, width, v)
		if err != nil {
			e.reporter.Errorf(it.At, "%v", err)
			return
		}
		e.buf = append(e.buf, data...)
		return
	}
	v, ok2 := e.eval(it.At, it.Expr, sc)
	if !ok2 {
		return
	}
	data, err := PackInt(it.Little, width, signed, v)
	if err != nil {
		e.reporter.Errorf(it.At, "%v", err)
		return
	}
	e.buf = append(e.buf, data...)
}
