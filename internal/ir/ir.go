// Package ir defines the program representation shared by every assembler
// pass: the ordered item sequence produced by the parser, the expression
// trees carried by items, and the register name table.
//
// Items form a closed tagged-variant set. Each pass switches over the
// variants it cares about and passes the rest through unchanged, so the
// item sequence stays totally ordered from parse to encode.
package ir

import "rvasm/internal/diag"

// Item is one element of the program sequence.
type Item interface {
	isItem()
	Pos() diag.Pos
}

// RegArg is a register operand as written in the source: either a name
// (register, ABI alias, or user-defined alias constant) or a bare number.
type RegArg struct {
	At   diag.Pos
	Name string // empty when the operand was numeric
	Num  int64  // used when Name == ""
}

// ConstantDef binds a name to a constant expression at program start.
// A RHS that is a bare register name instead binds a register alias.
type ConstantDef struct {
	At   diag.Pos
	Name string
	Expr Expr
}

// Label binds a name to the current byte offset during layout.
type Label struct {
	At   diag.Pos
	Name string
}

// RType is a register-register instruction (add, sub, sll, ...). Shift
// immediates (slli, srli, srai) also use this form with the shift amount
// expression in Shamt instead of Rs2.
type RType struct {
	At    diag.Pos
	Name  string
	Rd    RegArg
	Rs1   RegArg
	Rs2   RegArg
	Shamt Expr // non-nil for shift-immediate forms
}

// IType is a register-immediate instruction (addi, lw, jalr, fence, ...).
type IType struct {
	At   diag.Pos
	Name string
	Rd   RegArg
	Rs1  RegArg
	Imm  Expr
}

// SType is a store instruction. Rs1 is the base register, Rs2 the source.
type SType struct {
	At   diag.Pos
	Name string
	Rs1  RegArg
	Rs2  RegArg
	Imm  Expr
}

// BType is a conditional branch. Target follows branch-target semantics:
// an identifier naming a label resolves to the PC-relative offset to that
// label, any other expression to the offset value itself.
type BType struct {
	At     diag.Pos
	Name   string
	Rs1    RegArg
	Rs2    RegArg
	Target Expr
}

// UType is an upper-immediate instruction (lui, auipc).
type UType struct {
	At   diag.Pos
	Name string
	Rd   RegArg
	Imm  Expr
}

// JType is an unconditional jump (jal). Target semantics as for BType.
type JType struct {
	At     diag.Pos
	Name   string
	Rd     RegArg
	Target Expr
}

// Amo is an A-extension instruction. Rs2 is unused for lr.w.
type Amo struct {
	At   diag.Pos
	Name string
	Rd   RegArg
	Rs1  RegArg
	Rs2  RegArg
	Aq   bool
	Rl   bool
}

// CInstr is an explicit compressed instruction written in the source
// (c.addi ...). The compression pass does not create CInstr items; it
// marks 32-bit items as compressed in the layout plan. Regs holds the
// register operands in mnemonic order; Imm is nil for forms without an
// immediate.
type CInstr struct {
	At   diag.Pos
	Name string
	Regs []RegArg
	Imm  Expr
}

// Pseudo is a pseudo-instruction whose size depends on layout (li, call,
// tail). Position-independent pseudos are rewritten away before layout
// and never reach later passes.
type Pseudo struct {
	At   diag.Pos
	Name string
	Regs []RegArg
	Imm  Expr
}

// SeqKind selects the element width of a data sequence directive.
type SeqKind int

const (
	SeqBytes SeqKind = iota
	SeqShorts
	SeqInts
	SeqLongs
	SeqLongLongs
	SeqFloats
	SeqDoubles
)

// Width returns the per-element width in bytes.
func (k SeqKind) Width() int {
	switch k {
	case SeqBytes:
		return 1
	case SeqShorts:
		return 2
	case SeqInts, SeqLongs, SeqFloats:
		return 4
	default:
		return 8
	}
}

// Float reports whether elements are IEEE-754 values.
func (k SeqKind) Float() bool {
	return k == SeqFloats || k == SeqDoubles
}

func (k SeqKind) String() string {
	switch k {
	case SeqBytes:
		return "bytes"
	case SeqShorts:
		return "shorts"
	case SeqInts:
		return "ints"
	case SeqLongs:
		return "longs"
	case SeqLongLongs:
		return "longlongs"
	case SeqFloats:
		return "floats"
	default:
		return "doubles"
	}
}

// DataSeq is a bytes/shorts/ints/longs/longlongs/floats/doubles directive.
// Each value is emitted at the kind's width with the global endianness;
// signedness is inferred per value.
type DataSeq struct {
	At     diag.Pos
	Kind   SeqKind
	Values []Expr
}

// Pack emits a single value with explicit width and endianness. When
// Format is zero the width comes from Width and signedness is inferred
// from the resolved value (the db/dh/dw/dd shorthands and data sequences
// lower to this form).
type Pack struct {
	At     diag.Pos
	Little bool
	Format byte // one of bBhHiIlLqQfd, or 0 for inferred signedness
	Width  int  // bytes; set when Format == 0
	Expr   Expr
}

// StringLit emits its captured bytes verbatim (no escape interpretation).
type StringLit struct {
	At   diag.Pos
	Data []byte
}

// IncludeBytes emits the raw contents of an external file.
type IncludeBytes struct {
	At   diag.Pos
	Path string
	Data []byte
}

// Align pads with zero bytes to the next multiple of its resolved
// argument, which must be a power of two >= 1.
type Align struct {
	At diag.Pos
	N  Expr
}

// ErrorDirective aborts assembly with a user-supplied message when
// reached during encoding.
type ErrorDirective struct {
	At      diag.Pos
	Message string
}

func (i *ConstantDef) isItem()    {}
func (i *Label) isItem()          {}
func (i *RType) isItem()          {}
func (i *IType) isItem()          {}
func (i *SType) isItem()          {}
func (i *BType) isItem()          {}
func (i *UType) isItem()          {}
func (i *JType) isItem()          {}
func (i *Amo) isItem()            {}
func (i *CInstr) isItem()         {}
func (i *Pseudo) isItem()         {}
func (i *DataSeq) isItem()        {}
func (i *Pack) isItem()           {}
func (i *StringLit) isItem()      {}
func (i *IncludeBytes) isItem()   {}
func (i *Align) isItem()          {}
func (i *ErrorDirective) isItem() {}

func (i *ConstantDef) Pos() diag.Pos    { return i.At }
func (i *Label) Pos() diag.Pos          { return i.At }
func (i *RType) Pos() diag.Pos          { return i.At }
func (i *IType) Pos() diag.Pos          { return i.At }
func (i *SType) Pos() diag.Pos          { return i.At }
func (i *BType) Pos() diag.Pos          { return i.At }
func (i *UType) Pos() diag.Pos          { return i.At }
func (i *JType) Pos() diag.Pos          { return i.At }
func (i *Amo) Pos() diag.Pos            { return i.At }
func (i *CInstr) Pos() diag.Pos         { return i.At }
func (i *Pseudo) Pos() diag.Pos         { return i.At }
func (i *DataSeq) Pos() diag.Pos        { return i.At }
func (i *Pack) Pos() diag.Pos           { return i.At }
func (i *StringLit) Pos() diag.Pos      { return i.At }
func (i *IncludeBytes) Pos() diag.Pos   { return i.At }
func (i *Align) Pos() diag.Pos          { return i.At }
func (i *ErrorDirective) Pos() diag.Pos { return i.At }

// Program is the unit every pass consumes and produces: the ordered item
// sequence plus the symbol scopes accumulated so far.
type Program struct {
	Items []Item

	// Consts maps constant names to resolved values; Aliases maps
	// user-defined register aliases to register numbers. Both are
	// populated once by the constant-resolution pass.
	Consts  map[string]int64
	Aliases map[string]int
}
