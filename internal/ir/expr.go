package ir

import "rvasm/internal/diag"

// Expr is a constant or address expression tree. Leaves are integer and
// float literals and identifier references; interior nodes are arithmetic
// and bitwise operators plus the %hi/%lo/%position/%offset modifiers.
type Expr interface {
	isExpr()
	Pos() diag.Pos
}

// IntLit is an integer literal. Character literals are folded to their
// Unicode scalar value at parse time and appear as IntLit too.
type IntLit struct {
	At    diag.Pos
	Value int64
}

// FloatLit is a floating-point literal, valid only under float pack
// formats and the floats/doubles directives.
type FloatLit struct {
	At    diag.Pos
	Value float64
}

// Ref names a constant or a label. Which one it is becomes known only
// when the expression is evaluated against a scope.
type Ref struct {
	At   diag.Pos
	Name string
}

// Unary is a prefix operator: "+", "-", or "~".
type Unary struct {
	At diag.Pos
	Op string
	X  Expr
}

// Binary is an infix operator with C-family numeric precedence.
type Binary struct {
	At diag.Pos
	Op string
	X  Expr
	Y  Expr
}

// Hi is %hi(e): the sign-adjusted upper 20 bits of the 32-bit value of e.
type Hi struct {
	At diag.Pos
	X  Expr
}

// Lo is %lo(e): the sign-adjusted lower 12 bits, consistent with %hi.
type Lo struct {
	At diag.Pos
	X  Expr
}

// Position is %position(label, base): base plus the label's byte offset.
type Position struct {
	At    diag.Pos
	Label string
	Base  Expr
}

// OffsetOf is %offset(label): the label's offset relative to the current
// instruction's address.
type OffsetOf struct {
	At    diag.Pos
	Label string
}

func (e *IntLit) isExpr()   {}
func (e *FloatLit) isExpr() {}
func (e *Ref) isExpr()      {}
func (e *Unary) isExpr()    {}
func (e *Binary) isExpr()   {}
func (e *Hi) isExpr()       {}
func (e *Lo) isExpr()       {}
func (e *Position) isExpr() {}
func (e *OffsetOf) isExpr() {}

func (e *IntLit) Pos() diag.Pos   { return e.At }
func (e *FloatLit) Pos() diag.Pos { return e.At }
func (e *Ref) Pos() diag.Pos      { return e.At }
func (e *Unary) Pos() diag.Pos    { return e.At }
func (e *Binary) Pos() diag.Pos   { return e.At }
func (e *Hi) Pos() diag.Pos       { return e.At }
func (e *Lo) Pos() diag.Pos       { return e.At }
func (e *Position) Pos() diag.Pos { return e.At }
func (e *OffsetOf) Pos() diag.Pos { return e.At }

// Int is a convenience constructor for resolved immediate values.
func Int(at diag.Pos, v int64) *IntLit {
	return &IntLit{At: at, Value: v}
}
