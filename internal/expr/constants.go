package expr

import (
	"fmt"

	"rvasm/internal/diag"
	"rvasm/internal/ir"
)

// ResolveConstants evaluates every ConstantDef in the program and fills
// in the program's constant and register-alias scopes. Definitions may
// reference each other in any order; cycles, duplicates, register-name
// shadowing and label-dependent right-hand sides are reported through
// the reporter.
func ResolveConstants(p *ir.Program, reporter *diag.Reporter) {
	defs := map[string]*ir.ConstantDef{}
	order := []string{}
	for _, item := range p.Items {
		def, ok := item.(*ir.ConstantDef)
		if !ok {
			continue
		}
		if ir.IsRegisterName(def.Name) {
			reporter.Errorf(def.At, "constant name shadows register name: %s", def.Name)
			continue
		}
		if _, dup := defs[def.Name]; dup {
			reporter.Errorf(def.At, "duplicate constant: %s", def.Name)
			continue
		}
		defs[def.Name] = def
		order = append(order, def.Name)
	}

	p.Consts = map[string]int64{}
	p.Aliases = map[string]int{}

	// Register aliases bind first so alias-of-alias chains resolve in
	// definition order.
	for _, name := range order {
		def := defs[name]
		ref, ok := def.Expr.(*ir.Ref)
		if !ok {
			continue
		}
		if n, isReg := ir.Registers[ref.Name]; isReg {
			p.Aliases[name] = n
			delete(defs, name)
			continue
		}
		if n, isAlias := p.Aliases[ref.Name]; isAlias {
			p.Aliases[name] = n
			delete(defs, name)
		}
	}

	state := map[string]int{} // 0 unvisited, 1 in progress, 2 done
	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case 2:
			return true
		case 1:
			reporter.Errorf(defs[name].At, "cycle in constant definitions involving %s", name)
			return false
		}
		state[name] = 1
		def := defs[name]
		for _, dep := range refNames(def.Expr) {
			if _, ok := defs[dep]; ok {
				if !visit(dep) {
					state[name] = 2
					return false
				}
			}
		}
		if err := checkConstantExpr(def.Expr); err != nil {
			reporter.Errorf(def.At, "%v", err)
			state[name] = 2
			return false
		}
		v, err := Eval(def.Expr, &Scope{Consts: p.Consts})
		if err != nil {
			reporter.Errorf(def.At, "invalid constant expression: %v", err)
			state[name] = 2
			return false
		}
		p.Consts[name] = v
		state[name] = 2
		return true
	}
	for _, name := range order {
		if _, ok := defs[name]; ok {
			visit(name)
		}
	}
}

// checkConstantExpr rejects forms that cannot appear in a constant
// definition: %position, %offset and float literals. Name references
// pass this check; a reference to a label fails later, when evaluation
// finds no constant of that name.
func checkConstantExpr(e ir.Expr) error {
	switch x := e.(type) {
	case *ir.Position:
		return fmt.Errorf("%%position is not permitted in a constant definition")
	case *ir.OffsetOf:
		return fmt.Errorf("%%offset is not permitted in a constant definition")
	case *ir.FloatLit:
		return fmt.Errorf("float literal is not permitted in a constant definition")
	case *ir.Unary:
		return checkConstantExpr(x.X)
	case *ir.Binary:
		if err := checkConstantExpr(x.X); err != nil {
			return err
		}
		return checkConstantExpr(x.Y)
	case *ir.Hi:
		return checkConstantExpr(x.X)
	case *ir.Lo:
		return checkConstantExpr(x.X)
	}
	return nil
}

func refNames(e ir.Expr) []string {
	var names []string
	var walk func(ir.Expr)
	walk = func(e ir.Expr) {
		switch x := e.(type) {
		case *ir.Ref:
			names = append(names, x.Name)
		case *ir.Unary:
			walk(x.X)
		case *ir.Binary:
			walk(x.X)
			walk(x.Y)
		case *ir.Hi:
			walk(x.X)
		case *ir.Lo:
			walk(x.X)
		case *ir.Position:
			walk(x.Base)
		}
	}
	walk(e)
	return names
}
