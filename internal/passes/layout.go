package passes

import (
	"fmt"

	"rvasm/internal/diag"
	"rvasm/internal/encoding"
	"rvasm/internal/expr"
	"rvasm/internal/ir"
)

// Layout assigns a byte offset to every item. Variable-width items
// (li, call, tail) start optimistic and only ever grow, so the fixed
// point converges in at most one iteration per item; compression, when
// enabled, runs as a second fixed point that marks instructions
// compressed and permanently demotes any mark that stops fitting.
type Layout struct {
	reporter *diag.Reporter
	compress bool

	plan   *ir.Plan
	aligns map[int]int64 // item index -> resolved alignment
	longs  map[int]bool  // item index -> pseudo frozen long
	banned map[int]bool  // item index -> never compress
}

// NewLayout constructs the layout resolver.
func NewLayout(reporter *diag.Reporter, compress bool) *Layout {
	return &Layout{reporter: reporter, compress: compress}
}

// Longs exposes which li/call/tail items settled in long form; the
// encoder needs the same decision.
func (l *Layout) Longs() map[int]bool { return l.longs }

// Resolve runs the fixed point and returns the final plan.
func (l *Layout) Resolve(p *ir.Program) (*ir.Plan, error) {
	l.reporter.Verbosef("pass: layout (compress=%v)", l.compress)
	n := len(p.Items)
	l.plan = &ir.Plan{
		Prog:       p,
		Offsets:    make([]int64, n),
		Sizes:      make([]int64, n),
		Compressed: make([]bool, n),
		Labels:     map[string]int64{},
	}
	l.aligns = map[int]int64{}
	l.longs = map[int]bool{}
	l.banned = map[int]bool{}

	if !l.prepare(p) {
		return nil, fmt.Errorf("layout aborted")
	}

	if err := l.converge(p); err != nil {
		return nil, err
	}
	if l.reporter.HasErrors() {
		return nil, fmt.Errorf("layout reported errors")
	}

	if l.compress {
		if err := l.compressLoop(p); err != nil {
			return nil, err
		}
	}

	// Instructions must start on a 4-byte boundary, or 2-byte once the
	// C extension is in play.
	req := int64(4)
	if l.compress {
		req = 2
	}
	for i, item := range p.Items {
		if !isInstruction(item) {
			continue
		}
		if l.plan.Offsets[i]%req != 0 {
			l.reporter.Errorf(item.Pos(), "instruction at misaligned offset 0x%x (requires %d-byte alignment)", l.plan.Offsets[i], req)
		}
	}
	if l.reporter.HasErrors() {
		return nil, fmt.Errorf("layout reported errors")
	}
	return l.plan, nil
}

func isInstruction(item ir.Item) bool {
	switch item.(type) {
	case *ir.RType, *ir.IType, *ir.SType, *ir.BType, *ir.UType, *ir.JType, *ir.Amo, *ir.CInstr, *ir.Pseudo:
		return true
	}
	return false
}

// prepare seeds item sizes, resolves alignment arguments and checks
// that labels are unique and shadow no register or constant name.
func (l *Layout) prepare(p *ir.Program) bool {
	ok := true
	seen := map[string]diag.Pos{}
	consts := &expr.Scope{Consts: p.Consts}
	for i, item := range p.Items {
		switch it := item.(type) {
		case *ir.Label:
			if _, dup := seen[it.Name]; dup {
				l.reporter.Errorf(it.At, "duplicate label: %s", it.Name)
				ok = false
				continue
			}
			seen[it.Name] = it.At
			if ir.IsRegisterName(it.Name) {
				l.reporter.Errorf(it.At, "label name shadows register name: %s", it.Name)
				ok = false
				continue
			}
			_, isConst := p.Consts[it.Name]
			_, isAlias := p.Aliases[it.Name]
			if isConst || isAlias {
				l.reporter.Errorf(it.At, "label name shadows constant: %s", it.Name)
				ok = false
			}
		case *ir.Align:
			if expr.DependsOnLabels(it.N, p.Consts) {
				l.reporter.Error(it.At, "align argument must not depend on label offsets")
				ok = false
				continue
			}
			n, err := expr.Eval(it.N, consts)
			if err != nil {
				l.reporter.Errorf(it.At, "invalid align argument: %v", err)
				ok = false
				continue
			}
			if n < 1 || n&(n-1) != 0 {
				l.reporter.Errorf(it.At, "align argument must be a power of two >= 1: %d", n)
				ok = false
				continue
			}
			l.aligns[i] = n
		case *ir.RType, *ir.IType, *ir.SType, *ir.BType, *ir.UType, *ir.JType, *ir.Amo:
			l.plan.Sizes[i] = 4
		case *ir.CInstr:
			l.plan.Sizes[i] = 2
		case *ir.Pseudo:
			l.plan.Sizes[i] = 4
		case *ir.Pack:
			l.plan.Sizes[i] = int64(packWidth(it))
		case *ir.StringLit:
			l.plan.Sizes[i] = int64(len(it.Data))
		case *ir.IncludeBytes:
			l.plan.Sizes[i] = int64(len(it.Data))
		}
	}
	return ok
}

func packWidth(p *ir.Pack) int {
	if p.Format == 0 {
		return p.Width
	}
	w, _, _, _ := encoding.PackFormat(p.Format)
	return w
}

// place walks the items once, assigning offsets and label values.
func (l *Layout) place(p *ir.Program) {
	off := int64(0)
	for i, item := range p.Items {
		if n, ok := l.aligns[i]; ok {
			l.plan.Sizes[i] = (n - off%n) % n
		}
		l.plan.Offsets[i] = off
		if lbl, ok := item.(*ir.Label); ok {
			l.plan.Labels[lbl.Name] = off
		}
		off += l.plan.Sizes[i]
	}
	l.plan.Total = off
}

// resize recomputes the variable-width pseudo sizes against the
// current label table. Long forms are sticky.
func (l *Layout) resize(p *ir.Program) (bool, error) {
	changed := false
	for i, item := range p.Items {
		it, ok := item.(*ir.Pseudo)
		if !ok {
			continue
		}
		sc := &expr.Scope{Consts: p.Consts, Labels: l.plan.Labels, PC: l.plan.Offsets[i]}
		var long bool
		switch it.Name {
		case "li":
			v, err := expr.Eval(it.Imm, sc)
			if err != nil {
				l.reporter.Errorf(it.At, "invalid expression: %v", err)
				return false, fmt.Errorf("layout reported errors")
			}
			if err := encoding.LiValueRange(v); err != nil {
				l.reporter.Errorf(it.At, "%v", err)
				return false, fmt.Errorf("layout reported errors")
			}
			long = encoding.LiLong(v)
		case "call", "tail":
			off, err := expr.EvalTarget(it.Imm, sc)
			if err != nil {
				l.reporter.Errorf(it.At, "invalid target: %v", err)
				return false, fmt.Errorf("layout reported errors")
			}
			long = off < -0x100000 || off > 0x0fffff || off%2 != 0
		default:
			return false, fmt.Errorf("unexpanded pseudo-instruction %s reached layout", it.Name)
		}
		if long && !l.longs[i] {
			l.longs[i] = true
			changed = true
		}
		want := l.sizeOf(i)
		if l.plan.Sizes[i] != want {
			l.plan.Sizes[i] = want
			changed = true
		}
	}
	return changed, nil
}

func (l *Layout) sizeOf(i int) int64 {
	if l.plan.Compressed[i] {
		return 2
	}
	if l.longs[i] {
		return 8
	}
	return 4
}

// converge iterates place/resize until sizes stop changing.
func (l *Layout) converge(p *ir.Program) error {
	max := len(p.Items) + 8
	for iter := 0; ; iter++ {
		if iter > max {
			return fmt.Errorf("layout did not converge after %d iterations", iter)
		}
		l.place(p)
		changed, err := l.resize(p)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
}

// compressLoop marks eligible instructions compressed, re-lays the
// program out, and repeats. A marked instruction whose immediate no
// longer fits after shifting is permanently demoted, so the loop
// terminates.
func (l *Layout) compressLoop(p *ir.Program) error {
	for round := 0; ; round++ {
		if round > 4*len(p.Items)+8 {
			return fmt.Errorf("compression did not converge after %d rounds", round)
		}
		if err := l.converge(p); err != nil {
			return err
		}

		// Demote marks invalidated by the last round of shifting.
		demoted := false
		for i := range p.Items {
			if !l.plan.Compressed[i] {
				continue
			}
			if !l.eligible(p, i) {
				l.plan.Compressed[i] = false
				l.banned[i] = true
				l.plan.Sizes[i] = l.uncompressedSize(p, i)
				demoted = true
			}
		}
		if demoted {
			continue
		}

		marked := false
		for i, item := range p.Items {
			if l.plan.Compressed[i] || l.banned[i] {
				continue
			}
			if !isCompressible(item) {
				continue
			}
			if l.eligible(p, i) {
				l.plan.Compressed[i] = true
				l.plan.Sizes[i] = 2
				marked = true
			}
		}
		if !marked {
			return nil
		}
	}
}

func (l *Layout) uncompressedSize(p *ir.Program, i int) int64 {
	if _, ok := p.Items[i].(*ir.Pseudo); ok && l.longs[i] {
		return 8
	}
	return 4
}

func isCompressible(item ir.Item) bool {
	switch item.(type) {
	case *ir.RType, *ir.IType, *ir.SType, *ir.BType, *ir.UType, *ir.JType, *ir.Pseudo:
		return true
	}
	return false
}

func (l *Layout) eligible(p *ir.Program, i int) bool {
	sc := &expr.Scope{Consts: p.Consts, Labels: l.plan.Labels, PC: l.plan.Offsets[i]}
	_, ok := encoding.CompressedForm(p, p.Items[i], sc, l.longs[i])
	return ok
}
