package passes

import (
	"rvasm/internal/diag"
	"rvasm/internal/expr"
	"rvasm/internal/ir"
)

// ResolveConstants reduces every constant definition to its value and
// binds register aliases, in dependency order.
type ResolveConstants struct {
	reporter *diag.Reporter
}

// NewResolveConstants constructs the pass.
func NewResolveConstants(reporter *diag.Reporter) *ResolveConstants {
	return &ResolveConstants{reporter: reporter}
}

// Name implements the Pass interface.
func (c *ResolveConstants) Name() string { return "resolve-constants" }

// Run implements the Pass interface.
func (c *ResolveConstants) Run(p *ir.Program) error {
	expr.ResolveConstants(p, c.reporter)
	return nil
}
