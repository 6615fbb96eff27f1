// Package passes contains the IR-to-IR transformation stages between
// parsing and encoding: pseudo-instruction expansion, the layout fixed
// point, and the optional C-extension compression pass.
package passes

import (
	"fmt"

	"rvasm/internal/diag"
	"rvasm/internal/ir"
)

// Pass is one IR transformation stage.
type Pass interface {
	Name() string
	Run(p *ir.Program) error
}

// Manager runs a sequence of passes in order, stopping at the first
// pass that fails or reports errors.
type Manager struct {
	reporter *diag.Reporter
	passes   []Pass
}

// NewManager constructs an empty pass manager.
func NewManager(reporter *diag.Reporter) *Manager {
	return &Manager{reporter: reporter}
}

// Add appends a pass to the run order.
func (m *Manager) Add(p Pass) {
	m.passes = append(m.passes, p)
}

// Run executes the registered passes in order.
func (m *Manager) Run(prog *ir.Program) error {
	for _, p := range m.passes {
		m.reporter.Verbosef("pass: %s", p.Name())
		if err := p.Run(prog); err != nil {
			return fmt.Errorf("pass %s: %w", p.Name(), err)
		}
		if m.reporter.HasErrors() {
			return fmt.Errorf("pass %s reported errors", p.Name())
		}
	}
	return nil
}
