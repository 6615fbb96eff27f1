// Package diag collects and renders positioned diagnostics for the
// assembler. Passes report errors through a shared Reporter instead of
// returning on the first failure, so independent problems in one source
// file surface in a single run.
package diag

import (
	"fmt"
	"io"
	"sync"
)

// Pos identifies a location in an assembly source file. Line and Col are
// 1-based; a zero Pos renders as "<unknown>".
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.File == "" && p.Line == 0 {
		return "<unknown>"
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Diagnostic is a single recorded problem.
type Diagnostic struct {
	Pos     Pos
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Message)
}

// Reporter accumulates diagnostics and writes them to an output stream.
// Verbosity controls whether Verbosef / Debugf lines are emitted.
type Reporter struct {
	mu        sync.Mutex
	out       io.Writer
	verbosity int
	errs      []Diagnostic
}

// NewReporter returns a Reporter writing to out. verbosity 0 is quiet,
// 1 enables Verbosef, 2 additionally enables Debugf.
func NewReporter(out io.Writer, verbosity int) *Reporter {
	return &Reporter{out: out, verbosity: verbosity}
}

// Error records a diagnostic at pos and prints it immediately.
func (r *Reporter) Error(pos Pos, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := Diagnostic{Pos: pos, Message: msg}
	r.errs = append(r.errs, d)
	fmt.Fprintf(r.out, "%s\n", d)
}

// Errorf records a diagnostic at pos with a formatted message.
func (r *Reporter) Errorf(pos Pos, format string, args ...interface{}) {
	r.Error(pos, fmt.Sprintf(format, args...))
}

// Verbosef prints a progress line when verbosity >= 1.
func (r *Reporter) Verbosef(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verbosity >= 1 {
		fmt.Fprintf(r.out, format+"\n", args...)
	}
}

// Debugf prints a detail line when verbosity >= 2.
func (r *Reporter) Debugf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verbosity >= 2 {
		fmt.Fprintf(r.out, format+"\n", args...)
	}
}

// HasErrors reports whether any diagnostic has been recorded.
func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs) > 0
}

// Count returns the number of recorded diagnostics.
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

// Errors returns a copy of the recorded diagnostics in report order.
func (r *Reporter) Errors() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.errs))
	copy(out, r.errs)
	return out
}
