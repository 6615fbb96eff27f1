package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"rvasm/internal/diag"
)

// unpack writes a txtar archive into a temp dir and returns its root.
func unpack(t *testing.T, archive string) string {
	t.Helper()
	dir := t.TempDir()
	ar := txtar.Parse([]byte(archive))
	for _, f := range ar.Files {
		path := filepath.Join(dir, f.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			t.Fatalf("write %s: %v", f.Name, err)
		}
	}
	return dir
}

func loadEntry(t *testing.T, dir, entry string, search ...string) ([]Line, *diag.Reporter, string) {
	t.Helper()
	var sb strings.Builder
	reporter := diag.NewReporter(&sb, 0)
	lines, err := Load(filepath.Join(dir, entry), Config{SearchPath: search}, reporter)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return lines, reporter, sb.String()
}

func textOf(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.Text) != "" {
			out = append(out, strings.TrimSpace(l.Text))
		}
	}
	return out
}

func TestLoadSimple(t *testing.T) {
	dir := unpack(t, `
-- main.asm --
addi t0 zero 1
addi t1 zero 2
`)
	lines, reporter, diags := loadEntry(t, dir, "main.asm")
	if reporter.HasErrors() {
		t.Fatalf("diagnostics:\n%s", diags)
	}
	got := textOf(lines)
	if len(got) != 2 || got[0] != "addi t0 zero 1" {
		t.Fatalf("lines = %q", got)
	}
	if lines[0].Pos.File == "" || lines[0].Pos.Line != 1 {
		t.Fatalf("origin = %+v", lines[0].Pos)
	}
}

func TestLoadIncludeRelative(t *testing.T) {
	dir := unpack(t, `
-- main.asm --
include lib/defs.asm
addi t0 zero FOO
-- lib/defs.asm --
FOO = 1
`)
	lines, reporter, diags := loadEntry(t, dir, "main.asm")
	if reporter.HasErrors() {
		t.Fatalf("diagnostics:\n%s", diags)
	}
	got := textOf(lines)
	want := []string{"FOO = 1", "addi t0 zero FOO"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestLoadIncludeSearchPath(t *testing.T) {
	dir := unpack(t, `
-- src/main.asm --
include chip.asm
-- defs/chip.asm --
UART = 0x10013000
`)
	lines, reporter, diags := loadEntry(t, dir, filepath.Join("src", "main.asm"), filepath.Join(dir, "defs"))
	if reporter.HasErrors() {
		t.Fatalf("diagnostics:\n%s", diags)
	}
	if got := textOf(lines); len(got) != 1 || got[0] != "UART = 0x10013000" {
		t.Fatalf("lines = %q", got)
	}
}

func TestLoadIncludeFirstHitWins(t *testing.T) {
	dir := unpack(t, `
-- main.asm --
include defs.asm
-- defs.asm --
LOCAL = 1
-- other/defs.asm --
OTHER = 1
`)
	// the including file's directory is searched before the path
	lines, _, _ := loadEntry(t, dir, "main.asm", filepath.Join(dir, "other"))
	if got := textOf(lines); len(got) != 1 || got[0] != "LOCAL = 1" {
		t.Fatalf("lines = %q", got)
	}
}

func TestLoadIncludeMissing(t *testing.T) {
	dir := unpack(t, `
-- main.asm --
include missing.asm
`)
	_, reporter, diags := loadEntry(t, dir, "main.asm")
	if !reporter.HasErrors() || !strings.Contains(diags, "file not found on search path") {
		t.Fatalf("diagnostics:\n%s", diags)
	}
}

func TestLoadCircularInclude(t *testing.T) {
	dir := unpack(t, `
-- a.asm --
include b.asm
-- b.asm --
include a.asm
`)
	_, reporter, diags := loadEntry(t, dir, "a.asm")
	if !reporter.HasErrors() || !strings.Contains(diags, "circular include") {
		t.Fatalf("diagnostics:\n%s", diags)
	}
}

func TestLoadSelfInclude(t *testing.T) {
	dir := unpack(t, `
-- a.asm --
include a.asm
`)
	_, reporter, diags := loadEntry(t, dir, "a.asm")
	if !reporter.HasErrors() || !strings.Contains(diags, "circular include") {
		t.Fatalf("diagnostics:\n%s", diags)
	}
}

func TestLoadIncludeBytes(t *testing.T) {
	dir := unpack(t, `
-- main.asm --
include_bytes blob.bin
-- blob.bin --
raw payload
`)
	lines, reporter, diags := loadEntry(t, dir, "main.asm")
	if reporter.HasErrors() {
		t.Fatalf("diagnostics:\n%s", diags)
	}
	var blob *Line
	for i := range lines {
		if lines[i].IsBytes {
			blob = &lines[i]
		}
	}
	if blob == nil {
		t.Fatal("no include_bytes line produced")
	}
	if string(blob.Data) != "raw payload\n" {
		t.Fatalf("blob data = %q", blob.Data)
	}
}

func TestLoadIdentifierStartingWithInclude(t *testing.T) {
	dir := unpack(t, `
-- main.asm --
include_me = 4
includes = 5
`)
	lines, reporter, diags := loadEntry(t, dir, "main.asm")
	if reporter.HasErrors() {
		t.Fatalf("identifier lines misread as includes:\n%s", diags)
	}
	if got := textOf(lines); len(got) != 2 {
		t.Fatalf("lines = %q", got)
	}
}

func TestLoadString(t *testing.T) {
	var sb strings.Builder
	reporter := diag.NewReporter(&sb, 0)
	lines, err := LoadString("nop\nnop\n", Config{}, reporter)
	if err != nil {
		t.Fatal(err)
	}
	if lines[0].Pos.File != "<string>" {
		t.Fatalf("pseudo-file name = %q", lines[0].Pos.File)
	}
}
