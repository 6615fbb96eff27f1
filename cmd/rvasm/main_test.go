package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"
)

// writeSource writes src to a temp file and returns its path plus the
// directory for outputs.
func writeSource(t *testing.T, src string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.asm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path, dir
}

func runAssembler(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var sb strings.Builder
	err := run(args, &sb)
	return sb.String(), err
}

func assembleFile(t *testing.T, src string, extra ...string) []byte {
	t.Helper()
	input, dir := writeSource(t, src)
	out := filepath.Join(dir, "out.bin")
	args := append([]string{"-o", out}, extra...)
	args = append(args, input)
	if diags, err := runAssembler(t, args...); err != nil {
		t.Fatalf("assembly failed: %v\n%s", err, diags)
	}
	image, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return image
}

func TestEndToEndAddi(t *testing.T) {
	image := assembleFile(t, "addi x1, zero, 12\n")
	if len(image) != 4 || binary.LittleEndian.Uint32(image) != 0x00C00093 {
		t.Fatalf("image = % x", image)
	}
}

func TestEndToEndLoop(t *testing.T) {
	image := assembleFile(t, "loop:\n    jal zero, loop\n")
	if binary.LittleEndian.Uint32(image) != 0x0000006F {
		t.Fatalf("image = % x", image)
	}
}

func TestEndToEndPack(t *testing.T) {
	le := assembleFile(t, "pack <I 0x01020304\n")
	if diff := cmp.Diff([]byte{0x04, 0x03, 0x02, 0x01}, le); diff != "" {
		t.Fatalf("pack <I mismatch (-want +got):\n%s", diff)
	}
	be := assembleFile(t, "pack >I 0x01020304\n")
	if diff := cmp.Diff([]byte{0x01, 0x02, 0x03, 0x04}, be); diff != "" {
		t.Fatalf("pack >I mismatch (-want +got):\n%s", diff)
	}
}

func TestEndToEndPosition(t *testing.T) {
	src := `data:
    bytes 1 2 3 4
align 4
main:
    li t0, %position(data, 0x08000000)
`
	image := assembleFile(t, src)
	// data at 0, main at 4; %position = 0x08000000 has zero low bits,
	// so li is a single lui
	if len(image) != 8 {
		t.Fatalf("image length = %d", len(image))
	}
	word := binary.LittleEndian.Uint32(image[4:])
	if word != 0x080002b7 {
		t.Fatalf("li word = %#08x, want 0x080002b7", word)
	}
}

func TestNoOutputOnError(t *testing.T) {
	input, dir := writeSource(t, "addi t0 zero 99999\n")
	out := filepath.Join(dir, "out.bin")
	if _, err := runAssembler(t, "-o", out, input); err == nil {
		t.Fatal("expected assembly error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("output file must not be written after errors")
	}
}

func TestMultipleErrorsReported(t *testing.T) {
	input, dir := writeSource(t, "bogus1\nbogus2\n")
	diags, err := runAssembler(t, "-o", filepath.Join(dir, "out.bin"), input)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(diags, "bogus1") || !strings.Contains(diags, "bogus2") {
		t.Fatalf("both errors should be reported:\n%s", diags)
	}
}

func TestLabelsListing(t *testing.T) {
	src := "start:\n    nop\nend:\n    nop\n"
	input, dir := writeSource(t, src)
	out := filepath.Join(dir, "out.bin")
	labels := filepath.Join(dir, "labels.txt")
	if diags, err := runAssembler(t, "-o", out, "-l", labels, input); err != nil {
		t.Fatalf("assembly failed: %v\n%s", err, diags)
	}
	data, err := os.ReadFile(labels)
	if err != nil {
		t.Fatalf("read labels: %v", err)
	}
	want := "start\t0x00000000\nend\t0x00000004\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestHexOutput(t *testing.T) {
	input, dir := writeSource(t, "addi x1, zero, 12\n")
	out := filepath.Join(dir, "out.bin")
	if diags, err := runAssembler(t, "-o", out, "--hex-offset", "134217728", input); err != nil {
		t.Fatalf("assembly failed: %v\n%s", err, diags)
	}
	data, err := os.ReadFile(out + ".hex")
	if err != nil {
		t.Fatalf("read hex: %v", err)
	}
	want := ":020000040800F2\n:040000009300C000A9\n:00000001FF\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Fatalf("hex mismatch (-want +got):\n%s", diff)
	}
}

func TestIncludeSearchPathFlag(t *testing.T) {
	dir := t.TempDir()
	ar := txtar.Parse([]byte(`
-- src/main.asm --
include uart.asm
li t0 UART_BASE
-- defs/uart.asm --
UART_BASE = 0x10013000
`))
	for _, f := range ar.Files {
		path := filepath.Join(dir, f.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out := filepath.Join(dir, "out.bin")
	diags, err := runAssembler(t, "-o", out, "-i", filepath.Join(dir, "defs"), filepath.Join(dir, "src", "main.asm"))
	if err != nil {
		t.Fatalf("assembly failed: %v\n%s", err, diags)
	}
	image, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if binary.LittleEndian.Uint32(image) != 0x100132b7 {
		t.Fatalf("image = % x", image)
	}
}

func TestIncludeBytesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := os.WriteFile(filepath.Join(dir, "blob.bin"), payload, 0o644); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(dir, "main.asm")
	if err := os.WriteFile(input, []byte("include_bytes blob.bin\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.bin")
	if diags, err := runAssembler(t, "-o", out, input); err != nil {
		t.Fatalf("assembly failed: %v\n%s", err, diags)
	}
	image, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(payload, image); diff != "" {
		t.Fatalf("blob mismatch (-want +got):\n%s", diff)
	}
}

func TestIncludeDefinitions(t *testing.T) {
	root, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("RVASM_DEFINITIONS_DIR", filepath.Join(root, "..", "..", "definitions"))
	input, dir := writeSource(t, "include fe310.asm\nli t0 UART0_BASE_ADDR\n")
	out := filepath.Join(dir, "out.bin")
	if diags, err := runAssembler(t, "-o", out, "--include-definitions", input); err != nil {
		t.Fatalf("assembly failed: %v\n%s", err, diags)
	}
	image, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if binary.LittleEndian.Uint32(image) != 0x100132b7 {
		t.Fatalf("image = % x", image)
	}
}

func TestCompressFlag(t *testing.T) {
	src := "addi t0 t0 1\n"
	plain := assembleFile(t, src)
	packed := assembleFile(t, src, "-c")
	if len(plain) != 4 || len(packed) != 2 {
		t.Fatalf("sizes: plain=%d packed=%d", len(plain), len(packed))
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := runAssembler(t, "--version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Fatalf("version output: %q", out)
	}
}

func TestMissingInput(t *testing.T) {
	if _, err := runAssembler(t); err == nil {
		t.Fatal("expected usage error")
	}
}

func TestFlattenedSourceSameBinary(t *testing.T) {
	// Assembling the include-flattened equivalent of a program yields
	// a byte-identical binary.
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "defs.asm"), []byte("VAL = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	split := filepath.Join(dir, "split.asm")
	if err := os.WriteFile(split, []byte("include defs.asm\naddi t0 zero VAL\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	flat := filepath.Join(dir, "flat.asm")
	if err := os.WriteFile(flat, []byte("VAL = 42\naddi t0 zero VAL\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outSplit := filepath.Join(dir, "split.bin")
	outFlat := filepath.Join(dir, "flat.bin")
	if diags, err := runAssembler(t, "-o", outSplit, split); err != nil {
		t.Fatalf("split: %v\n%s", err, diags)
	}
	if diags, err := runAssembler(t, "-o", outFlat, flat); err != nil {
		t.Fatalf("flat: %v\n%s", err, diags)
	}
	a, _ := os.ReadFile(outSplit)
	b, _ := os.ReadFile(outFlat)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("flattened binary differs (-split +flat):\n%s", diff)
	}
}
