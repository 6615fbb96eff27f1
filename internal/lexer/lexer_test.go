package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"rvasm/internal/diag"
)

func lexKinds(t *testing.T, line string) []Kind {
	t.Helper()
	toks, err := Lex(diag.Pos{File: "<string>", Line: 1}, line)
	if err != nil {
		t.Fatalf("Lex(%q): %v", line, err)
	}
	kinds := make([]Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	return kinds
}

func lexemes(t *testing.T, line string) []string {
	t.Helper()
	toks, err := Lex(diag.Pos{File: "<string>", Line: 1}, line)
	if err != nil {
		t.Fatalf("Lex(%q): %v", line, err)
	}
	out := make([]string, 0, len(toks))
	for _, tok := range toks {
		if tok.Kind == EOL {
			break
		}
		out = append(out, tok.Lexeme)
	}
	return out
}

func TestLexInstruction(t *testing.T) {
	got := lexemes(t, "addi t0, zero, 1")
	want := []string{"addi", "t0", ",", "zero", ",", "1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lexemes mismatch (-want +got):\n%s", diff)
	}
}

func TestLexComment(t *testing.T) {
	got := lexemes(t, "addi t0 zero 1 # increment")
	want := []string{"addi", "t0", "zero", "1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("comment not stripped (-want +got):\n%s", diff)
	}
	if kinds := lexKinds(t, "# whole line comment"); kinds[0] != EOL {
		t.Fatalf("comment-only line should lex to EOL, got %v", kinds)
	}
}

func TestLexNumbers(t *testing.T) {
	toks, err := Lex(diag.Pos{}, "12 0x1f 0b101 3.14")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Int != 12 || toks[1].Int != 0x1f || toks[2].Int != 0b101 {
		t.Fatalf("integer values: %d %d %d", toks[0].Int, toks[1].Int, toks[2].Int)
	}
	if toks[3].Kind != Float || toks[3].Float != 3.14 {
		t.Fatalf("float token: %+v", toks[3])
	}
}

func TestLexStringCapture(t *testing.T) {
	toks, err := Lex(diag.Pos{}, "string hello  ##  world")
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].Kind != StringRest {
		t.Fatalf("expected StringRest, got %v", toks[1].Kind)
	}
	if toks[1].Lexeme != "hello  ##  world" {
		t.Fatalf("captured %q", toks[1].Lexeme)
	}
}

func TestLexStringCaptureKeepsSpacing(t *testing.T) {
	toks, err := Lex(diag.Pos{}, "string   hello\\nworld")
	if err != nil {
		t.Fatal(err)
	}
	// exactly one separating space is consumed; the rest is payload
	if toks[1].Lexeme != "  hello\\nworld" {
		t.Fatalf("captured %q", toks[1].Lexeme)
	}
}

func TestLexErrorCapture(t *testing.T) {
	toks, err := Lex(diag.Pos{}, "error flash image overflows ROM")
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].Kind != StringRest || toks[1].Lexeme != "flash image overflows ROM" {
		t.Fatalf("captured %+v", toks[1])
	}
}

func TestLexCharLiteral(t *testing.T) {
	toks, err := Lex(diag.Pos{}, "'A' 'é'")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != Char || toks[0].Int != 65 {
		t.Fatalf("'A' = %+v", toks[0])
	}
	if toks[1].Kind != Char || toks[1].Int != 0xe9 {
		t.Fatalf("'é' = %+v", toks[1])
	}
}

func TestLexCharLiteralErrors(t *testing.T) {
	for _, bad := range []string{`''`, `'ab'`, `'\0'`, `'a`} {
		if _, err := Lex(diag.Pos{}, bad); err == nil {
			t.Errorf("Lex(%q) should fail", bad)
		}
	}
}

func TestLexModifiers(t *testing.T) {
	toks, err := Lex(diag.Pos{}, "%hi(ADDR) %lo ADDR %position(main, 0) %offset(loop)")
	if err != nil {
		t.Fatal(err)
	}
	var mods []string
	for _, tok := range toks {
		if tok.Kind == Modifier {
			mods = append(mods, tok.Lexeme)
		}
	}
	want := []string{"hi", "lo", "position", "offset"}
	if diff := cmp.Diff(want, mods); diff != "" {
		t.Fatalf("modifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestLexOperators(t *testing.T) {
	got := lexemes(t, "1 << 2 | 3 & ~4 ^ 5 >> 6")
	want := []string{"1", "<<", "2", "|", "3", "&", "~", "4", "^", "5", ">>", "6"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("operator lexemes mismatch (-want +got):\n%s", diff)
	}
}

func TestLexDottedMnemonics(t *testing.T) {
	got := lexemes(t, "amomaxu.w t0 t1 t2")
	if got[0] != "amomaxu.w" {
		t.Fatalf("dotted mnemonic lexed as %q", got[0])
	}
	got = lexemes(t, "c.addi x1 1")
	if got[0] != "c.addi" {
		t.Fatalf("compressed mnemonic lexed as %q", got[0])
	}
}
