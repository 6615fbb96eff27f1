// Package parser turns the loaded line stream into the ordered item
// sequence. Parsing is line-oriented: each line yields at most one item,
// and a malformed line is reported and skipped so that independent
// errors surface in a single run.
package parser

import (
	"strings"

	"rvasm/internal/diag"
	"rvasm/internal/ir"
	"rvasm/internal/lexer"
	"rvasm/internal/source"
)

// Parse consumes the loaded lines and returns the program item sequence.
// little is the global endianness applied to the db/dh/dw/dd shorthands.
func Parse(lines []source.Line, little bool, reporter *diag.Reporter) *ir.Program {
	p := &parser{little: little, reporter: reporter}
	prog := &ir.Program{}
	for _, line := range lines {
		if line.IsBytes {
			prog.Items = append(prog.Items, &ir.IncludeBytes{At: line.Pos, Path: line.Path, Data: line.Data})
			continue
		}
		toks, err := lexer.Lex(line.Pos, line.Text)
		if err != nil {
			reporter.Errorf(line.Pos, "%v", err)
			continue
		}
		if toks[0].Kind == lexer.EOL {
			continue
		}
		item := p.parseLine(toks)
		if item != nil {
			prog.Items = append(prog.Items, item)
		}
	}
	return prog
}

type parser struct {
	little   bool
	reporter *diag.Reporter

	toks []lexer.Token
	cur  int
	bad  bool
}

func (p *parser) errorf(pos diag.Pos, format string, args ...interface{}) {
	if !p.bad {
		p.reporter.Errorf(pos, format, args...)
	}
	p.bad = true
}

func (p *parser) peek() lexer.Token {
	return p.toks[p.cur]
}

func (p *parser) next() lexer.Token {
	t := p.toks[p.cur]
	if t.Kind != lexer.EOL {
		p.cur++
	}
	return t
}

// skipCommas steps over operand-separating commas.
func (p *parser) skipCommas() {
	for p.peek().Kind == lexer.Comma {
		p.cur++
	}
}

func (p *parser) atEOL() bool {
	p.skipCommas()
	return p.peek().Kind == lexer.EOL
}

func (p *parser) expectEOL() {
	if !p.atEOL() && !p.bad {
		t := p.peek()
		p.errorf(t.Pos, "unexpected %s %q after item", t.Kind, t.Lexeme)
	}
}

func (p *parser) parseLine(toks []lexer.Token) ir.Item {
	p.toks, p.cur, p.bad = toks, 0, false

	head := p.next()
	if head.Kind != lexer.Ident {
		p.errorf(head.Pos, "expected label, constant, directive or mnemonic, got %s %q", head.Kind, head.Lexeme)
		return nil
	}

	switch p.peek().Kind {
	case lexer.Colon:
		p.next()
		if !validName(head.Lexeme) {
			p.errorf(head.Pos, "invalid label name: %s", head.Lexeme)
			return nil
		}
		p.expectEOL()
		if p.bad {
			return nil
		}
		return &ir.Label{At: head.Pos, Name: head.Lexeme}
	case lexer.Operator:
		if p.peek().Lexeme == "=" {
			p.next()
			if !validName(head.Lexeme) {
				p.errorf(head.Pos, "invalid constant name: %s", head.Lexeme)
				return nil
			}
			rhs := p.parseExpr()
			p.expectEOL()
			if p.bad {
				return nil
			}
			return &ir.ConstantDef{At: head.Pos, Name: head.Lexeme, Expr: rhs}
		}
	}

	name := strings.ToLower(head.Lexeme)
	item := p.parseDirective(head.Pos, name)
	if item == nil && !p.bad {
		item = p.parseInstruction(head.Pos, name)
	}
	if p.bad {
		return nil
	}
	if item == nil {
		p.errorf(head.Pos, "unknown directive or mnemonic: %s", head.Lexeme)
		return nil
	}
	p.expectEOL()
	if p.bad {
		return nil
	}
	return item
}

func (p *parser) parseDirective(pos diag.Pos, name string) ir.Item {
	switch name {
	case "string":
		return &ir.StringLit{At: pos, Data: []byte(p.next().Lexeme)}
	case "error":
		return &ir.ErrorDirective{At: pos, Message: p.next().Lexeme}
	case "align":
		return &ir.Align{At: pos, N: p.parseExpr()}
	case "bytes":
		return p.parseSeq(pos, ir.SeqBytes)
	case "shorts":
		return p.parseSeq(pos, ir.SeqShorts)
	case "ints":
		return p.parseSeq(pos, ir.SeqInts)
	case "longs":
		return p.parseSeq(pos, ir.SeqLongs)
	case "longlongs":
		return p.parseSeq(pos, ir.SeqLongLongs)
	case "floats":
		return p.parseSeq(pos, ir.SeqFloats)
	case "doubles":
		return p.parseSeq(pos, ir.SeqDoubles)
	case "db":
		return &ir.Pack{At: pos, Little: p.little, Width: 1, Expr: p.parseExpr()}
	case "dh":
		return &ir.Pack{At: pos, Little: p.little, Width: 2, Expr: p.parseExpr()}
	case "dw":
		return &ir.Pack{At: pos, Little: p.little, Width: 4, Expr: p.parseExpr()}
	case "dd":
		return &ir.Pack{At: pos, Little: p.little, Width: 8, Expr: p.parseExpr()}
	case "pack":
		return p.parsePack(pos)
	}
	return nil
}

func (p *parser) parseSeq(pos diag.Pos, kind ir.SeqKind) ir.Item {
	seq := &ir.DataSeq{At: pos, Kind: kind}
	for !p.atEOL() {
		seq.Values = append(seq.Values, p.parseExpr())
		if p.bad {
			return nil
		}
	}
	if len(seq.Values) == 0 {
		p.errorf(pos, "%s requires at least one value", kind)
		return nil
	}
	return seq
}

// packFormats maps struct-style format characters to width, signedness
// and floatness.
var packFormats = map[string]struct {
	width  int
	signed bool
	float  bool
}{
	"b": {1, true, false}, "B": {1, false, false},
	"h": {2, true, false}, "H": {2, false, false},
	"i": {4, true, false}, "I": {4, false, false},
	"l": {4, true, false}, "L": {4, false, false},
	"q": {8, true, false}, "Q": {8, false, false},
	"f": {4, true, true},
	"d": {8, true, true},
}

func (p *parser) parsePack(pos diag.Pos) ir.Item {
	p.skipCommas()
	endian := p.next()
	if endian.Kind != lexer.Operator || (endian.Lexeme != "<" && endian.Lexeme != ">") {
		p.errorf(endian.Pos, "pack format must start with '<' or '>', got %q", endian.Lexeme)
		return nil
	}
	format := p.next()
	if format.Kind != lexer.Ident || len(format.Lexeme) != 1 {
		p.errorf(format.Pos, "invalid pack format character %q", format.Lexeme)
		return nil
	}
	if _, ok := packFormats[format.Lexeme]; !ok {
		p.errorf(format.Pos, "unsupported pack format character %q", format.Lexeme)
		return nil
	}
	e := p.parseExpr()
	if p.bad {
		return nil
	}
	return &ir.Pack{At: pos, Little: endian.Lexeme == "<", Format: format.Lexeme[0], Expr: e}
}

func validName(name string) bool {
	if name == "" || strings.Contains(name, ".") {
		return false
	}
	return true
}
